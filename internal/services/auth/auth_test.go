package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/linkedrite/linkedrite/internal/lib/jwt"
	"github.com/linkedrite/linkedrite/internal/lib/password"
	"github.com/linkedrite/linkedrite/internal/models"
	"github.com/linkedrite/linkedrite/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type UsersMock struct{ mock.Mock }

func (m *UsersMock) RegisterUser(ctx context.Context, user models.User) (string, error) {
	args := m.Called(ctx, user)
	return args.String(0), args.Error(1)
}
func (m *UsersMock) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *UsersMock) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *UsersMock) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *UsersMock) MarkEmailVerified(ctx context.Context, userUID string) error {
	return m.Called(ctx, userUID).Error(0)
}
func (m *UsersMock) UpdatePassword(ctx context.Context, userUID, passwordHash string) error {
	return m.Called(ctx, userUID, passwordHash).Error(0)
}

type TokensMock struct{ mock.Mock }

func (m *TokensMock) CreateOneTimeToken(ctx context.Context, token models.OneTimeToken) (int, error) {
	args := m.Called(ctx, token)
	return args.Int(0), args.Error(1)
}
func (m *TokensMock) GetOneTimeToken(ctx context.Context, token, purpose string) (*models.OneTimeToken, error) {
	args := m.Called(ctx, token, purpose)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OneTimeToken), args.Error(1)
}
func (m *TokensMock) MarkTokenUsed(ctx context.Context, id int) error {
	return m.Called(ctx, id).Error(0)
}
func (m *TokensMock) InvalidateUserTokens(ctx context.Context, userUID, purpose string) error {
	return m.Called(ctx, userUID, purpose).Error(0)
}

type SubsMock struct{ mock.Mock }

func (m *SubsMock) GetOrCreate(ctx context.Context, userUID string) (*models.Subscription, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

type NotifierMock struct{ mock.Mock }

func (m *NotifierMock) PublishEmail(msg models.EmailMessage) error {
	return m.Called(msg).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func newService(users *UsersMock, tokens *TokensMock, subs *SubsMock, notifier *NotifierMock) *Service {
	maker := jwt.NewJWTMaker("test-secret-key", time.Hour)
	return New(users, tokens, subs, notifier, maker, newNoopLogger(), "https://linkedrite.example.com")
}

func TestService_Register(t *testing.T) {
	t.Run("success provisions subscription and sends email", func(t *testing.T) {
		users := new(UsersMock)
		tokens := new(TokensMock)
		subs := new(SubsMock)
		notifier := new(NotifierMock)

		users.On("RegisterUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
			return u.Email == "user@example.com" &&
				u.Username == "user1" &&
				u.Role == "user" &&
				u.Timezone == "Europe/Moscow" &&
				u.IsActive &&
				u.PasswordHash != "secretpass"
		})).Return("uid-1", nil).Once()
		subs.On("GetOrCreate", mock.Anything, "uid-1").
			Return(&models.Subscription{UserUID: "uid-1", Plan: models.PlanFree, IsActive: true}, nil).Once()
		tokens.On("CreateOneTimeToken", mock.Anything, mock.MatchedBy(func(tok models.OneTimeToken) bool {
			return tok.UserUID == "uid-1" && tok.Purpose == models.TokenPurposeVerifyEmail
		})).Return(1, nil).Once()
		notifier.On("PublishEmail", mock.MatchedBy(func(msg models.EmailMessage) bool {
			return msg.Template == models.EmailTemplateVerify &&
				msg.Recipient == "user@example.com" &&
				msg.Context["link"] != ""
		})).Return(nil).Once()

		svc := newService(users, tokens, subs, notifier)
		token, err := svc.Register(context.Background(), "user@example.com", "user1", "secretpass", "Europe/Moscow")
		require.NoError(t, err)
		assert.NotEmpty(t, token)

		users.AssertExpectations(t)
		tokens.AssertExpectations(t)
		subs.AssertExpectations(t)
		notifier.AssertExpectations(t)
	})

	t.Run("empty timezone defaults to utc", func(t *testing.T) {
		users := new(UsersMock)
		tokens := new(TokensMock)
		subs := new(SubsMock)
		notifier := new(NotifierMock)

		users.On("RegisterUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
			return u.Timezone == "UTC"
		})).Return("uid-1", nil).Once()
		subs.On("GetOrCreate", mock.Anything, "uid-1").
			Return(&models.Subscription{UserUID: "uid-1"}, nil).Once()
		tokens.On("CreateOneTimeToken", mock.Anything, mock.Anything).Return(1, nil).Once()
		notifier.On("PublishEmail", mock.Anything).Return(nil).Once()

		svc := newService(users, tokens, subs, notifier)
		_, err := svc.Register(context.Background(), "user@example.com", "user1", "secretpass", "")
		require.NoError(t, err)
		users.AssertExpectations(t)
	})

	t.Run("broker failure does not fail registration", func(t *testing.T) {
		users := new(UsersMock)
		tokens := new(TokensMock)
		subs := new(SubsMock)
		notifier := new(NotifierMock)

		users.On("RegisterUser", mock.Anything, mock.Anything).Return("uid-1", nil).Once()
		subs.On("GetOrCreate", mock.Anything, "uid-1").
			Return(&models.Subscription{UserUID: "uid-1"}, nil).Once()
		tokens.On("CreateOneTimeToken", mock.Anything, mock.Anything).Return(1, nil).Once()
		notifier.On("PublishEmail", mock.Anything).Return(errors.New("broker down")).Once()

		svc := newService(users, tokens, subs, notifier)
		token, err := svc.Register(context.Background(), "user@example.com", "user1", "secretpass", "UTC")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
	})

	t.Run("duplicate user returns error", func(t *testing.T) {
		users := new(UsersMock)
		users.On("RegisterUser", mock.Anything, mock.Anything).
			Return("", errors.New("duplicate key")).Once()

		svc := newService(users, new(TokensMock), new(SubsMock), new(NotifierMock))
		_, err := svc.Register(context.Background(), "user@example.com", "user1", "secretpass", "UTC")
		assert.Error(t, err)
	})
}

func TestService_Login(t *testing.T) {
	hashed, err := password.GetHash("secretpass")
	require.NoError(t, err)
	user := &models.User{
		UID:          "uid-1",
		Username:     "user1",
		PasswordHash: hashed,
		Role:         "user",
	}

	tests := []struct {
		name       string
		setupMocks func(u *UsersMock)
		password   string
		wantErr    error
	}{
		{
			name: "success",
			setupMocks: func(u *UsersMock) {
				u.On("GetUserByUsername", mock.Anything, "user1").Return(user, nil).Once()
			},
			password: "secretpass",
		},
		{
			name: "wrong password",
			setupMocks: func(u *UsersMock) {
				u.On("GetUserByUsername", mock.Anything, "user1").Return(user, nil).Once()
			},
			password: "wrongpass",
			wantErr:  ErrInvalidCredentials,
		},
		{
			name: "unknown user maps to invalid credentials",
			setupMocks: func(u *UsersMock) {
				u.On("GetUserByUsername", mock.Anything, "user1").Return(nil, storage.ErrNotFound).Once()
			},
			password: "secretpass",
			wantErr:  ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(UsersMock)
			tt.setupMocks(users)

			svc := newService(users, new(TokensMock), new(SubsMock), new(NotifierMock))
			token, role, err := svc.Login(context.Background(), "user1", tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, token)
				assert.Equal(t, "user", role)
			}
			users.AssertExpectations(t)
		})
	}
}

func TestService_VerifyEmail(t *testing.T) {
	validToken := &models.OneTimeToken{
		ID:        1,
		UserUID:   "uid-1",
		Token:     "tok",
		Purpose:   models.TokenPurposeVerifyEmail,
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}

	t.Run("success marks token used and email verified", func(t *testing.T) {
		users := new(UsersMock)
		tokens := new(TokensMock)
		tokens.On("GetOneTimeToken", mock.Anything, "tok", models.TokenPurposeVerifyEmail).
			Return(validToken, nil).Once()
		tokens.On("MarkTokenUsed", mock.Anything, 1).Return(nil).Once()
		users.On("MarkEmailVerified", mock.Anything, "uid-1").Return(nil).Once()

		svc := newService(users, tokens, new(SubsMock), new(NotifierMock))
		require.NoError(t, svc.VerifyEmail(context.Background(), "tok"))
		users.AssertExpectations(t)
		tokens.AssertExpectations(t)
	})

	t.Run("unknown token", func(t *testing.T) {
		tokens := new(TokensMock)
		tokens.On("GetOneTimeToken", mock.Anything, "tok", models.TokenPurposeVerifyEmail).
			Return(nil, storage.ErrNotFound).Once()

		svc := newService(new(UsersMock), tokens, new(SubsMock), new(NotifierMock))
		assert.ErrorIs(t, svc.VerifyEmail(context.Background(), "tok"), ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		expired := *validToken
		expired.ExpiresAt = time.Now().UTC().Add(-time.Minute)
		tokens := new(TokensMock)
		tokens.On("GetOneTimeToken", mock.Anything, "tok", models.TokenPurposeVerifyEmail).
			Return(&expired, nil).Once()

		svc := newService(new(UsersMock), tokens, new(SubsMock), new(NotifierMock))
		assert.ErrorIs(t, svc.VerifyEmail(context.Background(), "tok"), ErrInvalidToken)
	})

	t.Run("used token", func(t *testing.T) {
		used := *validToken
		used.IsUsed = true
		tokens := new(TokensMock)
		tokens.On("GetOneTimeToken", mock.Anything, "tok", models.TokenPurposeVerifyEmail).
			Return(&used, nil).Once()

		svc := newService(new(UsersMock), tokens, new(SubsMock), new(NotifierMock))
		assert.ErrorIs(t, svc.VerifyEmail(context.Background(), "tok"), ErrInvalidToken)
	})
}

func TestService_ResendVerification(t *testing.T) {
	t.Run("already verified", func(t *testing.T) {
		users := new(UsersMock)
		users.On("GetUser", mock.Anything, "uid-1").
			Return(&models.User{UID: "uid-1", EmailVerified: true}, nil).Once()

		svc := newService(users, new(TokensMock), new(SubsMock), new(NotifierMock))
		assert.ErrorIs(t, svc.ResendVerification(context.Background(), "uid-1"), ErrAlreadyVerified)
	})

	t.Run("invalidates old tokens and sends new", func(t *testing.T) {
		users := new(UsersMock)
		tokens := new(TokensMock)
		notifier := new(NotifierMock)
		users.On("GetUser", mock.Anything, "uid-1").
			Return(&models.User{UID: "uid-1", Username: "user1", Email: "user@example.com"}, nil).Once()
		tokens.On("InvalidateUserTokens", mock.Anything, "uid-1", models.TokenPurposeVerifyEmail).Return(nil).Once()
		tokens.On("CreateOneTimeToken", mock.Anything, mock.Anything).Return(2, nil).Once()
		notifier.On("PublishEmail", mock.Anything).Return(nil).Once()

		svc := newService(users, tokens, new(SubsMock), notifier)
		require.NoError(t, svc.ResendVerification(context.Background(), "uid-1"))
		tokens.AssertExpectations(t)
		notifier.AssertExpectations(t)
	})
}

func TestService_RequestPasswordReset(t *testing.T) {
	t.Run("unknown email is silent", func(t *testing.T) {
		users := new(UsersMock)
		users.On("GetUserByEmail", mock.Anything, "nobody@example.com").
			Return(nil, storage.ErrNotFound).Once()

		svc := newService(users, new(TokensMock), new(SubsMock), new(NotifierMock))
		assert.NoError(t, svc.RequestPasswordReset(context.Background(), "nobody@example.com"))
	})

	t.Run("known email gets reset token", func(t *testing.T) {
		users := new(UsersMock)
		tokens := new(TokensMock)
		notifier := new(NotifierMock)
		users.On("GetUserByEmail", mock.Anything, "user@example.com").
			Return(&models.User{UID: "uid-1", Username: "user1", Email: "user@example.com"}, nil).Once()
		tokens.On("InvalidateUserTokens", mock.Anything, "uid-1", models.TokenPurposeResetPassword).Return(nil).Once()
		tokens.On("CreateOneTimeToken", mock.Anything, mock.MatchedBy(func(tok models.OneTimeToken) bool {
			return tok.Purpose == models.TokenPurposeResetPassword && tok.UserUID == "uid-1"
		})).Return(3, nil).Once()
		notifier.On("PublishEmail", mock.MatchedBy(func(msg models.EmailMessage) bool {
			return msg.Template == models.EmailTemplateReset && msg.Recipient == "user@example.com"
		})).Return(nil).Once()

		svc := newService(users, tokens, new(SubsMock), notifier)
		require.NoError(t, svc.RequestPasswordReset(context.Background(), "user@example.com"))
		tokens.AssertExpectations(t)
		notifier.AssertExpectations(t)
	})
}

func TestService_ConfirmPasswordReset(t *testing.T) {
	validToken := &models.OneTimeToken{
		ID:        5,
		UserUID:   "uid-1",
		Token:     "tok",
		Purpose:   models.TokenPurposeResetPassword,
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}

	t.Run("success updates password hash", func(t *testing.T) {
		users := new(UsersMock)
		tokens := new(TokensMock)
		tokens.On("GetOneTimeToken", mock.Anything, "tok", models.TokenPurposeResetPassword).
			Return(validToken, nil).Once()
		tokens.On("MarkTokenUsed", mock.Anything, 5).Return(nil).Once()
		users.On("UpdatePassword", mock.Anything, "uid-1", mock.MatchedBy(func(hash string) bool {
			return password.CompareHash(hash, "newsecret") == nil
		})).Return(nil).Once()

		svc := newService(users, tokens, new(SubsMock), new(NotifierMock))
		require.NoError(t, svc.ConfirmPasswordReset(context.Background(), "tok", "newsecret"))
		users.AssertExpectations(t)
		tokens.AssertExpectations(t)
	})

	t.Run("invalid token", func(t *testing.T) {
		tokens := new(TokensMock)
		tokens.On("GetOneTimeToken", mock.Anything, "tok", models.TokenPurposeResetPassword).
			Return(nil, storage.ErrNotFound).Once()

		svc := newService(new(UsersMock), tokens, new(SubsMock), new(NotifierMock))
		assert.ErrorIs(t, svc.ConfirmPasswordReset(context.Background(), "tok", "newsecret"), ErrInvalidToken)
	})
}
