// Package auth содержит логику бизнес-уровня для регистрации,
// аутентификации, подтверждения почты и восстановления пароля.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/linkedrite/linkedrite/internal/lib/jwt"
	"github.com/linkedrite/linkedrite/internal/lib/password"
	"github.com/linkedrite/linkedrite/internal/lib/sl"
	"github.com/linkedrite/linkedrite/internal/models"
	"github.com/linkedrite/linkedrite/internal/storage"
)

const (
	verifyTokenTTL = 24 * time.Hour
	resetTokenTTL  = time.Hour
)

// Ошибки уровня сервиса, которые обработчики переводят в HTTP-статусы.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrAlreadyVerified    = errors.New("email already verified")
)

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// RegisterUser сохраняет нового пользователя и возвращает его UID.
	RegisterUser(ctx context.Context, user models.User) (string, error)

	// GetUser возвращает пользователя по UID.
	GetUser(ctx context.Context, userUID string) (*models.User, error)

	// GetUserByUsername возвращает пользователя по имени или ошибку, если не найден.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// GetUserByEmail возвращает пользователя по адресу почты.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// MarkEmailVerified помечает почту пользователя подтверждённой.
	MarkEmailVerified(ctx context.Context, userUID string) error

	// UpdatePassword заменяет хэш пароля пользователя.
	UpdatePassword(ctx context.Context, userUID, passwordHash string) error
}

// TokenRepository описывает контракт для одноразовых токенов.
type TokenRepository interface {
	CreateOneTimeToken(ctx context.Context, token models.OneTimeToken) (int, error)
	GetOneTimeToken(ctx context.Context, token, purpose string) (*models.OneTimeToken, error)
	MarkTokenUsed(ctx context.Context, id int) error
	InvalidateUserTokens(ctx context.Context, userUID, purpose string) error
}

// SubscriptionProvider создаёт подписку пользователя при регистрации.
type SubscriptionProvider interface {
	GetOrCreate(ctx context.Context, userUID string) (*models.Subscription, error)
}

// Notifier публикует письма в очередь уведомлений.
type Notifier interface {
	PublishEmail(msg models.EmailMessage) error
}

// Service отвечает за регистрацию, авторизацию и жизненный цикл
// одноразовых токенов.
type Service struct {
	users    UserRepository
	tokens   TokenRepository
	subs     SubscriptionProvider
	notifier Notifier
	jwtMaker jwt.Maker
	log      *slog.Logger

	appDomain string
}

// New создает новый экземпляр Service. appDomain используется для сборки
// ссылок в письмах.
func New(users UserRepository, tokens TokenRepository, subs SubscriptionProvider,
	notifier Notifier, jwtMaker jwt.Maker, log *slog.Logger, appDomain string) *Service {
	return &Service{
		users:     users,
		tokens:    tokens,
		subs:      subs,
		notifier:  notifier,
		jwtMaker:  jwtMaker,
		log:       log,
		appDomain: appDomain,
	}
}

// Register создает нового пользователя с хэшированием пароля и дефолтной
// ролью "user", заводит FREE-подписку и отправляет письмо с подтверждением
// почты. Возвращает JWT для немедленного входа.
func (s *Service) Register(ctx context.Context, email, username, rawPassword, timezone string) (string, error) {
	const op = "services.auth.Register"

	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if timezone == "" {
		timezone = "UTC"
	}
	user := models.User{
		Email:        email,
		Username:     username,
		PasswordHash: hashed,
		Role:         "user", // дефолтная роль при регистрации
		Timezone:     timezone,
		IsActive:     true,
	}

	uid, err := s.users.RegisterUser(ctx, user)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.subs.GetOrCreate(ctx, uid); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	s.sendVerificationEmail(ctx, uid, username, email)

	token, err := s.jwtMaker.GenerateToken(username, user.Role, uid)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return token, nil
}

// Login проверяет пароль пользователя и генерирует JWT.
func (s *Service) Login(ctx context.Context, username, rawPassword string) (token, role string, err error) {
	const op = "services.auth.Login"

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", "", ErrInvalidCredentials
		}
		return "", "", fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return "", "", ErrInvalidCredentials
	}
	token, err = s.jwtMaker.GenerateToken(user.Username, user.Role, user.UID)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}
	return token, user.Role, nil
}

// ValidateToken проверяет JWT и возвращает информацию о пользователе.
func (s *Service) ValidateToken(_ context.Context, token string) (*models.User, error) {
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return &models.User{
		UID:      claims.UserUID,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}

// VerifyEmail подтверждает почту по одноразовому токену. Токен
// одноразовый: повторное использование возвращает ErrInvalidToken.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	const op = "services.auth.VerifyEmail"

	record, err := s.tokens.GetOneTimeToken(ctx, token, models.TokenPurposeVerifyEmail)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if !record.IsValid(time.Now().UTC()) {
		return ErrInvalidToken
	}

	if err := s.tokens.MarkTokenUsed(ctx, record.ID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.users.MarkEmailVerified(ctx, record.UserUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("email verified", slog.String("user_uid", record.UserUID))
	return nil
}

// ResendVerification выпускает новый токен подтверждения почты,
// аннулируя предыдущие.
func (s *Service) ResendVerification(ctx context.Context, userUID string) error {
	const op = "services.auth.ResendVerification"

	user, err := s.users.GetUser(ctx, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if user.EmailVerified {
		return ErrAlreadyVerified
	}

	if err := s.tokens.InvalidateUserTokens(ctx, userUID, models.TokenPurposeVerifyEmail); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.sendVerificationEmail(ctx, userUID, user.Username, user.Email)
	return nil
}

// RequestPasswordReset выпускает токен сброса пароля и отправляет письмо.
// Для неизвестной почты возвращает nil, чтобы не раскрывать, какие адреса
// зарегистрированы.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	const op = "services.auth.RequestPasswordReset"

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.tokens.InvalidateUserTokens(ctx, user.UID, models.TokenPurposeResetPassword); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	token := uuid.NewString()
	record := models.OneTimeToken{
		UserUID:   user.UID,
		Token:     token,
		Purpose:   models.TokenPurposeResetPassword,
		ExpiresAt: time.Now().UTC().Add(resetTokenTTL),
	}
	if _, err := s.tokens.CreateOneTimeToken(ctx, record); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	msg := models.EmailMessage{
		Template:  models.EmailTemplateReset,
		Recipient: user.Email,
		Context: map[string]string{
			"username": user.Username,
			"link":     fmt.Sprintf("%s/api/v1/password-reset/confirm?token=%s", s.appDomain, token),
		},
	}
	if err := s.notifier.PublishEmail(msg); err != nil {
		s.log.Error("failed to publish password reset email", sl.Err(err),
			slog.String("user_uid", user.UID))
	}
	return nil
}

// ConfirmPasswordReset устанавливает новый пароль по действительному
// токену сброса.
func (s *Service) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	const op = "services.auth.ConfirmPasswordReset"

	record, err := s.tokens.GetOneTimeToken(ctx, token, models.TokenPurposeResetPassword)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if !record.IsValid(time.Now().UTC()) {
		return ErrInvalidToken
	}

	hashed, err := password.GetHash(newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.tokens.MarkTokenUsed(ctx, record.ID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.users.UpdatePassword(ctx, record.UserUID, hashed); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("password reset completed", slog.String("user_uid", record.UserUID))
	return nil
}

// sendVerificationEmail выпускает токен подтверждения и публикует письмо.
// Публикация не блокирует регистрацию: отказ брокера только логируется.
func (s *Service) sendVerificationEmail(ctx context.Context, userUID, username, email string) {
	token := uuid.NewString()
	record := models.OneTimeToken{
		UserUID:   userUID,
		Token:     token,
		Purpose:   models.TokenPurposeVerifyEmail,
		ExpiresAt: time.Now().UTC().Add(verifyTokenTTL),
	}
	if _, err := s.tokens.CreateOneTimeToken(ctx, record); err != nil {
		s.log.Error("failed to create verification token", sl.Err(err),
			slog.String("user_uid", userUID))
		return
	}

	msg := models.EmailMessage{
		Template:  models.EmailTemplateVerify,
		Recipient: email,
		Context: map[string]string{
			"username": username,
			"link":     fmt.Sprintf("%s/api/v1/verify-email?token=%s", s.appDomain, token),
		},
	}
	if err := s.notifier.PublishEmail(msg); err != nil {
		s.log.Error("failed to publish verification email", sl.Err(err),
			slog.String("user_uid", userUID))
	}
}
