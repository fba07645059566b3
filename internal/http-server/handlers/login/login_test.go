package login

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/linkedrite/linkedrite/internal/services/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type ServiceMock struct{ mock.Mock }

func (m *ServiceMock) Login(ctx context.Context, username, password string) (string, string, error) {
	args := m.Called(ctx, username, password)
	return args.String(0), args.String(1), args.Error(2)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    any
		setupMocks     func(s *ServiceMock)
		wantStatusCode int
		wantContains   string
	}{
		{
			name:        "valid login",
			requestBody: Request{Username: "user1", Password: "password123"},
			setupMocks: func(s *ServiceMock) {
				s.On("Login", mock.Anything, "user1", "password123").
					Return("jwt-token", "user", nil).Once()
			},
			wantStatusCode: http.StatusOK,
			wantContains:   "jwt-token",
		},
		{
			name:        "invalid credentials",
			requestBody: Request{Username: "user1", Password: "wrongpass"},
			setupMocks: func(s *ServiceMock) {
				s.On("Login", mock.Anything, "user1", "wrongpass").
					Return("", "", auth.ErrInvalidCredentials).Once()
			},
			wantStatusCode: http.StatusUnauthorized,
			wantContains:   "invalid credentials",
		},
		{
			name:           "missing password",
			requestBody:    Request{Username: "user1"},
			setupMocks:     func(_ *ServiceMock) {},
			wantStatusCode: http.StatusUnprocessableEntity,
		},
		{
			name:           "malformed json",
			requestBody:    "{not-json",
			setupMocks:     func(_ *ServiceMock) {},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:        "service error",
			requestBody: Request{Username: "user1", Password: "password123"},
			setupMocks: func(s *ServiceMock) {
				s.On("Login", mock.Anything, "user1", "password123").
					Return("", "", errors.New("db error")).Once()
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			tt.setupMocks(svc)

			handler := New(newNoopLogger(), svc)

			var buf bytes.Buffer
			if s, ok := tt.requestBody.(string); ok {
				buf.WriteString(s)
			} else {
				require.NoError(t, json.NewEncoder(&buf).Encode(tt.requestBody))
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/login", &buf)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatusCode, rr.Code)
			if tt.wantContains != "" {
				assert.Contains(t, rr.Body.String(), tt.wantContains)
			}
			svc.AssertExpectations(t)
		})
	}
}
