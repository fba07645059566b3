package resetrequest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type ServiceMock struct{ mock.Mock }

func (m *ServiceMock) RequestPasswordReset(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMocks     func(s *ServiceMock)
		wantStatusCode int
	}{
		{
			name: "known email",
			body: `{"email": "user1@test.com"}`,
			setupMocks: func(s *ServiceMock) {
				s.On("RequestPasswordReset", mock.Anything, "user1@test.com").Return(nil).Once()
			},
			wantStatusCode: http.StatusOK,
		},
		{
			// Сервис молчит о неизвестной почте, ответ тот же.
			name: "unknown email",
			body: `{"email": "nobody@test.com"}`,
			setupMocks: func(s *ServiceMock) {
				s.On("RequestPasswordReset", mock.Anything, "nobody@test.com").Return(nil).Once()
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "malformed json",
			body:           `{"email": `,
			setupMocks:     func(_ *ServiceMock) {},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "invalid email",
			body:           `{"email": "not-an-email"}`,
			setupMocks:     func(_ *ServiceMock) {},
			wantStatusCode: http.StatusUnprocessableEntity,
		},
		{
			name: "service error",
			body: `{"email": "user1@test.com"}`,
			setupMocks: func(s *ServiceMock) {
				s.On("RequestPasswordReset", mock.Anything, "user1@test.com").Return(errors.New("broker down")).Once()
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			tt.setupMocks(svc)

			handler := New(newNoopLogger(), svc)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/password-reset", bytes.NewBufferString(tt.body))
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatusCode, rr.Code)
			svc.AssertExpectations(t)
		})
	}
}
