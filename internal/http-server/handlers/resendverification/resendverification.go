// Package resendverification содержит обработчик повторной отправки
// письма для подтверждения почты.
package resendverification

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/linkedrite/linkedrite/internal/http-server/mware"
	"github.com/linkedrite/linkedrite/internal/http-server/response"
	"github.com/linkedrite/linkedrite/internal/lib/sl"
	"github.com/linkedrite/linkedrite/internal/services/auth"
)

// Service описывает контракт сервиса подтверждения почты.
type Service interface {
	ResendVerification(ctx context.Context, userUID string) error
}

// Handler обрабатывает запросы повторной отправки письма.
type Handler struct {
	log  *slog.Logger
	auth Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, auth Service) *Handler {
	return &Handler{log: log, auth: auth}
}

// ServeHTTP godoc
// @Summary Повторная отправка письма подтверждения
// @Description Аннулирует прежние токены и отправляет новое письмо для подтверждения почты.
// @Tags Auth
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Письмо отправлено"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 409 {object} response.ErrorResponse "Почта уже подтверждена"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /resend-verification [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.resendverification"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(mware.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.ErrorWithCode(response.CodeUnauthorized, "unauthorized"))
		return
	}

	if err := h.auth.ResendVerification(r.Context(), userUID); err != nil {
		if errors.Is(err, auth.ErrAlreadyVerified) {
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, response.Error("email already verified"))
			return
		}
		log.Error("failed to resend verification", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to resend verification email"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"message": "verification email sent",
	}))
}
