// Package verifyemail содержит обработчик подтверждения почты по
// одноразовому токену из письма.
package verifyemail

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/linkedrite/linkedrite/internal/http-server/response"
	"github.com/linkedrite/linkedrite/internal/lib/sl"
	"github.com/linkedrite/linkedrite/internal/services/auth"
)

// Service описывает контракт сервиса подтверждения почты.
type Service interface {
	VerifyEmail(ctx context.Context, token string) error
}

// Handler обрабатывает переход по ссылке из письма.
type Handler struct {
	log  *slog.Logger
	auth Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, auth Service) *Handler {
	return &Handler{log: log, auth: auth}
}

// ServeHTTP godoc
// @Summary Подтверждение почты
// @Description Подтверждает адрес почты по одноразовому токену из письма.
// @Tags Auth
// @Produce  json
// @Param token query string true "Одноразовый токен из письма"
// @Success 200 {object} map[string]any "Почта подтверждена"
// @Failure 400 {object} response.ErrorResponse "Токен отсутствует или недействителен"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /verify-email [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.verifyemail"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	token := r.URL.Query().Get("token")
	if token == "" {
		log.Error("missing token query parameter")
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ErrorWithCode(response.CodeInvalidInput, "missing token"))
		return
	}

	if err := h.auth.VerifyEmail(r.Context(), token); err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			log.Info("invalid verification token")
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ErrorWithCode(response.CodeInvalidInput, "invalid or expired token"))
			return
		}
		log.Error("email verification failed", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to verify email"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"message": "email verified successfully",
	}))
}
