// Package usagestatus содержит обработчик чтения текущего состояния
// дневной квоты пользователя.
package usagestatus

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/linkedrite/linkedrite/internal/http-server/mware"
	"github.com/linkedrite/linkedrite/internal/http-server/response"
	"github.com/linkedrite/linkedrite/internal/lib/sl"
	"github.com/linkedrite/linkedrite/internal/models"
	"github.com/linkedrite/linkedrite/internal/services/usage"
)

// Service описывает контракт журнала потребления.
type Service interface {
	Statistics(ctx context.Context, user *models.User) (*usage.Status, error)
}

// UserProvider возвращает профиль пользователя по UID.
type UserProvider interface {
	GetUser(ctx context.Context, userUID string) (*models.User, error)
}

// Handler обрабатывает запросы состояния квоты.
type Handler struct {
	log     *slog.Logger
	users   UserProvider
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, users UserProvider, service Service) *Handler {
	return &Handler{log: log, users: users, service: service}
}

// ServeHTTP godoc
// @Summary Состояние дневной квоты
// @Description Возвращает счётчик за текущий локальный день, лимит тарифа и момент следующего сброса.
// @Tags Usage
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Текущее состояние квоты"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /usage [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.usagestatus"

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

	user, err := h.users.GetUser(r.Context(), userUID)
	if err != nil {
		log.Error("failed to load user", sl.Err(err), slog.String("user_uid", userUID))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to load user"))
		return
	}

	status, err := h.service.Statistics(r.Context(), user)
	if err != nil {
		log.Error("failed to read usage status", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to read usage status"))
		return
	}

	data := map[string]any{
		"used":       status.Used,
		"plan":       status.Plan,
		"reset_time": status.ResetTime.Format(time.RFC3339),
	}
	if status.Unlimited {
		data["limit"] = nil
	} else {
		data["limit"] = status.Limit
	}
	render.JSON(w, r, response.StatusOKWithData(data))
}
