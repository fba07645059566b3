// Package usagehistory содержит обработчик чтения истории потребления
// за последние дни.
package usagehistory

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/linkedrite/linkedrite/internal/http-server/mware"
	"github.com/linkedrite/linkedrite/internal/http-server/response"
	"github.com/linkedrite/linkedrite/internal/lib/sl"
	"github.com/linkedrite/linkedrite/internal/models"
)

const defaultLimit = 30

// Service описывает контракт журнала потребления.
type Service interface {
	History(ctx context.Context, userUID string, limit int) ([]*models.UsageRecord, error)
}

// Handler обрабатывает запросы истории потребления.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

type dayView struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// ServeHTTP godoc
// @Summary История потребления
// @Description Возвращает счётчики потребления за последние дни, от новых к старым.
// @Tags Usage
// @Produce  json
// @Security BearerAuth
// @Param limit query int false "Максимум записей (по умолчанию 30)"
// @Success 200 {object} map[string]any "Список дней со счётчиками"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /usage/history [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.usagehistory"

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

	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ErrorWithCode(response.CodeInvalidInput, "invalid limit"))
			return
		}
		limit = parsed
	}

	records, err := h.service.History(r.Context(), userUID, limit)
	if err != nil {
		log.Error("failed to read usage history", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to read usage history"))
		return
	}

	days := make([]dayView, 0, len(records))
	for _, rec := range records {
		days = append(days, dayView{
			Date:  rec.Date.Format(time.DateOnly),
			Count: rec.Count,
		})
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"days": days,
	}))
}
