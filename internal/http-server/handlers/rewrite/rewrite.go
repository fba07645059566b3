// Package rewrite содержит обработчик переписывания поста — основную
// платную операцию сервиса.
package rewrite

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"unicode/utf8"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/linkedrite/linkedrite/internal/completion"
	"github.com/linkedrite/linkedrite/internal/http-server/mware"
	"github.com/linkedrite/linkedrite/internal/http-server/response"
	"github.com/linkedrite/linkedrite/internal/lib/sl"
	"github.com/linkedrite/linkedrite/internal/models"
	"github.com/linkedrite/linkedrite/internal/services/usage"
)

// Service описывает контракт сервиса переписывания.
type Service interface {
	Rewrite(ctx context.Context, user *models.User, req models.RewriteRequest) (*models.RewriteResult, error)
}

// UserProvider возвращает профиль пользователя по UID. Нужен для
// часового пояса, от которого зависит текущий день квоты.
type UserProvider interface {
	GetUser(ctx context.Context, userUID string) (*models.User, error)
}

// Handler обрабатывает запросы переписывания постов.
type Handler struct {
	log      *slog.Logger
	users    UserProvider
	service  Service
	validate *validator.Validate

	minPostLength int
}

// New создает новый экземпляр Handler. minPostLength — минимальная
// длина исходного поста в символах.
func New(log *slog.Logger, users UserProvider, service Service, minPostLength int) *Handler {
	return &Handler{
		log:           log,
		users:         users,
		service:       service,
		validate:      validator.New(),
		minPostLength: minPostLength,
	}
}

// usageView — состояние квоты в теле ответа. Limit равен null для
// безлимитного тарифа.
type usageView struct {
	Used  int  `json:"used"`
	Limit *int `json:"limit"`
}

// ServeHTTP godoc
// @Summary Переписать пост
// @Description Переписывает текст поста через внешний сервис генерации. Списывает одну попытку дневной квоты.
// @Tags Rewrite
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.RewriteRequest true "Исходный пост и флаги оформления"
// @Success 200 {object} map[string]any "Переписанный текст и состояние квоты"
// @Failure 400 {object} response.ErrorResponse "Слишком короткий пост или некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 429 {object} response.ErrorResponse "Дневной лимит исчерпан"
// @Failure 502 {object} response.ErrorResponse "Внешний сервис генерации недоступен"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /rewrite [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.rewrite"

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

	var req models.RewriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ErrorWithCode(response.CodeInvalidInput, "invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	if utf8.RuneCountInString(req.PostInput) < h.minPostLength {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ErrorWithCode(response.CodeInvalidInput,
			"The length of the post is too short."))
		return
	}

	user, err := h.users.GetUser(r.Context(), userUID)
	if err != nil {
		log.Error("failed to load user", sl.Err(err), slog.String("user_uid", userUID))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to load user"))
		return
	}

	result, err := h.service.Rewrite(r.Context(), user, req)
	if err != nil {
		var quotaErr *usage.QuotaExceededError
		if errors.As(err, &quotaErr) {
			render.Status(r, http.StatusTooManyRequests)
			render.JSON(w, r, response.QuotaExceeded(quotaErr.Limit))
			return
		}
		var genErr *completion.Error
		if errors.As(err, &genErr) {
			log.Error("completion service failed", sl.Err(err),
				slog.String("kind", string(genErr.Kind)))
			render.Status(r, http.StatusBadGateway)
			render.JSON(w, r, response.ErrorWithCode(response.CodeUpstream,
				"failed to generate rewritten post"))
			return
		}
		log.Error("rewrite failed", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to rewrite post"))
		return
	}

	view := usageView{Used: result.Used}
	if !result.Unlimited {
		limit := result.Limit
		view.Limit = &limit
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"text":  result.Text,
		"usage": view,
	}))
}
