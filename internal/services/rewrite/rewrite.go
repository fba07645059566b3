// Package rewrite оркестрирует переписывание поста: списание попытки,
// вызов внешнего сервиса генерации и возврат попытки при его отказе.
package rewrite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linkedrite/linkedrite/internal/completion"
	"github.com/linkedrite/linkedrite/internal/lib/sl"
	"github.com/linkedrite/linkedrite/internal/metrics"
	"github.com/linkedrite/linkedrite/internal/models"
	"github.com/linkedrite/linkedrite/internal/services/usage"
)

// Generator описывает контракт внешнего сервиса генерации текста.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Ledger списывает и возвращает попытки дневной квоты.
type Ledger interface {
	TryConsume(ctx context.Context, user *models.User) (*usage.Consumption, error)
	Refund(ctx context.Context, userUID string, date time.Time) error
}

// Service реализует бизнес-логику переписывания постов.
type Service struct {
	gen    Generator
	ledger Ledger
	log    *slog.Logger
}

// New создает новый экземпляр Service.
func New(gen Generator, ledger Ledger, log *slog.Logger) *Service {
	return &Service{gen: gen, ledger: ledger, log: log}
}

// Rewrite списывает попытку, вызывает генерацию и возвращает текст.
// Попытка списывается до обращения к внешнему сервису, при его отказе
// она возвращается, так что неудачные запросы квоту не тратят.
func (s *Service) Rewrite(ctx context.Context, user *models.User, req models.RewriteRequest) (*models.RewriteResult, error) {
	const op = "services.rewrite.Rewrite"

	cons, err := s.ledger.TryConsume(ctx, user)
	if err != nil {
		var quotaErr *usage.QuotaExceededError
		if errors.As(err, &quotaErr) {
			metrics.QuotaDeniedTotal.Inc()
		}
		return nil, err
	}

	prompt := completion.BuildPrompt(req.PostInput, req.EmojiNeeded, req.HtagNeeded)
	text, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		var genErr *completion.Error
		if errors.As(err, &genErr) {
			metrics.CompletionFailuresTotal.WithLabelValues(string(genErr.Kind)).Inc()
		}
		if refundErr := s.ledger.Refund(ctx, user.UID, cons.Date); refundErr != nil {
			s.log.Error("failed to refund usage after completion failure", sl.Err(refundErr),
				slog.String("user_uid", user.UID))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	metrics.RewritesTotal.Inc()
	s.log.Info("post rewritten",
		slog.String("user_uid", user.UID),
		slog.Int("used", cons.Used),
		slog.Bool("unlimited", cons.Unlimited))

	return &models.RewriteResult{
		Text:      text,
		Used:      cons.Used,
		Limit:     cons.Limit,
		Unlimited: cons.Unlimited,
	}, nil
}
