// Package usage реализует журнал дневного потребления: запись на
// локальный день пользователя, момент сброса в его часовом поясе и
// атомарное списание попытки с учётом лимита тарифа.
package usage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linkedrite/linkedrite/internal/models"
	"github.com/linkedrite/linkedrite/internal/storage"
)

// Repository определяет методы для работы с записями потребления в хранилище.
type Repository interface {
	GetOrCreateUsageRecord(ctx context.Context, userUID string, date, resetTime time.Time) (*models.UsageRecord, error)
	IncrementUsage(ctx context.Context, userUID string, date time.Time) (int, error)
	TryConsumeUsage(ctx context.Context, userUID string, date time.Time, limit int) (int, error)
	RefundUsage(ctx context.Context, userUID string, date time.Time) (int, error)
	ListUsageHistory(ctx context.Context, userUID string, limit int) ([]*models.UsageRecord, error)
}

// SubscriptionProvider отдаёт подписку пользователя и её дневной лимит.
type SubscriptionProvider interface {
	GetOrCreate(ctx context.Context, userUID string) (*models.Subscription, error)
	DailyLimit(sub *models.Subscription) (int, bool)
}

// QuotaExceededError возвращается при исчерпанном дневном лимите.
type QuotaExceededError struct {
	Limit int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily quota of %d exceeded", e.Limit)
}

// Consumption описывает результат списания одной попытки.
type Consumption struct {
	Used      int
	Limit     int
	Unlimited bool
	Date      time.Time
}

// Status — текущее состояние квоты пользователя.
type Status struct {
	Used      int
	Limit     int
	Unlimited bool
	Plan      models.Plan
	ResetTime time.Time
}

// Service реализует бизнес-логику журнала потребления.
type Service struct {
	repo Repository
	subs SubscriptionProvider
	log  *slog.Logger

	now func() time.Time
}

// New создает новый экземпляр Service.
func New(repo Repository, subs SubscriptionProvider, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		subs: subs,
		log:  log,
		now:  time.Now,
	}
}

// localDay возвращает локальную дату пользователя и момент следующей
// локальной полуночи в UTC. Дата кодируется полуночью UTC, чтобы слой
// хранения сравнивал только календарный день.
func localDay(now time.Time, loc *time.Location) (date, reset time.Time) {
	localNow := now.In(loc)
	y, m, d := localNow.Date()
	date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	next := localNow.AddDate(0, 0, 1)
	ny, nm, nd := next.Date()
	reset = time.Date(ny, nm, nd, 0, 0, 0, 0, loc).UTC()
	return date, reset
}

// GetOrCreateToday возвращает запись потребления на текущий локальный
// день пользователя, создавая её при отсутствии. Если найденная запись
// уже просрочена (reset_time в прошлом), день вычисляется заново и
// создаётся свежая запись.
func (s *Service) GetOrCreateToday(ctx context.Context, user *models.User) (*models.UsageRecord, error) {
	const op = "services.usage.GetOrCreateToday"

	loc := user.Location()
	now := s.now().UTC()
	date, reset := localDay(now, loc)

	rec, err := s.repo.GetOrCreateUsageRecord(ctx, user.UID, date, reset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if rec.Expired(s.now().UTC()) {
		// Запись пережила свой момент сброса, часы успели перейти
		// через локальную полночь между вычислением и чтением.
		date, reset = localDay(s.now().UTC(), loc)
		rec, err = s.repo.GetOrCreateUsageRecord(ctx, user.UID, date, reset)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	return rec, nil
}

// CanUse сообщает, доступна ли пользователю ещё хотя бы одна попытка
// сегодня. Подписка создаётся лениво, если её ещё нет.
func (s *Service) CanUse(ctx context.Context, user *models.User) (bool, error) {
	const op = "services.usage.CanUse"

	rec, err := s.GetOrCreateToday(ctx, user)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	sub, err := s.subs.GetOrCreate(ctx, user.UID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	limit, unlimited := s.subs.DailyLimit(sub)
	if unlimited {
		return true, nil
	}
	return rec.Count < limit, nil
}

// Increment безусловно увеличивает счётчик текущего дня на единицу и
// возвращает новое значение. Лимит не проверяется: для проверки и
// списания одним шагом используется TryConsume.
func (s *Service) Increment(ctx context.Context, user *models.User) (int, error) {
	const op = "services.usage.Increment"

	rec, err := s.GetOrCreateToday(ctx, user)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	count, err := s.repo.IncrementUsage(ctx, user.UID, rec.Date)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// TryConsume атомарно списывает одну попытку текущего дня. Проверка
// лимита и инкремент выполняются одним UPDATE в хранилище, поэтому два
// конкурентных запроса не могут потратить одну оставшуюся попытку
// дважды. При исчерпанном лимите возвращается *QuotaExceededError.
func (s *Service) TryConsume(ctx context.Context, user *models.User) (*Consumption, error) {
	const op = "services.usage.TryConsume"

	rec, err := s.GetOrCreateToday(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sub, err := s.subs.GetOrCreate(ctx, user.UID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	limit, unlimited := s.subs.DailyLimit(sub)
	if unlimited {
		count, err := s.repo.IncrementUsage(ctx, user.UID, rec.Date)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return &Consumption{Used: count, Unlimited: true, Date: rec.Date}, nil
	}

	count, err := s.repo.TryConsumeUsage(ctx, user.UID, rec.Date, limit)
	if err != nil {
		if errors.Is(err, storage.ErrLimitReached) {
			s.log.Info("daily quota exceeded",
				slog.String("user_uid", user.UID), slog.Int("limit", limit))
			return nil, &QuotaExceededError{Limit: limit}
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Consumption{Used: count, Limit: limit, Date: rec.Date}, nil
}

// Refund возвращает списанную попытку после неудачного действия.
// Счётчик не опускается ниже нуля.
func (s *Service) Refund(ctx context.Context, userUID string, date time.Time) error {
	const op = "services.usage.Refund"

	if _, err := s.repo.RefundUsage(ctx, userUID, date); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Statistics возвращает текущее состояние квоты пользователя: счётчик
// за сегодня, лимит тарифа и момент следующего сброса.
func (s *Service) Statistics(ctx context.Context, user *models.User) (*Status, error) {
	const op = "services.usage.Statistics"

	rec, err := s.GetOrCreateToday(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sub, err := s.subs.GetOrCreate(ctx, user.UID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	limit, unlimited := s.subs.DailyLimit(sub)
	return &Status{
		Used:      rec.Count,
		Limit:     limit,
		Unlimited: unlimited,
		Plan:      sub.Plan,
		ResetTime: rec.ResetTime,
	}, nil
}

// History возвращает последние записи потребления пользователя,
// отсортированные от новых к старым.
func (s *Service) History(ctx context.Context, userUID string, limit int) ([]*models.UsageRecord, error) {
	const op = "services.usage.History"

	records, err := s.repo.ListUsageHistory(ctx, userUID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return records, nil
}
