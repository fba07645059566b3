// Package subscription реализует реестр подписок: ленивое создание
// FREE‑подписки при первом обращении, вычисление дневного лимита тарифа
// и административную смену тарифа. Чтения кешируются.
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/linkedrite/linkedrite/internal/models"
)

// Repository определяет методы для работы с подписками в хранилище.
type Repository interface {
	// GetOrCreateSubscription возвращает подписку, создавая активную FREE при отсутствии.
	GetOrCreateSubscription(ctx context.Context, userUID string) (*models.Subscription, error)
	// SetSubscriptionPlan устанавливает тариф и активирует подписку.
	SetSubscriptionPlan(ctx context.Context, userUID string, plan models.Plan) (*models.Subscription, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(key string, value any, expiration time.Duration) error
	// Invalidate удаляет значение из кеша по ключу.
	Invalidate(key string) error
}

// Service реализует бизнес-логику реестра подписок.
type Service struct {
	repo  Repository
	cache Cache
	log   *slog.Logger

	freeDailyLimit int
	gateOnActive   bool
}

// New создает новый экземпляр Service. freeDailyLimit — дневной лимит
// тарифа FREE, gateOnActive определяет, учитывается ли is_active при
// вычислении безлимитности PREMIUM.
func New(repo Repository, cache Cache, log *slog.Logger, freeDailyLimit int, gateOnActive bool) *Service {
	return &Service{
		repo:           repo,
		cache:          cache,
		log:            log,
		freeDailyLimit: freeDailyLimit,
		gateOnActive:   gateOnActive,
	}
}

func cacheKey(userUID string) string {
	return fmt.Sprintf("subscription:%s", userUID)
}

// GetOrCreate возвращает подписку пользователя, создавая активную FREE,
// если строки ещё нет. Единственная точка чтения подписки: все проверки
// лимитов проходят через неё, чтобы правило "отсутствие строки — это FREE"
// применялось одинаково.
func (s *Service) GetOrCreate(ctx context.Context, userUID string) (*models.Subscription, error) {
	var cached models.Subscription
	key := cacheKey(userUID)
	found, err := s.cache.Get(key, &cached)
	if err != nil {
		s.log.Warn("failed to read subscription cache", slog.String("key", key), slog.Any("err", err))
	}
	if found {
		return &cached, nil
	}

	sub, err := s.repo.GetOrCreateSubscription(ctx, userUID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(key, sub, time.Hour); err != nil {
		s.log.Warn("failed to cache subscription", slog.String("key", key), slog.Any("err", err))
	}
	return sub, nil
}

// DailyLimit возвращает дневной лимит действий подписки.
// Второе значение true означает безлимит (активный PREMIUM).
func (s *Service) DailyLimit(sub *models.Subscription) (int, bool) {
	if sub.Plan == models.PlanPremium {
		if !s.gateOnActive || sub.IsActive {
			return 0, true
		}
	}
	return s.freeDailyLimit, false
}

// SetPlan устанавливает тариф подписки, принудительно активируя её.
// Административная операция, недоступная из пользовательского пути.
func (s *Service) SetPlan(ctx context.Context, userUID string, plan models.Plan) (*models.Subscription, error) {
	// Подписка могла ещё не материализоваться.
	if _, err := s.repo.GetOrCreateSubscription(ctx, userUID); err != nil {
		return nil, err
	}

	sub, err := s.repo.SetSubscriptionPlan(ctx, userUID, plan)
	if err != nil {
		return nil, err
	}
	s.log.Info("subscription plan changed",
		slog.String("user_uid", userUID), slog.String("plan", string(plan)))

	key := cacheKey(userUID)
	if err := s.cache.Invalidate(key); err != nil {
		s.log.Warn("failed to invalidate subscription cache", slog.String("key", key), slog.Any("err", err))
	}
	if err := s.cache.Set(key, sub, time.Hour); err != nil {
		s.log.Warn("failed to cache subscription", slog.String("key", key), slog.Any("err", err))
	}
	return sub, nil
}
