package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linkedrite/linkedrite/internal/models"
)

// GetSubscription возвращает подписку пользователя или ErrNotFound.
func (s *Storage) GetSubscription(ctx context.Context, userUID string) (*models.Subscription, error) {
	const op = "storage.GetSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT user_uid, plan, is_active, start_date, end_date, created_at, updated_at
			  FROM subscriptions
			  WHERE user_uid = $1`
	return s.scanSubscription(s.DB.QueryRowContext(ctx, query, userUID), op)
}

// GetOrCreateSubscription возвращает подписку пользователя, создавая
// активную FREE‑подписку, если её ещё нет. Конфликт одновременного
// создания разрешается на уровне уникального ограничения user_uid:
// проигравшая вставка ничего не меняет, после чего строка перечитывается.
func (s *Storage) GetOrCreateSubscription(ctx context.Context, userUID string) (*models.Subscription, error) {
	const op = "storage.GetOrCreateSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	insert := `INSERT INTO subscriptions (user_uid, plan, is_active, start_date)
			   VALUES ($1, $2, true, NOW())
			   ON CONFLICT (user_uid) DO NOTHING`
	if _, err := s.DB.ExecContext(ctx, insert, userUID, models.PlanFree); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `SELECT user_uid, plan, is_active, start_date, end_date, created_at, updated_at
			  FROM subscriptions
			  WHERE user_uid = $1`
	return s.scanSubscription(s.DB.QueryRowContext(ctx, query, userUID), op)
}

// SetSubscriptionPlan устанавливает тариф подписки, принудительно активируя её.
// Возвращает обновлённую подписку.
func (s *Storage) SetSubscriptionPlan(ctx context.Context, userUID string, plan models.Plan) (*models.Subscription, error) {
	const op = "storage.SetSubscriptionPlan"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET plan = $1, is_active = true, updated_at = NOW()
			  WHERE user_uid = $2
			  RETURNING user_uid, plan, is_active, start_date, end_date, created_at, updated_at`
	return s.scanSubscription(s.DB.QueryRowContext(ctx, query, plan, userUID), op)
}

func (s *Storage) scanSubscription(row *sql.Row, op string) (*models.Subscription, error) {
	var sub models.Subscription
	var endDate sql.NullTime
	if err := row.Scan(&sub.UserUID, &sub.Plan, &sub.IsActive, &sub.StartDate,
		&endDate, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if endDate.Valid {
		sub.EndDate = &endDate.Time
	}
	return &sub, nil
}
