package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/linkedrite/linkedrite/internal/models"
)

// ErrLimitReached возвращается TryConsumeUsage, когда дневной лимит исчерпан.
var ErrLimitReached = errors.New("daily limit reached")

const dateLayout = "2006-01-02"

// GetOrCreateUsageRecord возвращает запись использования за локальную дату date,
// создавая её с нулевым счётчиком и моментом сброса resetTime, если её нет.
// Одновременные первые запросы дня дают ровно одну строку: проигравшая
// вставка поглощается уникальным ограничением (user_uid, date).
func (s *Storage) GetOrCreateUsageRecord(ctx context.Context, userUID string, date time.Time, resetTime time.Time) (*models.UsageRecord, error) {
	const op = "storage.GetOrCreateUsageRecord"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	insert := `INSERT INTO usage_records (user_uid, date, count, reset_time)
			   VALUES ($1, $2, 0, $3)
			   ON CONFLICT (user_uid, date) DO NOTHING`
	if _, err := s.DB.ExecContext(ctx, insert, userUID, date.Format(dateLayout), resetTime.UTC()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.GetUsageRecord(ctx, userUID, date)
}

// GetUsageRecord возвращает запись использования за локальную дату date или ErrNotFound.
func (s *Storage) GetUsageRecord(ctx context.Context, userUID string, date time.Time) (*models.UsageRecord, error) {
	const op = "storage.GetUsageRecord"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT user_uid, date, count, reset_time, created_at
			  FROM usage_records
			  WHERE user_uid = $1 AND date = $2`
	row := s.DB.QueryRowContext(ctx, query, userUID, date.Format(dateLayout))

	var rec models.UsageRecord
	if err := row.Scan(&rec.UserUID, &rec.Date, &rec.Count, &rec.ResetTime, &rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rec.ResetTime = rec.ResetTime.UTC()
	return &rec, nil
}

// IncrementUsage безусловно увеличивает счётчик записи на единицу
// и возвращает новое значение.
func (s *Storage) IncrementUsage(ctx context.Context, userUID string, date time.Time) (int, error) {
	const op = "storage.IncrementUsage"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE usage_records
			  SET count = count + 1
			  WHERE user_uid = $1 AND date = $2
			  RETURNING count`
	var count int
	if err := s.DB.QueryRowContext(ctx, query, userUID, date.Format(dateLayout)).Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// TryConsumeUsage атомарно списывает одно действие, если счётчик ещё
// меньше limit. Проверка и инкремент выполняются одним условным UPDATE,
// поэтому одновременные запросы не могут превысить лимит. При исчерпании
// лимита возвращает ErrLimitReached.
func (s *Storage) TryConsumeUsage(ctx context.Context, userUID string, date time.Time, limit int) (int, error) {
	const op = "storage.TryConsumeUsage"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE usage_records
			  SET count = count + 1
			  WHERE user_uid = $1 AND date = $2 AND count < $3
			  RETURNING count`
	var count int
	if err := s.DB.QueryRowContext(ctx, query, userUID, date.Format(dateLayout), limit).Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%s: %w", op, ErrLimitReached)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// RefundUsage возвращает одно ранее списанное действие. Используется,
// когда внешняя генерация завершилась ошибкой и списание нужно отменить.
// Счётчик не опускается ниже нуля.
func (s *Storage) RefundUsage(ctx context.Context, userUID string, date time.Time) (int, error) {
	const op = "storage.RefundUsage"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE usage_records
			  SET count = GREATEST(count - 1, 0)
			  WHERE user_uid = $1 AND date = $2
			  RETURNING count`
	var count int
	if err := s.DB.QueryRowContext(ctx, query, userUID, date.Format(dateLayout)).Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// ListUsageHistory возвращает записи использования пользователя,
// отсортированные по убыванию даты, с ограничением количества.
func (s *Storage) ListUsageHistory(ctx context.Context, userUID string, limit int) ([]*models.UsageRecord, error) {
	const op = "storage.ListUsageHistory"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT user_uid, date, count, reset_time, created_at
			  FROM usage_records
			  WHERE user_uid = $1
			  ORDER BY date DESC
			  LIMIT $2`
	rows, err := s.DB.QueryContext(ctx, query, userUID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.UsageRecord
	for rows.Next() {
		var rec models.UsageRecord
		if err := rows.Scan(&rec.UserUID, &rec.Date, &rec.Count, &rec.ResetTime, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		rec.ResetTime = rec.ResetTime.UTC()
		result = append(result, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
