package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/linkedrite/linkedrite/internal/models"
)

// CreateOneTimeToken сохраняет одноразовый токен и возвращает его ID.
func (s *Storage) CreateOneTimeToken(ctx context.Context, token models.OneTimeToken) (int, error) {
	const op = "storage.CreateOneTimeToken"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO one_time_tokens (user_uid, token, purpose, expires_at)
			  VALUES ($1, $2, $3, $4)
			  RETURNING id`
	var newID int
	if err := s.DB.QueryRowContext(ctx, query,
		token.UserUID, token.Token, token.Purpose, token.ExpiresAt.UTC()).Scan(&newID); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetOneTimeToken возвращает токен по значению и назначению или ErrNotFound.
func (s *Storage) GetOneTimeToken(ctx context.Context, token, purpose string) (*models.OneTimeToken, error) {
	const op = "storage.GetOneTimeToken"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, token, purpose, expires_at, is_used, created_at
			  FROM one_time_tokens
			  WHERE token = $1 AND purpose = $2`
	row := s.DB.QueryRowContext(ctx, query, token, purpose)

	var result models.OneTimeToken
	if err := row.Scan(&result.ID, &result.UserUID, &result.Token, &result.Purpose,
		&result.ExpiresAt, &result.IsUsed, &result.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	result.ExpiresAt = result.ExpiresAt.UTC()
	return &result, nil
}

// MarkTokenUsed отмечает токен использованным.
func (s *Storage) MarkTokenUsed(ctx context.Context, id int) error {
	const op = "storage.MarkTokenUsed"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE one_time_tokens SET is_used = true WHERE id = $1`
	if _, err := s.DB.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// InvalidateUserTokens отмечает использованными все действующие токены
// пользователя с данным назначением. Вызывается перед выпуском нового токена.
func (s *Storage) InvalidateUserTokens(ctx context.Context, userUID, purpose string) error {
	const op = "storage.InvalidateUserTokens"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE one_time_tokens
			  SET is_used = true
			  WHERE user_uid = $1 AND purpose = $2 AND is_used = false`
	if _, err := s.DB.ExecContext(ctx, query, userUID, purpose); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// PurgeExpiredTokens удаляет токены, истёкшие раньше отметки before.
// Возвращает количество удалённых строк.
func (s *Storage) PurgeExpiredTokens(ctx context.Context, before time.Time) (int, error) {
	const op = "storage.PurgeExpiredTokens"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM one_time_tokens WHERE expires_at < $1`
	result, err := s.DB.ExecContext(ctx, query, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}
