package models

import "time"

// Назначение одноразового токена.
const (
	// TokenPurposeVerifyEmail — подтверждение электронной почты.
	TokenPurposeVerifyEmail = "verify_email"
	// TokenPurposeResetPassword — сброс пароля.
	TokenPurposeResetPassword = "reset_password"
)

// OneTimeToken представляет одноразовый токен для подтверждения почты
// или сброса пароля. Токен действителен, пока не использован и не истёк.
type OneTimeToken struct {
	ID        int
	UserUID   string
	Token     string // UUID, отправляется пользователю в ссылке
	Purpose   string // verify_email или reset_password
	ExpiresAt time.Time
	IsUsed    bool
	CreatedAt time.Time
}

// IsValid сообщает, можно ли использовать токен в момент now.
func (t *OneTimeToken) IsValid(now time.Time) bool {
	return !t.IsUsed && now.Before(t.ExpiresAt)
}
