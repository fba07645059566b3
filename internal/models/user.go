// Package models содержит доменные структуры сервиса: пользователя,
// подписку и запись дневного использования. Все даты хранятся в time.Time,
// структуры используются в бизнес‑логике и при работе с хранилищем.
package models

import "time"

// User представляет зарегистрированного пользователя системы.
type User struct {
	UID           string // Уникальный идентификатор пользователя
	Email         string // Электронная почта (уникальная)
	Username      string // Имя пользователя (уникальное)
	PasswordHash  string // Хэш пароля пользователя
	Role          string // Роль пользователя, admin или user
	Timezone      string // Часовой пояс IANA, задаёт границу суток для лимитов
	EmailVerified bool   // Подтверждена ли почта
	IsActive      bool   // Активна ли учётная запись
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Location возвращает часовой пояс пользователя. Пустое или некорректное
// значение трактуется как UTC, чтобы битые данные профиля не ломали учёт лимитов.
func (u *User) Location() *time.Location {
	if u.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
