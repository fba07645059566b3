package models

import "time"

// Plan определяет тариф пользователя.
type Plan string

const (
	// PlanFree — бесплатный тариф с дневным лимитом действий.
	PlanFree Plan = "FREE"
	// PlanPremium — платный тариф без дневного лимита.
	PlanPremium Plan = "PREMIUM"
)

// Valid сообщает, является ли значение известным тарифом.
func (p Plan) Valid() bool {
	return p == PlanFree || p == PlanPremium
}

// Subscription представляет подписку пользователя, не более одной на пользователя.
// Отсутствие строки в хранилище эквивалентно активной FREE‑подписке
// до её материализации.
type Subscription struct {
	UserUID   string     // Владелец подписки
	Plan      Plan       // Тариф: FREE или PREMIUM
	IsActive  bool       // Активна ли подписка
	StartDate time.Time  // Дата начала
	EndDate   *time.Time // Дата окончания, nil — бессрочная
	CreatedAt time.Time
	UpdatedAt time.Time
}
