package models

import "time"

// UsageRecord представляет счётчик действий пользователя за один
// календарный день в его часовом поясе. Date хранит локальную дату,
// ResetTime — момент UTC, после которого запись считается устаревшей
// (местная полночь следующего дня). Строки уникальны по (user_uid, date),
// счётчик в пределах записи только растёт.
type UsageRecord struct {
	UserUID   string    // Владелец записи
	Date      time.Time // Локальная календарная дата (компонент даты)
	Count     int       // Количество выполненных действий
	ResetTime time.Time // Момент UTC, когда запись теряет актуальность
	CreatedAt time.Time
}

// Expired сообщает, устарела ли запись к моменту now.
func (r *UsageRecord) Expired(now time.Time) bool {
	return !now.Before(r.ResetTime)
}
