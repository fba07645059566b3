package models

// EmailMessage представляет задание на отправку письма, публикуемое
// в очередь уведомлений. Доставка выполняется отдельным сервисом,
// ошибки доставки не влияют на основной запрос.
type EmailMessage struct {
	Template  string            `json:"template"` // verify_email, reset_password
	Recipient string            `json:"recipient"`
	Context   map[string]string `json:"context"` // Подстановки шаблона: username, link и пр.
}

// Шаблоны писем, известные сервису отправки.
const (
	EmailTemplateVerify = "verify_email"
	EmailTemplateReset  = "reset_password"
)
