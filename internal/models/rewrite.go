package models

// RewriteRequest — входные данные запроса на переписывание поста.
// Имена полей повторяют формат браузерного расширения.
type RewriteRequest struct {
	PostInput   string `json:"postInput" validate:"required"`
	EmojiNeeded bool   `json:"emojiNeeded"`
	HtagNeeded  bool   `json:"htagNeeded"`
}

// RewriteResult — переписанный текст вместе с состоянием квоты
// после списания попытки.
type RewriteResult struct {
	Text      string
	Used      int
	Limit     int
	Unlimited bool
}
