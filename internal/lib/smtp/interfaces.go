// Package smtp отправляет письма через внешний SMTP-сервер.
package smtp

import "io"

// Client покрывает подмножество методов *smtp.Client, нужное для
// отправки одного письма.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// TransportInterface абстрагирует установку SMTP-соединения,
// чтобы сервис отправки можно было тестировать без сети.
type TransportInterface interface {
	Connect() (Client, error)
	GetSMTPUser() string
}
