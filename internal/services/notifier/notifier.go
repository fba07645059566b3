// Package notifier публикует почтовые уведомления в RabbitMQ.
package notifier

import (
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/linkedrite/linkedrite/internal/models"
	"github.com/linkedrite/linkedrite/internal/rabbitmq"
)

// Service отправляет письма в очередь уведомлений.
type Service struct {
	ch  *amqp.Channel
	log *slog.Logger
}

// New создает новый экземпляр Service.
func New(ch *amqp.Channel, log *slog.Logger) *Service {
	return &Service{ch: ch, log: log}
}

// PublishEmail публикует письмо в обменник уведомлений.
func (s *Service) PublishEmail(msg models.EmailMessage) error {
	const op = "services.notifier.PublishEmail"

	if err := rabbitmq.PublishEmail(s.ch, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Debug("email message published",
		slog.String("template", msg.Template), slog.String("recipient", msg.Recipient))
	return nil
}
