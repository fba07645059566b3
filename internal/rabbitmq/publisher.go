package rabbitmq

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"

	"github.com/linkedrite/linkedrite/internal/models"
)

// newEmailPublishing собирает AMQP-сообщение из задания на отправку
// письма. Идентификатор и отметка времени нужны, чтобы отследить
// конкретное письмо в логах сервиса отправки.
func newEmailPublishing(msg models.EmailMessage) (amqp.Publishing, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return amqp.Publishing{}, err
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
	}, nil
}

// PublishEmail публикует задание на отправку письма в обменник
// уведомлений по почтовому ключу маршрутизации.
func PublishEmail(ch *amqp.Channel, msg models.EmailMessage) error {
	const op = "rabbitmq.PublishEmail"

	pub, err := newEmailPublishing(msg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := ch.Publish(Exchange, EmailRoutingKey, false, false, pub); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
