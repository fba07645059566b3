package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"
)

// Exchange — обменник уведомлений сервиса.
const Exchange = "notifications"

// EmailQueue и EmailRoutingKey — очередь заданий на отправку писем.
const (
	EmailQueue      = "notifications.email"
	EmailRoutingKey = "email"
)

// SetupChannel открывает канал, объявляет обменник и почтовую очередь.
func SetupChannel(conn *amqp.Connection) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		return nil, fmt.Errorf("%s: failed to set QoS: %w", op, err)
	}
	err = ch.ExchangeDeclare(
		Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	_, err = ch.QueueDeclare(
		EmailQueue,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	err = ch.QueueBind(EmailQueue, EmailRoutingKey, Exchange, false, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ch, nil
}
