package rabbit

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rabbitmq/amqp091-go"

	"food-order-service/internal/dto"
)

const OrderEventsExchange = "order_events"

// Publisher publica eventos de órdenes en un exchange fanout. Los consumen
// el delivery-service y el notification-service.
type Publisher struct {
	mu sync.Mutex
	ch *amqp091.Channel
}

func NewPublisher(ch *amqp091.Channel) (*Publisher, error) {
	err := ch.ExchangeDeclare(
		OrderEventsExchange,
		amqp091.ExchangeFanout,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, err
	}
	return &Publisher{ch: ch}, nil
}

func (p *Publisher) Publish(ctx context.Context, evt dto.OrderEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ch.PublishWithContext(ctx,
		OrderEventsExchange,
		evt.Event, // fanout ignora routing key, queda como metadato
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    evt.OrderID,
			Timestamp:    evt.OccurredAt,
			Type:         evt.Event,
			Body:         body,
		},
	)
}
