// setup.go
package rabbit

import (
	"context"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	PaymentEventsExchange = "payment_events"
	paymentQueue          = "order_service_payments"
)

// SetupConsumers suscribe el servicio a los eventos de pago. El loop termina
// cuando se cierra el canal o se cancela ctx.
func SetupConsumers(ctx context.Context, ch *amqp091.Channel, svc PaymentApplier, log *zap.Logger) error {
	consumer := NewPaymentConsumer(svc, log)

	// 1. Declarar exchange y queue
	if err := ch.ExchangeDeclare(PaymentEventsExchange, amqp091.ExchangeFanout, true, false, false, false, nil); err != nil {
		return err
	}
	q, err := ch.QueueDeclare(
		paymentQueue,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	// 2. Bindear al exchange fanout
	if err := ch.QueueBind(q.Name, "", PaymentEventsExchange, false, nil); err != nil {
		return err
	}

	// 3. Consumir con ack manual
	msgs, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				if err := consumer.Handle(ctx, m.Body); err != nil {
					requeue := shouldRequeue(err)
					log.Error("❌ payment event rejected",
						zap.Error(err),
						zap.Bool("requeue", requeue),
						zap.Bool("redelivered", m.Redelivered))
					_ = m.Nack(false, requeue)
					continue
				}
				_ = m.Ack(false)
			}
		}
	}()

	log.Info("🐰 subscribed to payment events", zap.String("exchange", PaymentEventsExchange))
	return nil
}
