package rabbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"food-order-service/internal/dto"
	"food-order-service/internal/model"
	"food-order-service/internal/repository"
	"food-order-service/internal/service"
)

var ErrBadMessage = errors.New("mensaje de pago inválido")

// Reintentos locales cuando otra operación modificó la orden en paralelo.
const conflictRetries = 3

type PaymentApplier interface {
	ApplyPayment(ctx context.Context, evt dto.PaymentEvent) error
}

type PaymentConsumer struct {
	Service PaymentApplier
	log     *zap.Logger
}

func NewPaymentConsumer(s PaymentApplier, log *zap.Logger) *PaymentConsumer {
	return &PaymentConsumer{Service: s, log: log}
}

// Handle procesa un evento {orderId, status} del payment-service.
func (c *PaymentConsumer) Handle(ctx context.Context, msg []byte) error {
	var event dto.PaymentEvent
	if err := json.Unmarshal(msg, &event); err != nil {
		return fmt.Errorf("%w: %v", ErrBadMessage, err)
	}
	if event.OrderID == "" {
		return fmt.Errorf("%w: missing orderId", ErrBadMessage)
	}
	if event.Status != model.PaymentPaid && event.Status != model.PaymentRefunded {
		return fmt.Errorf("%w: unexpected status %q", ErrBadMessage, event.Status)
	}

	var err error
	for attempt := 1; attempt <= conflictRetries; attempt++ {
		err = c.Service.ApplyPayment(ctx, event)
		if !errors.Is(err, repository.ErrConflict) {
			break
		}
		c.log.Warn("payment event hit a concurrent update, retrying",
			zap.String("order_id", event.OrderID),
			zap.Int("attempt", attempt))
	}
	if err != nil {
		return err
	}

	c.log.Info("✔ payment status applied",
		zap.String("order_id", event.OrderID),
		zap.String("payment_status", string(event.Status)))
	return nil
}

// shouldRequeue decide si un mensaje fallido vuelve a la cola. Los mensajes
// mal formados, las transiciones de pago inválidas y las órdenes inexistentes
// no se arreglan reintentando.
func shouldRequeue(err error) bool {
	switch {
	case errors.Is(err, ErrBadMessage),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, repository.ErrNotFound):
		return false
	default:
		return true
	}
}
