package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"food-order-service/internal/dto"
	"food-order-service/internal/model"
)

// Interfaz que debe implementar repository
type OrderRepository interface {
	Insert(ctx context.Context, o *model.Order) error
	FindByOrderID(ctx context.Context, orderID string) (*model.Order, error)
	Update(ctx context.Context, o *model.Order) error
	FindByUserID(ctx context.Context, userID string) ([]*model.Order, error)
	FindByRestaurantID(ctx context.Context, restaurantID string) ([]*model.Order, error)
	FindByPostalCode(ctx context.Context, postalCode string, statuses []model.Status) ([]*model.Order, error)
}

// Catalog resuelve restaurantes e ítems del menú en el restaurant-service.
type Catalog interface {
	GetRestaurant(ctx context.Context, restaurantID string) (*model.Restaurant, error)
	GetMenuItem(ctx context.Context, menuItemID string) (*model.MenuItem, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, evt dto.OrderEvent) error
}

// Errores de negocio exportados (los usa el controller)
var (
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("transición de estado inválida")
	ErrFinalState        = fmt.Errorf("%w: la orden está en estado final", ErrInvalidTransition)
	ErrInvalidStatus     = errors.New("estado desconocido")
	ErrValidation        = errors.New("datos inválidos")
	ErrNotPending        = errors.New("la orden ya no está pendiente")
	ErrWindowExpired     = errors.New("venció el plazo para modificar la orden")
	ErrLastItem          = errors.New("la orden debe conservar al menos un ítem")
	ErrItemNotFound      = errors.New("ítem no encontrado en la orden")
)

const (
	ModificationWindow = 15 * time.Minute
	DeliveryEstimate   = 45 * time.Minute
)

// Estados en los que un repartidor puede ver la orden para retirarla.
var pickupStates = []model.Status{model.StatusApproved, model.StatusPrepared}

const (
	EventPlaced        = "order.placed"
	EventStatusChanged = "order.status_changed"
	EventModified      = "order.modified"
	EventConfirmed     = "order.confirmed"
)

type OrderService struct {
	repo      OrderRepository
	catalog   Catalog
	publisher EventPublisher
	log       *zap.Logger
	now       func() time.Time
}

type Option func(*OrderService)

// WithClock reemplaza el reloj (tests).
func WithClock(now func() time.Time) Option {
	return func(s *OrderService) { s.now = now }
}

func WithPublisher(p EventPublisher) Option {
	return func(s *OrderService) { s.publisher = p }
}

func NewOrderService(r OrderRepository, c Catalog, log *zap.Logger, opts ...Option) *OrderService {
	s := &OrderService{
		repo:    r,
		catalog: c,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func newOrderID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), suffix)
}

// CreateOrder valida restaurante e ítems contra el restaurant-service y
// recién después persiste la orden en estado PENDING.
func (s *OrderService) CreateOrder(ctx context.Context, actor model.Identity, req dto.CreateOrderRequest) (*model.Order, *model.Restaurant, error) {
	if actor.Role != model.RoleUser {
		return nil, nil, ErrForbidden
	}
	if req.RestaurantID == "" || req.PostalCode == "" {
		return nil, nil, fmt.Errorf("%w: restaurant_id and postal_code are required", ErrValidation)
	}

	restaurant, err := s.catalog.GetRestaurant(ctx, req.RestaurantID)
	if err != nil {
		return nil, nil, fmt.Errorf("restaurant %s: %w", req.RestaurantID, err)
	}

	items, err := s.priceItems(ctx, req.RestaurantID, req.Items)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	o := &model.Order{
		OrderID:              newOrderID(now),
		UserID:               actor.UserID,
		RestaurantID:         req.RestaurantID,
		PostalCode:           req.PostalCode,
		Status:               model.StatusPending,
		PaymentStatus:        model.PaymentUnpaid,
		Items:                items,
		TotalAmount:          orderTotal(items),
		PlacedAt:             now,
		ModificationDeadline: now.Add(ModificationWindow),
		History: []model.StatusRecord{{
			Status:    model.StatusPending,
			Reason:    "Orden creada",
			UserID:    actor.UserID,
			Timestamp: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, o); err != nil {
		return nil, nil, err
	}

	s.log.Info("order placed",
		zap.String("order_id", o.OrderID),
		zap.String("user_id", o.UserID),
		zap.Int("items", len(o.Items)),
		zap.Float64("total_amount", o.TotalAmount))
	s.publish(ctx, EventPlaced, o)

	return o, restaurant, nil
}

// Getters

// GetOrder devuelve la orden si el actor puede verla.
func (s *OrderService) GetOrder(ctx context.Context, actor model.Identity, orderID string) (*model.Order, error) {
	o, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch actor.Role {
	case model.RoleUser:
		if o.UserID == actor.UserID {
			return o, nil
		}
	case model.RoleSeller:
		if err := s.checkRestaurantOwner(ctx, actor, o.RestaurantID); err != nil {
			return nil, err
		}
		return o, nil
	case model.RoleDriver:
		if o.DriverID == actor.UserID || (o.DriverID == "" && contains(pickupStates, o.Status)) {
			return o, nil
		}
	}
	return nil, ErrForbidden
}

func (s *OrderService) ListForUser(ctx context.Context, actor model.Identity) ([]*model.Order, error) {
	if actor.Role != model.RoleUser {
		return nil, ErrForbidden
	}
	return s.repo.FindByUserID(ctx, actor.UserID)
}

func (s *OrderService) ListForRestaurant(ctx context.Context, actor model.Identity, restaurantID string) ([]*model.Order, error) {
	if actor.Role != model.RoleSeller {
		return nil, ErrForbidden
	}
	if err := s.checkRestaurantOwner(ctx, actor, restaurantID); err != nil {
		return nil, err
	}
	return s.repo.FindByRestaurantID(ctx, restaurantID)
}

// ListByPostalCode devuelve las órdenes listas para retirar en una zona.
func (s *OrderService) ListByPostalCode(ctx context.Context, actor model.Identity, postalCode string) ([]*model.Order, error) {
	if actor.Role != model.RoleDriver {
		return nil, ErrForbidden
	}
	return s.repo.FindByPostalCode(ctx, postalCode, pickupStates)
}

func (s *OrderService) checkRestaurantOwner(ctx context.Context, actor model.Identity, restaurantID string) error {
	r, err := s.catalog.GetRestaurant(ctx, restaurantID)
	if err != nil {
		return fmt.Errorf("restaurant %s: %w", restaurantID, err)
	}
	if r.OwnerID != actor.UserID {
		return ErrForbidden
	}
	return nil
}

// UpdateStatus valida y realiza la transición entre estados según las reglas de negocio.
func (s *OrderService) UpdateStatus(ctx context.Context, actor model.Identity, orderID string, req dto.UpdateStatusRequest) (*model.Order, error) {
	next := model.Status(strings.ToUpper(strings.TrimSpace(req.Status)))

	o, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch actor.Role {
	case model.RoleUser:
		if o.UserID != actor.UserID {
			return nil, ErrForbidden
		}
	case model.RoleSeller:
		if err := s.checkRestaurantOwner(ctx, actor, o.RestaurantID); err != nil {
			return nil, err
		}
	case model.RoleDriver:
	default:
		return nil, ErrForbidden
	}

	if err := ValidateTransition(actor.Role, o.Status, next); err != nil {
		return nil, err
	}
	// Sólo el repartidor que retiró la orden puede entregarla.
	if next == model.StatusDelivered && o.DriverID != actor.UserID {
		return nil, ErrForbidden
	}

	now := s.now()
	if next == model.StatusApproved && o.EstimatedDeliveryTime == nil {
		eta := now.Add(DeliveryEstimate)
		o.EstimatedDeliveryTime = &eta
	}
	if req.EstimatedDeliveryTime != nil {
		eta := req.EstimatedDeliveryTime.UTC()
		o.EstimatedDeliveryTime = &eta
	}
	if next == model.StatusPickedUp {
		o.DriverID = actor.UserID
	}

	s.recordStatus(o, next, req.Reason, actor.UserID, now)
	if err := s.repo.Update(ctx, o); err != nil {
		return nil, err
	}

	s.log.Info("order status changed",
		zap.String("order_id", o.OrderID),
		zap.String("status", string(next)),
		zap.String("actor", actor.UserID),
		zap.String("role", string(actor.Role)))
	s.publish(ctx, EventStatusChanged, o)
	return o, nil
}

func (s *OrderService) recordStatus(o *model.Order, status model.Status, reason, actorID string, now time.Time) {
	o.Status = status
	o.UpdatedAt = now
	o.History = append(o.History, model.StatusRecord{
		Status:    status,
		Reason:    reason,
		UserID:    actorID,
		Timestamp: now,
	})
}

// checkEditable: sólo se editan órdenes PENDING dentro de la ventana.
func checkEditable(o *model.Order, now time.Time) error {
	if o.Status != model.StatusPending {
		return ErrNotPending
	}
	if !now.Before(o.ModificationDeadline) {
		return ErrWindowExpired
	}
	return nil
}

// mutateItems carga la orden, verifica dueño y ventana, aplica fn y persiste
// ítems y total juntos.
func (s *OrderService) mutateItems(ctx context.Context, actor model.Identity, orderID string, fn func(o *model.Order) error) (*model.Order, error) {
	o, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if actor.Role != model.RoleUser || o.UserID != actor.UserID {
		return nil, ErrForbidden
	}

	now := s.now()
	if err := checkEditable(o, now); err != nil {
		return nil, err
	}
	if err := fn(o); err != nil {
		return nil, err
	}

	o.TotalAmount = orderTotal(o.Items)
	o.UpdatedAt = now
	if err := s.repo.Update(ctx, o); err != nil {
		return nil, err
	}

	s.log.Info("order modified",
		zap.String("order_id", o.OrderID),
		zap.Int("items", len(o.Items)),
		zap.Float64("total_amount", o.TotalAmount))
	s.publish(ctx, EventModified, o)
	return o, nil
}

// AddItem agrega una línea nueva con el precio vigente del menú.
func (s *OrderService) AddItem(ctx context.Context, actor model.Identity, orderID string, req dto.AddItemRequest) (*model.Order, error) {
	return s.mutateItems(ctx, actor, orderID, func(o *model.Order) error {
		it, err := s.priceItem(ctx, o.RestaurantID, req)
		if err != nil {
			return err
		}
		o.Items = append(o.Items, it)
		return nil
	})
}

func (s *OrderService) RemoveItem(ctx context.Context, actor model.Identity, orderID, orderItemID string) (*model.Order, error) {
	return s.mutateItems(ctx, actor, orderID, func(o *model.Order) error {
		idx := findItem(o.Items, orderItemID)
		if idx < 0 {
			return ErrItemNotFound
		}
		if len(o.Items) == 1 {
			return ErrLastItem
		}
		o.Items = append(o.Items[:idx:idx], o.Items[idx+1:]...)
		return nil
	})
}

func (s *OrderService) UpdateQuantity(ctx context.Context, actor model.Identity, orderID, orderItemID string, quantity int) (*model.Order, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be >= 1", ErrValidation)
	}
	return s.mutateItems(ctx, actor, orderID, func(o *model.Order) error {
		idx := findItem(o.Items, orderItemID)
		if idx < 0 {
			return ErrItemNotFound
		}
		setQuantity(&o.Items[idx], quantity)
		return nil
	})
}

// ModifyOrder reemplaza todos los ítems; cada línea se vuelve a cotizar.
func (s *OrderService) ModifyOrder(ctx context.Context, actor model.Identity, orderID string, req dto.ModifyOrderRequest) (*model.Order, error) {
	return s.mutateItems(ctx, actor, orderID, func(o *model.Order) error {
		items, err := s.priceItems(ctx, o.RestaurantID, req.Items)
		if err != nil {
			return err
		}
		o.Items = items
		return nil
	})
}

// Confirm pasa la orden de PENDING a CONFIRMED y cierra la ventana de edición.
func (s *OrderService) Confirm(ctx context.Context, actor model.Identity, orderID string) (*model.Order, error) {
	o, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if actor.Role != model.RoleUser || o.UserID != actor.UserID {
		return nil, ErrForbidden
	}
	if o.Status != model.StatusPending {
		return nil, ErrNotPending
	}

	now := s.now()
	o.ModificationDeadline = now
	s.recordStatus(o, model.StatusConfirmed, "Orden confirmada", actor.UserID, now)
	if err := s.repo.Update(ctx, o); err != nil {
		return nil, err
	}

	s.log.Info("order confirmed", zap.String("order_id", o.OrderID))
	s.publish(ctx, EventConfirmed, o)
	return o, nil
}

// ApplyPayment registra el resultado informado por el payment-service.
// Una entrega repetida del mismo estado no hace nada.
func (s *OrderService) ApplyPayment(ctx context.Context, evt dto.PaymentEvent) error {
	o, err := s.repo.FindByOrderID(ctx, evt.OrderID)
	if err != nil {
		return err
	}
	if o.PaymentStatus == evt.Status {
		return nil
	}
	if o.Status == model.StatusCancelled && evt.Status == model.PaymentPaid {
		s.log.Warn("payment received for cancelled order",
			zap.String("order_id", o.OrderID),
			zap.String("payment_status", string(evt.Status)))
		return fmt.Errorf("%w: order %s is cancelled", ErrInvalidTransition, o.OrderID)
	}

	valid := (o.PaymentStatus == model.PaymentUnpaid && evt.Status == model.PaymentPaid) ||
		(o.PaymentStatus == model.PaymentPaid && evt.Status == model.PaymentRefunded)
	if !valid {
		return fmt.Errorf("%w: payment %s -> %s", ErrInvalidTransition, o.PaymentStatus, evt.Status)
	}

	o.PaymentStatus = evt.Status
	o.UpdatedAt = s.now()
	return s.repo.Update(ctx, o)
}

func findItem(items []model.OrderItem, orderItemID string) int {
	for i, it := range items {
		if it.OrderItemID == orderItemID {
			return i
		}
	}
	return -1
}

// publish no falla la operación: la orden ya quedó guardada.
func (s *OrderService) publish(ctx context.Context, event string, o *model.Order) {
	if s.publisher == nil {
		return
	}
	evt := dto.OrderEvent{
		Event:        event,
		OrderID:      o.OrderID,
		UserID:       o.UserID,
		RestaurantID: o.RestaurantID,
		PostalCode:   o.PostalCode,
		Status:       o.Status,
		TotalAmount:  o.TotalAmount,
		OccurredAt:   s.now(),
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.log.Warn("failed to publish order event",
			zap.String("event", event),
			zap.String("order_id", o.OrderID),
			zap.Error(err))
	}
}
