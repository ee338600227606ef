// dto.go
package dto

import (
	"time"

	"food-order-service/internal/model"
)

type ItemRequest struct {
	MenuItemID string `json:"menu_item_id" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required,min=1"`
}

// CreateOrderRequest cuerpo de POST /api/orders
type CreateOrderRequest struct {
	RestaurantID string        `json:"restaurant_id" binding:"required"`
	PostalCode   string        `json:"postal_code" binding:"required"`
	Items        []ItemRequest `json:"items" binding:"required,min=1,dive"`
}

type CreateOrderResponse struct {
	OrderDetails *model.Order      `json:"orderDetails"`
	Restaurant   *model.Restaurant `json:"restaurant"`
}

type UpdateStatusRequest struct {
	Status                string     `json:"status" binding:"required"`
	EstimatedDeliveryTime *time.Time `json:"estimated_delivery_time"`
	Reason                string     `json:"reason"`
}

type AddItemRequest = ItemRequest

type RemoveItemRequest struct {
	OrderItemID string `json:"order_item_id" binding:"required"`
}

type UpdateQuantityRequest struct {
	OrderItemID string `json:"order_item_id" binding:"required"`
	Quantity    int    `json:"quantity" binding:"required,min=1"`
}

type ModifyOrderRequest struct {
	Items []ItemRequest `json:"items" binding:"required,min=1,dive"`
}

// OrderEvent se publica en el exchange de órdenes.
type OrderEvent struct {
	Event        string       `json:"event"`
	OrderID      string       `json:"orderId"`
	UserID       string       `json:"userId"`
	RestaurantID string       `json:"restaurantId"`
	PostalCode   string       `json:"postalCode"`
	Status       model.Status `json:"status"`
	TotalAmount  float64      `json:"totalAmount"`
	OccurredAt   time.Time    `json:"occurredAt"`
}

// PaymentEvent llega desde el payment-service.
type PaymentEvent struct {
	OrderID string              `json:"orderId"`
	Status  model.PaymentStatus `json:"status"`
}
