// models.go
package model

import "time"

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusApproved  Status = "APPROVED"
	StatusPrepared  Status = "PREPARED"
	StatusPickedUp  Status = "PICKED_UP"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "UNPAID"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// Role del usuario tal como lo devuelve el servicio de auth.
type Role string

const (
	RoleUser   Role = "user"
	RoleSeller Role = "seller"
	RoleDriver Role = "driver"
)

type Order struct {
	OrderID               string         `bson:"order_id" json:"order_id"`
	UserID                string         `bson:"user_id" json:"user_id"`
	RestaurantID          string         `bson:"restaurant_id" json:"restaurant_id"`
	PostalCode            string         `bson:"postal_code" json:"postal_code"`
	Status                Status         `bson:"status" json:"status"`
	PaymentStatus         PaymentStatus  `bson:"payment_status" json:"payment_status"`
	Items                 []OrderItem    `bson:"items" json:"items"`
	TotalAmount           float64        `bson:"total_amount" json:"total_amount"`
	PlacedAt              time.Time      `bson:"placed_at" json:"placed_at"`
	ModificationDeadline  time.Time      `bson:"modification_deadline" json:"modification_deadline"`
	EstimatedDeliveryTime *time.Time     `bson:"estimated_delivery_time,omitempty" json:"estimated_delivery_time,omitempty"`
	DriverID              string         `bson:"driver_id,omitempty" json:"driver_id,omitempty"`
	History               []StatusRecord `bson:"history" json:"history,omitempty"`
	Version               int64          `bson:"version" json:"-"`
	CreatedAt             time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt             time.Time      `bson:"updated_at" json:"updated_at"`
}

// OrderItem guarda una foto del precio del menú al momento de agregarse.
type OrderItem struct {
	OrderItemID  string  `bson:"order_item_id" json:"order_item_id"`
	MenuItemID   string  `bson:"menu_item_id" json:"menu_item_id"`
	Name         string  `bson:"name" json:"name"`
	Quantity     int     `bson:"quantity" json:"quantity"`
	PricePerItem float64 `bson:"price_per_item" json:"price_per_item"`
	TotalPrice   float64 `bson:"total_price" json:"total_price"`
}

type StatusRecord struct {
	Status    Status    `bson:"status" json:"status"`
	Reason    string    `bson:"reason" json:"reason"`
	UserID    string    `bson:"user" json:"user_id"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// Restaurant y MenuItem son vistas de los documentos del restaurant-service.
type Restaurant struct {
	ID         string `json:"_id"`
	Name       string `json:"name"`
	OwnerID    string `json:"owner_id"`
	PostalCode string `json:"postal_code"`
}

type MenuItem struct {
	ID           string  `json:"_id"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	RestaurantID string  `json:"restaurant_id"`
	Available    *bool   `json:"available,omitempty"`
}

// Identity es el resultado de validar el token contra el auth-service.
type Identity struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}
