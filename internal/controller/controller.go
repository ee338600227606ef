package controller

import (
	"errors"
	"net/http"

	"food-order-service/internal/dto"
	"food-order-service/internal/middleware"
	"food-order-service/internal/model"
	"food-order-service/internal/repository"
	"food-order-service/internal/service"

	"github.com/gin-gonic/gin"
)

type OrderController struct {
	Service *service.OrderService
}

func NewOrderController(s *service.OrderService) *OrderController {
	return &OrderController{Service: s}
}

// RegisterRoutes monta las rutas de órdenes detrás de auth.
func RegisterRoutes(r gin.IRouter, ctl *OrderController, auth gin.HandlerFunc) {
	api := r.Group("/api")
	api.Use(auth)

	buyer := middleware.RequireRole(model.RoleUser)

	api.POST("/orders", buyer, ctl.CreateOrder)
	api.GET("/orders/user", buyer, ctl.GetMyOrders)
	api.GET("/orders/postal-code/:code", middleware.RequireRole(model.RoleDriver), ctl.GetOrdersByPostalCode)
	api.GET("/restaurants/:id/orders", middleware.RequireRole(model.RoleSeller), ctl.GetRestaurantOrders)

	api.GET("/orders/:orderId", ctl.GetOrder)
	api.GET("/orders/:orderId/history", ctl.GetHistory)
	api.PATCH("/orders/:orderId/status", ctl.UpdateStatus)

	api.PATCH("/orders/:orderId", buyer, ctl.ModifyOrder)
	api.PATCH("/orders/:orderId/add-item", buyer, ctl.AddItem)
	api.PATCH("/orders/:orderId/remove-item", buyer, ctl.RemoveItem)
	api.PATCH("/orders/:orderId/update-quantity", buyer, ctl.UpdateQuantity)
	api.PATCH("/orders/:orderId/confirm", buyer, ctl.Confirm)
	api.POST("/orders/:orderId/confirm", buyer, ctl.Confirm)
}

// statusFor traduce errores de negocio a códigos HTTP.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrRestaurantNotFound),
		errors.Is(err, service.ErrMenuItemNotFound),
		errors.Is(err, service.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrNotPending),
		errors.Is(err, service.ErrWindowExpired),
		errors.Is(err, service.ErrLastItem):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	code := statusFor(err)
	_ = c.Error(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.JSON(code, gin.H{"error": msg})
}

// POST /api/orders
func (ctl *OrderController) CreateOrder(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, restaurant, err := ctl.Service.CreateOrder(c.Request.Context(), middleware.Identity(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.CreateOrderResponse{OrderDetails: order, Restaurant: restaurant})
}

// GET /api/orders/user
func (ctl *OrderController) GetMyOrders(c *gin.Context) {
	orders, err := ctl.Service.ListForUser(c.Request.Context(), middleware.Identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// GET /api/orders/postal-code/:code
func (ctl *OrderController) GetOrdersByPostalCode(c *gin.Context) {
	orders, err := ctl.Service.ListByPostalCode(c.Request.Context(), middleware.Identity(c), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// GET /api/restaurants/:id/orders
func (ctl *OrderController) GetRestaurantOrders(c *gin.Context) {
	orders, err := ctl.Service.ListForRestaurant(c.Request.Context(), middleware.Identity(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (ctl *OrderController) GetOrder(c *gin.Context) {
	o, err := ctl.Service.GetOrder(c.Request.Context(), middleware.Identity(c), c.Param("orderId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (ctl *OrderController) GetHistory(c *gin.Context) {
	o, err := ctl.Service.GetOrder(c.Request.Context(), middleware.Identity(c), c.Param("orderId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order_id": o.OrderID,
		"status":   o.Status,
		"history":  o.History,
	})
}

// PATCH /api/orders/:orderId/status
func (ctl *OrderController) UpdateStatus(c *gin.Context) {
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	o, err := ctl.Service.UpdateStatus(c.Request.Context(), middleware.Identity(c), c.Param("orderId"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "status updated", "order": o})
}

func (ctl *OrderController) AddItem(c *gin.Context) {
	var req dto.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	o, err := ctl.Service.AddItem(c.Request.Context(), middleware.Identity(c), c.Param("orderId"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (ctl *OrderController) RemoveItem(c *gin.Context) {
	var req dto.RemoveItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	o, err := ctl.Service.RemoveItem(c.Request.Context(), middleware.Identity(c), c.Param("orderId"), req.OrderItemID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (ctl *OrderController) UpdateQuantity(c *gin.Context) {
	var req dto.UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	o, err := ctl.Service.UpdateQuantity(c.Request.Context(), middleware.Identity(c), c.Param("orderId"), req.OrderItemID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// PATCH /api/orders/:orderId — reemplazo completo de ítems
func (ctl *OrderController) ModifyOrder(c *gin.Context) {
	var req dto.ModifyOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	o, err := ctl.Service.ModifyOrder(c.Request.Context(), middleware.Identity(c), c.Param("orderId"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (ctl *OrderController) Confirm(c *gin.Context) {
	o, err := ctl.Service.Confirm(c.Request.Context(), middleware.Identity(c), c.Param("orderId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "order confirmed", "order": o})
}
