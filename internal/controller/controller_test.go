package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"food-order-service/internal/middleware"
	"food-order-service/internal/model"
	"food-order-service/internal/repository"
	"food-order-service/internal/service"
)

type memRepo struct {
	mu     sync.Mutex
	orders map[string]model.Order
}

func (r *memRepo) Insert(_ context.Context, o *model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o.Version = 1
	r.orders[o.OrderID] = copyOrder(*o)
	return nil
}

func (r *memRepo) FindByOrderID(_ context.Context, id string) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := copyOrder(o)
	return &c, nil
}

func (r *memRepo) Update(_ context.Context, o *model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.orders[o.OrderID].Version != o.Version {
		return repository.ErrConflict
	}
	o.Version++
	r.orders[o.OrderID] = copyOrder(*o)
	return nil
}

func (r *memRepo) list(keep func(model.Order) bool) []*model.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.Order{}
	for _, o := range r.orders {
		if keep(o) {
			c := copyOrder(o)
			out = append(out, &c)
		}
	}
	return out
}

func (r *memRepo) FindByUserID(_ context.Context, id string) ([]*model.Order, error) {
	return r.list(func(o model.Order) bool { return o.UserID == id }), nil
}

func (r *memRepo) FindByRestaurantID(_ context.Context, id string) ([]*model.Order, error) {
	return r.list(func(o model.Order) bool { return o.RestaurantID == id }), nil
}

func (r *memRepo) FindByPostalCode(_ context.Context, code string, statuses []model.Status) ([]*model.Order, error) {
	return r.list(func(o model.Order) bool {
		if o.PostalCode != code {
			return false
		}
		for _, s := range statuses {
			if s == o.Status {
				return true
			}
		}
		return false
	}), nil
}

func copyOrder(o model.Order) model.Order {
	o.Items = append([]model.OrderItem(nil), o.Items...)
	o.History = append([]model.StatusRecord(nil), o.History...)
	return o
}

type catalog struct {
	err error
}

func (c catalog) GetRestaurant(_ context.Context, id string) (*model.Restaurant, error) {
	if c.err != nil {
		return nil, c.err
	}
	if id != "r1" {
		return nil, service.ErrRestaurantNotFound
	}
	return &model.Restaurant{ID: "r1", Name: "Pizzería", OwnerID: "seller-1"}, nil
}

func (c catalog) GetMenuItem(_ context.Context, id string) (*model.MenuItem, error) {
	if c.err != nil {
		return nil, c.err
	}
	prices := map[string]float64{"A": 10, "B": 5}
	p, ok := prices[id]
	if !ok {
		return nil, service.ErrMenuItemNotFound
	}
	return &model.MenuItem{ID: id, Name: id, Price: p, RestaurantID: "r1"}, nil
}

// testAuth reemplaza al auth-service: la identidad viaja en headers.
func testAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetHeader("X-User")
		if uid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		middleware.SetIdentity(c, model.Identity{UserID: uid, Role: model.Role(c.GetHeader("X-Role"))})
		c.Next()
	}
}

func newRouter(cat service.Catalog) *gin.Engine {
	gin.SetMode(gin.TestMode)
	repo := &memRepo{orders: map[string]model.Order{}}
	svc := service.NewOrderService(repo, cat, zap.NewNop())
	r := gin.New()
	RegisterRoutes(r, NewOrderController(svc), testAuth())
	return r
}

func do(t *testing.T, r http.Handler, method, path, user, role string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User", user)
		req.Header.Set("X-Role", role)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding %s: %v", w.Body.String(), err)
	}
	return v
}

type createResp struct {
	OrderDetails model.Order      `json:"orderDetails"`
	Restaurant   model.Restaurant `json:"restaurant"`
}

type orderResp struct {
	Order model.Order `json:"order"`
}

func createOrder(t *testing.T, r http.Handler) model.Order {
	t.Helper()
	w := do(t, r, http.MethodPost, "/api/orders", "user-1", "user", gin.H{
		"restaurant_id": "r1",
		"postal_code":   "5500",
		"items": []gin.H{
			{"menu_item_id": "A", "quantity": 2},
			{"menu_item_id": "B", "quantity": 1},
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	return decode[createResp](t, w).OrderDetails
}

func TestCreateOrderEndpoint(t *testing.T) {
	r := newRouter(catalog{})
	w := do(t, r, http.MethodPost, "/api/orders", "user-1", "user", gin.H{
		"restaurant_id": "r1",
		"postal_code":   "5500",
		"items":         []gin.H{{"menu_item_id": "A", "quantity": 2}, {"menu_item_id": "B", "quantity": 1}},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode[createResp](t, w)
	if resp.OrderDetails.TotalAmount != 25 || resp.OrderDetails.Status != model.StatusPending {
		t.Fatalf("unexpected order %+v", resp.OrderDetails)
	}
	if resp.Restaurant.ID != "r1" {
		t.Fatalf("expected restaurant in response, got %+v", resp.Restaurant)
	}
}

func TestCreateOrderEndpointErrors(t *testing.T) {
	tests := []struct {
		name string
		cat  service.Catalog
		user string
		role string
		body any
		want int
	}{
		{"no token", catalog{}, "", "", gin.H{}, http.StatusUnauthorized},
		{"seller role", catalog{}, "seller-1", "seller", gin.H{
			"restaurant_id": "r1", "postal_code": "5500", "items": []gin.H{{"menu_item_id": "A", "quantity": 1}},
		}, http.StatusForbidden},
		{"empty items", catalog{}, "user-1", "user", gin.H{
			"restaurant_id": "r1", "postal_code": "5500", "items": []gin.H{},
		}, http.StatusBadRequest},
		{"missing postal code", catalog{}, "user-1", "user", gin.H{
			"restaurant_id": "r1", "items": []gin.H{{"menu_item_id": "A", "quantity": 1}},
		}, http.StatusBadRequest},
		{"unknown menu item", catalog{}, "user-1", "user", gin.H{
			"restaurant_id": "r1", "postal_code": "5500", "items": []gin.H{{"menu_item_id": "A", "quantity": 1}, {"menu_item_id": "Z", "quantity": 1}},
		}, http.StatusNotFound},
		{"restaurant service down", catalog{err: service.ErrUpstream}, "user-1", "user", gin.H{
			"restaurant_id": "r1", "postal_code": "5500", "items": []gin.H{{"menu_item_id": "A", "quantity": 1}},
		}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(tt.cat)
			w := do(t, r, http.MethodPost, "/api/orders", tt.user, tt.role, tt.body)
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestItemEditingEndpoints(t *testing.T) {
	r := newRouter(catalog{})
	o := createOrder(t, r)
	base := "/api/orders/" + o.OrderID

	var a, b string
	for _, it := range o.Items {
		switch it.MenuItemID {
		case "A":
			a = it.OrderItemID
		case "B":
			b = it.OrderItemID
		}
	}

	w := do(t, r, http.MethodPatch, base+"/update-quantity", "user-1", "user", gin.H{"order_item_id": a, "quantity": 3})
	if w.Code != http.StatusOK || decode[model.Order](t, w).TotalAmount != 35 {
		t.Fatalf("update-quantity: %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodPatch, base+"/remove-item", "user-1", "user", gin.H{"order_item_id": b})
	if w.Code != http.StatusOK || decode[model.Order](t, w).TotalAmount != 30 {
		t.Fatalf("remove-item: %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodPatch, base+"/remove-item", "user-1", "user", gin.H{"order_item_id": a})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("removing the last item should be rejected, got %d", w.Code)
	}

	w = do(t, r, http.MethodPatch, base+"/add-item", "user-1", "user", gin.H{"menu_item_id": "B", "quantity": 2})
	if w.Code != http.StatusOK || decode[model.Order](t, w).TotalAmount != 40 {
		t.Fatalf("add-item: %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodPatch, base, "user-1", "user", gin.H{"items": []gin.H{{"menu_item_id": "B", "quantity": 1}}})
	if w.Code != http.StatusOK || decode[model.Order](t, w).TotalAmount != 5 {
		t.Fatalf("modify: %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodPatch, base+"/add-item", "user-2", "user", gin.H{"menu_item_id": "A", "quantity": 1})
	if w.Code != http.StatusForbidden {
		t.Fatalf("other buyer should get 403, got %d", w.Code)
	}

	w = do(t, r, http.MethodPost, base+"/confirm", "user-1", "user", nil)
	if w.Code != http.StatusOK || decode[orderResp](t, w).Order.Status != model.StatusConfirmed {
		t.Fatalf("confirm: %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodPatch, base+"/add-item", "user-1", "user", gin.H{"menu_item_id": "A", "quantity": 1})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("editing a confirmed order should be rejected, got %d", w.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	r := newRouter(catalog{})
	o := createOrder(t, r)
	path := "/api/orders/" + o.OrderID + "/status"

	w := do(t, r, http.MethodPatch, path, "seller-1", "seller", gin.H{"status": "APPROVED"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("PENDING -> APPROVED should be rejected, got %d", w.Code)
	}

	w = do(t, r, http.MethodPatch, path, "seller-1", "seller", gin.H{"status": "CONFIRMED"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("seller cannot confirm, got %d", w.Code)
	}

	w = do(t, r, http.MethodPatch, "/api/orders/"+o.OrderID+"/confirm", "user-1", "user", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("confirm: %d", w.Code)
	}

	w = do(t, r, http.MethodPatch, path, "seller-1", "seller", gin.H{"status": "APPROVED"})
	if w.Code != http.StatusOK {
		t.Fatalf("approve: %d %s", w.Code, w.Body.String())
	}
	if decode[orderResp](t, w).Order.EstimatedDeliveryTime == nil {
		t.Fatal("approving should set an estimated delivery time")
	}

	w = do(t, r, http.MethodPatch, path, "seller-1", "seller", gin.H{"status": "BOGUS"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown status should be 400, got %d", w.Code)
	}

	w = do(t, r, http.MethodPatch, "/api/orders/ORD-nope/status", "seller-1", "seller", gin.H{"status": "PREPARED"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing order should be 404, got %d", w.Code)
	}

	w = do(t, r, http.MethodGet, "/api/orders/"+o.OrderID+"/history", "user-1", "user", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("history: %d", w.Code)
	}
	var hist struct {
		History []model.StatusRecord `json:"history"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &hist); err != nil || len(hist.History) != 3 {
		t.Fatalf("expected 3 history records, got %s", w.Body.String())
	}
}

func TestListingEndpoints(t *testing.T) {
	r := newRouter(catalog{})
	createOrder(t, r)
	createOrder(t, r)

	w := do(t, r, http.MethodGet, "/api/orders/user", "user-1", "user", nil)
	if w.Code != http.StatusOK || len(decode[[]model.Order](t, w)) != 2 {
		t.Fatalf("user orders: %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodGet, "/api/restaurants/r1/orders", "seller-1", "seller", nil)
	if w.Code != http.StatusOK || len(decode[[]model.Order](t, w)) != 2 {
		t.Fatalf("restaurant orders: %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodGet, "/api/restaurants/r1/orders", "user-1", "user", nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("buyers cannot list restaurant orders, got %d", w.Code)
	}

	w = do(t, r, http.MethodGet, "/api/orders/postal-code/5500", "driver-1", "driver", nil)
	if w.Code != http.StatusOK || len(decode[[]model.Order](t, w)) != 0 {
		t.Fatalf("pending orders are not ready for pickup: %d %s", w.Code, w.Body.String())
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrForbidden, http.StatusForbidden},
		{repository.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("menu item x: %w", service.ErrMenuItemNotFound), http.StatusNotFound},
		{repository.ErrConflict, http.StatusConflict},
		{service.ErrFinalState, http.StatusBadRequest},
		{service.ErrWindowExpired, http.StatusBadRequest},
		{service.ErrLastItem, http.StatusBadRequest},
		{service.ErrUpstream, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.want, got)
		}
	}
}
