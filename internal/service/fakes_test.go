package service

import (
	"context"
	"sync"

	"food-order-service/internal/dto"
	"food-order-service/internal/model"
	"food-order-service/internal/repository"
)

// memRepo guarda copias, igual que una base real: mutar lo leído no cambia lo guardado.
type memRepo struct {
	mu      sync.Mutex
	orders  map[string]model.Order
	updates int
}

func newMemRepo() *memRepo {
	return &memRepo{orders: map[string]model.Order{}}
}

func clone(o model.Order) model.Order {
	o.Items = append([]model.OrderItem(nil), o.Items...)
	o.History = append([]model.StatusRecord(nil), o.History...)
	if o.EstimatedDeliveryTime != nil {
		eta := *o.EstimatedDeliveryTime
		o.EstimatedDeliveryTime = &eta
	}
	return o
}

func (r *memRepo) Insert(_ context.Context, o *model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o.Version = 1
	r.orders[o.OrderID] = clone(*o)
	return nil
}

func (r *memRepo) FindByOrderID(_ context.Context, id string) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := clone(o)
	return &c, nil
}

func (r *memRepo) Update(_ context.Context, o *model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.orders[o.OrderID]
	if !ok {
		return repository.ErrNotFound
	}
	if cur.Version != o.Version {
		return repository.ErrConflict
	}
	o.Version++
	r.orders[o.OrderID] = clone(*o)
	r.updates++
	return nil
}

func (r *memRepo) filter(keep func(model.Order) bool) []*model.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.Order{}
	for _, o := range r.orders {
		if keep(o) {
			c := clone(o)
			out = append(out, &c)
		}
	}
	return out
}

func (r *memRepo) FindByUserID(_ context.Context, userID string) ([]*model.Order, error) {
	return r.filter(func(o model.Order) bool { return o.UserID == userID }), nil
}

func (r *memRepo) FindByRestaurantID(_ context.Context, restaurantID string) ([]*model.Order, error) {
	return r.filter(func(o model.Order) bool { return o.RestaurantID == restaurantID }), nil
}

func (r *memRepo) FindByPostalCode(_ context.Context, code string, statuses []model.Status) ([]*model.Order, error) {
	return r.filter(func(o model.Order) bool { return o.PostalCode == code && contains(statuses, o.Status) }), nil
}

type fakeCatalog struct {
	mu          sync.Mutex
	restaurants map[string]*model.Restaurant
	items       map[string]*model.MenuItem
	err         error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		restaurants: map[string]*model.Restaurant{
			"r1": {ID: "r1", Name: "Pizzería", OwnerID: "seller-1", PostalCode: "5500"},
		},
		items: map[string]*model.MenuItem{
			"A": {ID: "A", Name: "Muzzarella", Price: 10, RestaurantID: "r1"},
			"B": {ID: "B", Name: "Fainá", Price: 5, RestaurantID: "r1"},
			"C": {ID: "C", Name: "Empanada", Price: 2.5, RestaurantID: "r1"},
		},
	}
}

func (f *fakeCatalog) setPrice(id string, price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[id].Price = price
}

func (f *fakeCatalog) GetRestaurant(_ context.Context, id string) (*model.Restaurant, error) {
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.restaurants[id]
	if !ok {
		return nil, ErrRestaurantNotFound
	}
	return r, nil
}

func (f *fakeCatalog) GetMenuItem(_ context.Context, id string) (*model.MenuItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	mi, ok := f.items[id]
	if !ok {
		return nil, ErrMenuItemNotFound
	}
	c := *mi
	return &c, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []dto.OrderEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, evt dto.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func (p *fakePublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Event
	}
	return out
}
