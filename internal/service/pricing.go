package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"food-order-service/internal/dto"
	"food-order-service/internal/model"
)

func lineTotal(price float64, quantity int) float64 {
	return decimal.NewFromFloat(price).
		Mul(decimal.NewFromInt(int64(quantity))).
		Round(2).
		InexactFloat64()
}

// orderTotal recalcula el total a partir de los ítems actuales.
func orderTotal(items []model.OrderItem) float64 {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(decimal.NewFromFloat(it.TotalPrice))
	}
	return sum.Round(2).InexactFloat64()
}

func setQuantity(it *model.OrderItem, quantity int) {
	it.Quantity = quantity
	it.TotalPrice = lineTotal(it.PricePerItem, quantity)
}

// priceItem consulta el precio vigente del menú y arma la línea con la foto del precio.
func (s *OrderService) priceItem(ctx context.Context, restaurantID string, req dto.ItemRequest) (model.OrderItem, error) {
	if req.MenuItemID == "" || req.Quantity < 1 {
		return model.OrderItem{}, fmt.Errorf("%w: each item needs menu_item_id and quantity >= 1", ErrValidation)
	}

	mi, err := s.catalog.GetMenuItem(ctx, req.MenuItemID)
	if err != nil {
		return model.OrderItem{}, fmt.Errorf("menu item %s: %w", req.MenuItemID, err)
	}
	if mi.RestaurantID != "" && mi.RestaurantID != restaurantID {
		return model.OrderItem{}, fmt.Errorf("%w: menu item %s belongs to another restaurant", ErrValidation, req.MenuItemID)
	}
	if mi.Available != nil && !*mi.Available {
		return model.OrderItem{}, fmt.Errorf("%w: menu item %s is not available", ErrValidation, req.MenuItemID)
	}

	return model.OrderItem{
		OrderItemID:  uuid.NewString(),
		MenuItemID:   req.MenuItemID,
		Name:         mi.Name,
		Quantity:     req.Quantity,
		PricePerItem: mi.Price,
		TotalPrice:   lineTotal(mi.Price, req.Quantity),
	}, nil
}

// priceItems resuelve todas las líneas en paralelo. Si alguna falla no se
// devuelve nada: la orden se valida completa antes de escribir.
func (s *OrderService) priceItems(ctx context.Context, restaurantID string, reqs []dto.ItemRequest) ([]model.OrderItem, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: items must not be empty", ErrValidation)
	}

	items := make([]model.OrderItem, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	for i, r := range reqs {
		i, r := i, r
		g.Go(func() error {
			it, err := s.priceItem(gctx, restaurantID, r)
			if err != nil {
				return err
			}
			items[i] = it
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}
