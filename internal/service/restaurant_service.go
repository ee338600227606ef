package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"food-order-service/internal/model"
)

var (
	ErrRestaurantNotFound = errors.New("restaurante no encontrado")
	ErrMenuItemNotFound   = errors.New("ítem de menú no encontrado")
	// ErrUpstream: un servicio externo no respondió o respondió con error.
	ErrUpstream = errors.New("upstream service unavailable")
)

// RestaurantService consulta restaurantes y precios al restaurant-service.
type RestaurantService struct {
	baseURL string
	client  *http.Client
}

func NewRestaurantService(baseURL string) *RestaurantService {
	return &RestaurantService{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (r *RestaurantService) GetRestaurant(ctx context.Context, restaurantID string) (*model.Restaurant, error) {
	var out model.Restaurant
	if err := r.get(ctx, "/restaurant/"+url.PathEscape(restaurantID), ErrRestaurantNotFound, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *RestaurantService) GetMenuItem(ctx context.Context, menuItemID string) (*model.MenuItem, error) {
	var out model.MenuItem
	if err := r.get(ctx, "/menu/menu-items/"+url.PathEscape(menuItemID), ErrMenuItemNotFound, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *RestaurantService) get(ctx context.Context, path string, notFound error, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return notFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: GET %s returned %d", ErrUpstream, path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", ErrUpstream, path, err)
	}
	return nil
}
