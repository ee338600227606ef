package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"food-order-service/internal/model"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenCache guarda identidades ya validadas por un rato.
type TokenCache interface {
	Get(ctx context.Context, key string) (*model.Identity, error)
	Set(ctx context.Context, key string, id *model.Identity) error
}

// Servicio que consulta al microservicio externo de autenticación.
type AuthService struct {
	authURL string
	client  *http.Client
	cache   TokenCache
	log     *zap.Logger
}

// Crea el servicio de autenticación. cache puede ser nil.
func NewAuthService(authURL string, cache TokenCache, log *zap.Logger) *AuthService {
	return &AuthService{
		authURL: authURL,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		cache: cache,
		log:   log,
	}
}

func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "token:" + hex.EncodeToString(sum[:])
}

// Valida el token consultando a /validate-token del microservicio de auth.
func (a *AuthService) ValidateToken(ctx context.Context, token string) (*model.Identity, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	key := tokenKey(token)
	if a.cache != nil {
		if id, err := a.cache.Get(ctx, key); err == nil && id != nil {
			return id, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/validate-token", a.authURL), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.AddCookie(&http.Cookie{Name: "token", Value: token})

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: auth request failed: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: auth-service returned %d", ErrUpstream, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, ErrInvalidToken
	}

	var id model.Identity
	if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
		return nil, err
	}
	if id.UserID == "" || id.Role == "" {
		return nil, ErrInvalidToken
	}

	if a.cache != nil {
		if err := a.cache.Set(ctx, key, &id); err != nil {
			a.log.Warn("token cache write failed", zap.Error(err))
		}
	}
	return &id, nil
}
