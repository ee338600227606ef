// config.go
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	MongoURI      string        `mapstructure:"MONGO_URI"`
	MongoDBName   string        `mapstructure:"MONGO_DB_NAME"`
	AuthURL       string        `mapstructure:"AUTH_URL"`
	RestaurantURL string        `mapstructure:"RESTAURANT_URL"`
	RabbitURL     string        `mapstructure:"RABBIT_URL"`
	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int           `mapstructure:"REDIS_DB"`
	TokenCacheTTL time.Duration `mapstructure:"TOKEN_CACHE_TTL"`
	LogLevel      string        `mapstructure:"LOG_LEVEL"`
	LogEncoding   string        `mapstructure:"LOG_ENCODING"`
	Port          string        `mapstructure:"PORT"`

	Gateway GatewayConfig `mapstructure:",squash"`
}

// GatewayConfig upstreams del api-gateway, uno por prefijo de ruta.
type GatewayConfig struct {
	GatewayPort     string `mapstructure:"GATEWAY_PORT"`
	AuthService     string `mapstructure:"AUTH_SERVICE_URL"`
	RestaurantSvc   string `mapstructure:"RESTAURANT_SERVICE_URL"`
	OrderService    string `mapstructure:"ORDER_SERVICE_URL"`
	DeliveryService string `mapstructure:"DELIVERY_SERVICE_URL"`
	PaymentService  string `mapstructure:"PAYMENT_SERVICE_URL"`
	NotifyService   string `mapstructure:"NOTIFICATION_SERVICE_URL"`
}

var defaults = map[string]any{
	"MONGO_URI":                "mongodb://host.docker.internal:27017",
	"MONGO_DB_NAME":            "order_db",
	"AUTH_URL":                 "http://host.docker.internal:3000",
	"RESTAURANT_URL":           "http://host.docker.internal:3001",
	"RABBIT_URL":               "amqp://host.docker.internal",
	"REDIS_ADDR":               "",
	"REDIS_PASSWORD":           "",
	"REDIS_DB":                 0,
	"TOKEN_CACHE_TTL":          "60s",
	"LOG_LEVEL":                "info",
	"LOG_ENCODING":             "json",
	"PORT":                     "8080",
	"GATEWAY_PORT":             "8000",
	"AUTH_SERVICE_URL":         "http://host.docker.internal:3000",
	"RESTAURANT_SERVICE_URL":   "http://host.docker.internal:3001",
	"ORDER_SERVICE_URL":        "http://host.docker.internal:8080",
	"DELIVERY_SERVICE_URL":     "http://host.docker.internal:3003",
	"PAYMENT_SERVICE_URL":      "http://host.docker.internal:3004",
	"NOTIFICATION_SERVICE_URL": "http://host.docker.internal:3005",
}

// Load lee .env (si existe) y luego las variables de entorno.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
		if err := v.BindEnv(k); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.AuthURL = strings.TrimRight(cfg.AuthURL, "/")
	cfg.RestaurantURL = strings.TrimRight(cfg.RestaurantURL, "/")
	return &cfg, nil
}

// Route asocia un prefijo (y opcionalmente un sufijo) de path con un upstream.
type Route struct {
	Prefix string
	Suffix string
	Target string
}

// Routes devuelve la tabla de ruteo del gateway.
// Los pedidos de un restaurante viven en el order-service.
func (g GatewayConfig) Routes() []Route {
	return []Route{
		{Prefix: "/api/auth", Target: g.AuthService},
		{Prefix: "/api/restaurants", Target: g.RestaurantSvc},
		{Prefix: "/api/restaurants/", Suffix: "/orders", Target: g.OrderService},
		{Prefix: "/api/menu", Target: g.RestaurantSvc},
		{Prefix: "/api/orders", Target: g.OrderService},
		{Prefix: "/api/delivery", Target: g.DeliveryService},
		{Prefix: "/api/payments", Target: g.PaymentService},
		{Prefix: "/api/notifications", Target: g.NotifyService},
	}
}
