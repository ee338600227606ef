package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"food-order-service/internal/cache"
	"food-order-service/internal/config"
	"food-order-service/internal/controller"
	"food-order-service/internal/logger"
	"food-order-service/internal/metrics"
	"food-order-service/internal/middleware"
	"food-order-service/internal/rabbit"
	"food-order-service/internal/repository"
	"food-order-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Conexión a MongoDB
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer client.Disconnect(context.Background())

	repo := repository.NewMongoOrderRepository(client.Database(cfg.MongoDBName))
	if err := repo.EnsureIndexes(connectCtx); err != nil {
		log.Fatal("Failed to create indexes", zap.Error(err))
	}

	// Cache de tokens (opcional)
	var tokenCache service.TokenCache
	if cfg.RedisAddr != "" {
		rc := cache.NewRedisTokenCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.TokenCacheTTL)
		defer rc.Close()
		if err := rc.Ping(connectCtx); err != nil {
			log.Warn("Redis connection failed, token cache disabled", zap.Error(err))
		} else {
			tokenCache = rc
			log.Info("Redis connected successfully")
		}
	}

	// Conexión a RabbitMQ
	conn, err := amqp091.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer conn.Close()

	pubCh, err := conn.Channel()
	if err != nil {
		log.Fatal("Failed to open RabbitMQ channel", zap.Error(err))
	}
	publisher, err := rabbit.NewPublisher(pubCh)
	if err != nil {
		log.Fatal("Failed to declare order exchange", zap.Error(err))
	}

	// Servicios
	authService := service.NewAuthService(cfg.AuthURL, tokenCache, log)
	restaurants := service.NewRestaurantService(cfg.RestaurantURL)
	orderService := service.NewOrderService(repo, restaurants, log, service.WithPublisher(publisher))

	consCh, err := conn.Channel()
	if err != nil {
		log.Fatal("Failed to open RabbitMQ channel", zap.Error(err))
	}
	if err := rabbit.SetupConsumers(ctx, consCh, orderService, log); err != nil {
		log.Fatal("Failed to subscribe to payment events", zap.Error(err))
	}

	// Router
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.Use(metrics.NewServerMetrics("order_service", reg).Middleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler(reg)))

	ctrl := controller.NewOrderController(orderService)
	controller.RegisterRoutes(r, ctrl, middleware.AuthMiddleware(authService))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Order service listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Received shutdown signal")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}
	log.Info("Service stopped")
}
