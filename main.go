package main

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"payza-gateway/config"
	"payza-gateway/handlers"
	"payza-gateway/logging"
	"payza-gateway/monitoring"
	"payza-gateway/service"
	"payza-gateway/store"
)

func main() {
	// Initialize structured logging
	if err := logging.InitLogger(); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logging.Sync()
	defer func() {
		if err := logging.Shutdown(context.Background()); err != nil {
			logging.Error("Error shutting down logger provider", zap.Error(err))
		}
	}()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Invalid configuration", zap.Error(err))
	}

	// Initialize OpenTelemetry
	tp, tracer, err := monitoring.InitTracer(cfg.ServiceName, cfg.OTELEndpoint)
	if err != nil {
		logging.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logging.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	mp, _, err := monitoring.InitMeter(cfg.ServiceName, cfg.OTELEndpoint)
	if err != nil {
		logging.Fatal("Failed to initialize meter", zap.Error(err))
	}
	defer func() {
		if err := mp.Shutdown(context.Background()); err != nil {
			logging.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	// Order storage: PostgreSQL when configured, otherwise in memory
	var orders store.OrderStore
	if cfg.DatabaseURL != "" {
		db, err := store.Connect(cfg.DatabaseURL)
		if err != nil {
			logging.Fatal("Failed to connect to database", zap.Error(err))
		}
		orders = store.NewGormOrderStore(db)
	} else {
		logging.Warn("DATABASE_URL not set, orders are kept in memory")
		orders = store.NewMemoryOrderStore()
	}

	// Initialize service layer
	checkoutService := service.NewCheckoutService(tracer, orders, cfg.Gateway)
	notificationService := service.NewNotificationService(tracer, orders, service.NewHTTPTokenVerifier(cfg.Gateway))

	// Initialize handlers
	paymentHandler := handlers.NewPaymentHandler(checkoutService, notificationService, cfg.Gateway)

	// Setup Gin router
	r := gin.Default()

	// OpenTelemetry middleware
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(httpMetricsMiddleware())

	// Routes
	handlers.RegisterRoutes(r, paymentHandler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Start server
	logging.Info("Payza gateway starting",
		zap.String("port", cfg.Port),
		zap.Bool("sandbox", cfg.Gateway.Sandbox),
		zap.String("currency", cfg.Gateway.Currency),
	)
	if err := r.Run(":" + cfg.Port); err != nil {
		logging.Fatal("Failed to start server", zap.Error(err))
	}
}

// httpMetricsMiddleware records HTTP request metrics
func httpMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := float64(time.Since(start).Milliseconds())

		monitoring.HTTPServerDuration.Record(c.Request.Context(), duration,
			metric.WithAttributes(
				attribute.String("http_method", c.Request.Method),
				attribute.String("http_route", c.FullPath()),
				attribute.String("http_status_code", strconv.Itoa(c.Writer.Status())),
			),
		)
	}
}
