package admindashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"food-dispatch/internal/general/config"
	"food-dispatch/internal/general/contracts"
	"food-dispatch/internal/general/jwt"
	"food-dispatch/internal/general/logger"
	"food-dispatch/internal/general/postgres"
	"food-dispatch/internal/general/rabbitmq"
	"food-dispatch/internal/software/adminboard/handler"
	"food-dispatch/internal/software/adminboard/service"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Run wires the admin dashboard service and blocks until ctx is cancelled.
func Run(ctx context.Context, maxConcurrent int) error {
	// set up a new logger for admin dashboard service with a static request ID for startup logs
	logger := logger.New("admin-service")
	ctx = logger.WithRequestID(ctx, "startup-001")

	// load a config from file
	cfg, err := config.LoadFromFile("config/config.yaml")
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load configuration", err, nil)
		return err
	}

	// set up a Postgres connection pool
	pool, err := postgres.NewPool(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "db_connection_failed", "Failed to initialize Postgres pool", err, nil)
		return err
	}
	defer pool.Close()

	// connect to RabbitMQ for the operator alert feed
	rmq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err, nil)
		return err
	}

	// set up the JWT manager
	jwtManager := jwt.NewManager(cfg.JWT.SecretKey, 2*time.Hour)

	// set up the necessary repos
	uow := postgres.NewUnitOfWork(pool)
	orderRepo := postgres.NewOrderRepo()
	driverRepo := postgres.NewDriverRepo()
	earningsRepo := postgres.NewEarningsRepo()

	// set up the service
	svc := service.NewAdminService(uow, orderRepo, driverRepo, earningsRepo)

	// surface dispatch escalations in the admin log stream
	go consumeAdminAlerts(ctx, logger, rmq)

	// set up the HTTP handler and its routes
	mux := http.NewServeMux()
	httpHandler := handler.NewAdminHTTPHandler(svc, logger, jwtManager)
	httpHandler.RegisterRoutes(mux)

	// concurrency limiter (global) — blocks when capacity is full
	limitedHandler := withConcurrencyLimit(maxConcurrent, mux)

	// log service start
	logger.Info(ctx, "service_started",
		fmt.Sprintf("Admin dashboard started on port %d", cfg.Services.AdminServicePort),
		map[string]any{"port": cfg.Services.AdminServicePort, "max_concurrent": maxConcurrent},
	)

	// set up the server configurations
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Services.AdminServicePort), // listen on the specified port
		Handler:           limitedHandler,                                    // apply the concurrency limiter to the HTTP handler
		ReadHeaderTimeout: 5 * time.Second,                                   // time to read headers
		ReadTimeout:       10 * time.Second,                                  // time to read full request body
		WriteTimeout:      15 * time.Second,                                  // full response write timeout
		IdleTimeout:       60 * time.Second,                                  // keep-alive window
		BaseContext:       func(net.Listener) context.Context { return ctx }, // pass base ctx to all handlers
	}

	// start the server in a background goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	// wait for context cancellation or server error
	select {
	case <-ctx.Done():
		// graceful HTTP shutdown on context cancel
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_shutdown_failed", "Failed to gracefully shut down HTTP server", err, nil)
		}
	case err := <-errCh:
		// server returned a terminal error at startup or during run
		if err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_server_error", "HTTP server terminated with error", err, map[string]any{"port": cfg.Services.AdminServicePort})
			return err
		}
		return nil
	}

	return nil
}

// consumeAdminAlerts drains the operator alert queue and writes each alert
// to the structured log so operators see escalations without polling.
func consumeAdminAlerts(ctx context.Context, logger *logger.Logger, rmq *rabbitmq.Client) {
	err := rmq.Consume(ctx, contracts.QueueAdminAlerts, "admin-service-alerts", 10,
		func(ctx context.Context, d amqp.Delivery) error {
			var alert contracts.AdminAlertMessage
			if err := json.Unmarshal(d.Body, &alert); err != nil {
				logger.Error(ctx, "admin_alert_decode_failed", "Failed to decode admin alert", err,
					map[string]any{"routing_key": d.RoutingKey, "size": len(d.Body)})
				return nil
			}

			logger.Info(ctx, "admin_alert", "Operator attention required",
				map[string]any{
					"order_id":     alert.OrderID,
					"order_number": alert.OrderNumber,
					"kind":         alert.Kind,
					"detail":       alert.Detail,
					"rejections":   alert.Rejections,
				})
			return nil
		})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(ctx, "admin_alert_consumer_failed", "Admin alert consumer stopped", err, nil)
	}
}

// withConcurrencyLimit wraps an http.Handler with a semaphore-based limiter.
// It controls how many HTTP requests can be in-progress at the same time.
func withConcurrencyLimit(n int, next http.Handler) http.Handler {
	if n <= 0 {
		return next
	}
	sem := make(chan struct{}, n)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case sem <- struct{}{}: // acquire
			defer func() { <-sem }() // release
			next.ServeHTTP(w, r)
		case <-r.Context().Done():
			// client canceled or server is shutting down
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		}
	})
}
