package dispatchservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"food-dispatch/internal/general/config"
	"food-dispatch/internal/general/jwt"
	"food-dispatch/internal/general/logger"
	"food-dispatch/internal/general/mapsoracle"
	"food-dispatch/internal/general/postgres"
	"food-dispatch/internal/general/rabbitmq"
	"food-dispatch/internal/general/redisgeo"
	"food-dispatch/internal/general/websocket"
	"food-dispatch/internal/ports"
	"food-dispatch/internal/software/dispatch/handler"
	"food-dispatch/internal/software/dispatch/service"
)

// Run wires the dispatch service and blocks until ctx is cancelled.
func Run(ctx context.Context, maxConcurrent int) error {
	// set up a new logger and context for dispatch service with a static request ID for startup logs
	logger := logger.New("dispatch-service")
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

	// connect to RabbitMQ
	rmq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err, nil)
		return err
	}

	// connect to Redis for the live driver location index
	redisClient, err := redisgeo.NewClient(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "redis_connection_failed", "Failed to connect to Redis", err, nil)
		return err
	}
	defer redisClient.Close()
	locStore := redisgeo.NewStore(redisClient, cfg.Dispatch.LocationTTL)

	// set up the routing oracle; without an API key the selector ranks by
	// straight-line distance only
	var oracle ports.DistanceOracle
	if cfg.Maps.APIKey != "" {
		mapsOracle, err := mapsoracle.New(cfg.Maps.APIKey, cfg.Maps.RequestTimeout)
		if err != nil {
			logger.Error(ctx, "maps_client_failed", "Failed to initialize Maps client", err, nil)
			return err
		}
		oracle = mapsOracle
	} else {
		logger.Info(ctx, "maps_disabled", "No Maps API key configured, using straight-line ranking", nil)
	}

	// set up the RabbitMQ publisher
	pub := rabbitmq.NewMQPublisher(rmq)

	// set up the JWT manager
	jwtManager := jwt.NewManager(cfg.JWT.SecretKey, 2*time.Hour)

	// set up the necessary repos
	uow := postgres.NewUnitOfWork(pool)
	driverRepo := postgres.NewDriverRepo()
	sessionRepo := postgres.NewDriverSessionRepo()
	locHistoryRepo := postgres.NewLocationHistoryRepo()
	coordsRepo := postgres.NewCoordinatesRepo(locHistoryRepo)
	orderRepo := postgres.NewOrderRepo()
	orderEventRepo := postgres.NewOrderEventRepo()
	rejectionRepo := postgres.NewRejectionRepo()
	walletRepo := postgres.NewWalletRepo()
	earningsRepo := postgres.NewEarningsRepo()

	// set up the websocket handler
	ws := websocket.NewWebSocket(logger, jwtManager, pub, coordsRepo, orderRepo, locStore, uow)

	// set up the dispatch service
	svc := service.NewDispatchService(
		logger, cfg, uow,
		driverRepo, sessionRepo, coordsRepo, locHistoryRepo,
		orderRepo, orderEventRepo, rejectionRepo,
		walletRepo, earningsRepo,
		locStore, oracle,
		pub, rmq, ws,
	)

	// run the offer loop, expiry sweep and MQ consumers
	svc.StartBackgroundWorkers(ctx)

	// set up the HTTP handler and its routes
	mux := http.NewServeMux()
	httpHandler := handler.NewDispatchHTTPHandler(svc, logger, jwtManager, ws)
	httpHandler.RegisterRoutes(mux)

	// concurrency limiter (global) — blocks when capacity is full
	limitedHandler := withConcurrencyLimit(maxConcurrent, mux)

	// set up the server configurations
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Services.DispatchServicePort), // listen on the specified port
		Handler:           limitedHandler,                                       // apply the concurrency limiter to the HTTP handler
		ReadHeaderTimeout: 5 * time.Second,                                      // time to read headers
		ReadTimeout:       10 * time.Second,                                     // time to read full request body
		WriteTimeout:      15 * time.Second,                                     // full response write timeout
		IdleTimeout:       60 * time.Second,                                     // keep-alive window
		BaseContext:       func(net.Listener) context.Context { return ctx },    // pass base ctx to all handlers
	}

	// log service start
	logger.Info(ctx, "service_started",
		fmt.Sprintf("Dispatch Service started on port %d", cfg.Services.DispatchServicePort),
		map[string]any{"port": cfg.Services.DispatchServicePort, "max_concurrent": maxConcurrent},
	)

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
			logger.Error(ctx, "http_server_error", "HTTP server terminated with error", err, map[string]any{"port": cfg.Services.DispatchServicePort})
			return err
		}
		return nil
	}

	return nil
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
