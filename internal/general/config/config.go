package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	Database struct {
		Host     string
		Port     int
		User     string
		Password string
		Name     string // YAML key: "database"
	}
	RabbitMQ struct {
		Host     string
		Port     int
		User     string
		Password string
	}
	Redis struct {
		Host     string
		Port     int
		Password string
		DB       int
	}
	Maps struct {
		APIKey         string
		RequestTimeout time.Duration
	}
	WebSocket struct {
		Port int
	}
	Services struct {
		OrderServicePort    int
		DispatchServicePort int
		AdminServicePort    int
	}
	JWT struct {
		SecretKey string
	}
	Dispatch struct {
		OfferTimeout     time.Duration // how long a driver may sit on an offer
		RetryDelay       time.Duration // pause between dispatch rounds
		MaxRejections    int           // rejections before escalating to an operator
		EscalateAfter    time.Duration // max time in the dispatch loop before escalating
		SearchRadiiKM    []float64     // expanding candidate search rings
		MaxCandidates    int           // straight-line shortlist size
		LocationTTL      time.Duration // max staleness of a driver location fix
		OracleCallBudget time.Duration // total budget for re-ranking a shortlist
	}
	Settlement struct {
		CommissionRate    decimal.Decimal // platform's fraction of the subtotal
		PlatformDriverFee decimal.Decimal // flat slice of the delivery fee
	}
	Cleanup struct {
		StalePaymentAge time.Duration // how long an UNPAID VNPAY order may linger
		Interval        time.Duration
	}
}

// LoadFromFile loads config from a YAML file to a Config struct, applies defaults, and validates required fields.
func LoadFromFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := parseYAML(file, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets safe defaults for some fields.
func applyDefaults(cfg *Config) {
	// Database
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}

	// RabbitMQ
	if cfg.RabbitMQ.Host == "" {
		cfg.RabbitMQ.Host = "localhost"
	}
	if cfg.RabbitMQ.Port == 0 {
		cfg.RabbitMQ.Port = 5672
	}

	// Redis
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}

	// Maps
	if cfg.Maps.RequestTimeout == 0 {
		cfg.Maps.RequestTimeout = 2 * time.Second
	}

	// WebSocket
	if cfg.WebSocket.Port == 0 {
		cfg.WebSocket.Port = 8080
	}

	// Services
	if cfg.Services.OrderServicePort == 0 {
		cfg.Services.OrderServicePort = 3000
	}
	if cfg.Services.DispatchServicePort == 0 {
		cfg.Services.DispatchServicePort = 3001
	}
	if cfg.Services.AdminServicePort == 0 {
		cfg.Services.AdminServicePort = 3004
	}

	if cfg.JWT.SecretKey == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			// fallback: time-based bytes
			key = []byte(fmt.Sprintf("%d", time.Now().UnixNano()))
		}
		cfg.JWT.SecretKey = base64.StdEncoding.EncodeToString(key)
	}

	// Dispatch
	if cfg.Dispatch.OfferTimeout == 0 {
		cfg.Dispatch.OfferTimeout = 30 * time.Second
	}
	if cfg.Dispatch.RetryDelay == 0 {
		cfg.Dispatch.RetryDelay = 5 * time.Second
	}
	if cfg.Dispatch.MaxRejections == 0 {
		cfg.Dispatch.MaxRejections = 5
	}
	if cfg.Dispatch.EscalateAfter == 0 {
		cfg.Dispatch.EscalateAfter = 15 * time.Minute
	}
	if len(cfg.Dispatch.SearchRadiiKM) == 0 {
		cfg.Dispatch.SearchRadiiKM = []float64{2, 5, 10}
	}
	if cfg.Dispatch.MaxCandidates == 0 {
		cfg.Dispatch.MaxCandidates = 20
	}
	if cfg.Dispatch.LocationTTL == 0 {
		cfg.Dispatch.LocationTTL = 3 * time.Minute
	}
	if cfg.Dispatch.OracleCallBudget == 0 {
		cfg.Dispatch.OracleCallBudget = 3 * time.Second
	}

	// Settlement
	if cfg.Settlement.CommissionRate.IsZero() {
		cfg.Settlement.CommissionRate = decimal.NewFromFloat(0.20)
	}

	// Cleanup
	if cfg.Cleanup.StalePaymentAge == 0 {
		cfg.Cleanup.StalePaymentAge = 15 * time.Minute
	}
	if cfg.Cleanup.Interval == 0 {
		cfg.Cleanup.Interval = 5 * time.Minute
	}
}

// validate checks required fields and basic ranges.
func (c *Config) validate() error {
	var problems []string

	// DB
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		problems = append(problems, "database.port must be in 1..65535")
	}
	if c.Database.User == "" {
		problems = append(problems, "database.user is required")
	}
	if c.Database.Password == "" {
		problems = append(problems, "database.password is required")
	}
	if c.Database.Name == "" {
		problems = append(problems, "database.name is required")
	}

	// RabbitMQ
	if c.RabbitMQ.Port <= 0 || c.RabbitMQ.Port > 65535 {
		problems = append(problems, "rabbitmq.port must be in 1..65535")
	}
	if c.RabbitMQ.User == "" {
		problems = append(problems, "rabbitmq.user is required")
	}
	if c.RabbitMQ.Password == "" {
		problems = append(problems, "rabbitmq.password is required")
	}

	// Redis
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		problems = append(problems, "redis.port must be in 1..65535")
	}

	// WebSocket
	if c.WebSocket.Port <= 0 || c.WebSocket.Port > 65535 {
		problems = append(problems, "websocket.port must be in 1..65535")
	}

	// Services
	if c.Services.OrderServicePort <= 0 || c.Services.OrderServicePort > 65535 {
		problems = append(problems, "services.order_service must be in 1..65535")
	}
	if c.Services.DispatchServicePort <= 0 || c.Services.DispatchServicePort > 65535 {
		problems = append(problems, "services.dispatch_service must be in 1..65535")
	}
	if c.Services.AdminServicePort <= 0 || c.Services.AdminServicePort > 65535 {
		problems = append(problems, "services.admin_service must be in 1..65535")
	}

	// Dispatch
	if c.Dispatch.MaxRejections < 1 {
		problems = append(problems, "dispatch.max_rejections must be at least 1")
	}
	for _, r := range c.Dispatch.SearchRadiiKM {
		if r <= 0 {
			problems = append(problems, "dispatch.search_radii_km entries must be positive")
			break
		}
	}
	if c.Dispatch.MaxCandidates < 1 {
		problems = append(problems, "dispatch.max_candidates must be at least 1")
	}

	// Settlement
	if c.Settlement.CommissionRate.IsNegative() || c.Settlement.CommissionRate.GreaterThan(decimal.NewFromInt(1)) {
		problems = append(problems, "settlement.commission_rate must be between 0 and 1")
	}
	if c.Settlement.PlatformDriverFee.IsNegative() {
		problems = append(problems, "settlement.platform_driver_fee cannot be negative")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
