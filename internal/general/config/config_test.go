package config

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

const sampleYAML = `
database:
  host: db.internal
  port: 5433
  user: app
  password: "s3cret"
  database: food_dispatch

rabbitmq:
  user: guest
  password: guest

redis:
  host: cache.internal

maps:
  api_key: "test-key"
  request_timeout: 1500ms

jwt:
  secret_key: 'abc123'

dispatch:
  offer_timeout: 45s
  max_rejections: 3
  escalate_after: 10m
  search_radii_km: [1.5, 4, 8]

settlement:
  commission_rate: 0.25
  platform_driver_fee: 5.00

cleanup:
  stale_payment_age: 20m
`

func TestLoadSample(t *testing.T) {
	var cfg Config
	if err := parseYAML(strings.NewReader(sampleYAML), &cfg); err != nil {
		t.Fatalf("parseYAML: %v", err)
	}
	applyDefaults(&cfg)
	if err := cfg.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	if cfg.Database.Host != "db.internal" || cfg.Database.Port != 5433 {
		t.Errorf("database = %s:%d", cfg.Database.Host, cfg.Database.Port)
	}
	if cfg.Database.Password != "s3cret" {
		t.Errorf("quoted password = %q", cfg.Database.Password)
	}
	if cfg.JWT.SecretKey != "abc123" {
		t.Errorf("single-quoted secret = %q", cfg.JWT.SecretKey)
	}
	if cfg.Maps.RequestTimeout != 1500*time.Millisecond {
		t.Errorf("maps timeout = %v", cfg.Maps.RequestTimeout)
	}
	if cfg.Dispatch.OfferTimeout != 45*time.Second || cfg.Dispatch.MaxRejections != 3 {
		t.Errorf("dispatch = %v/%d", cfg.Dispatch.OfferTimeout, cfg.Dispatch.MaxRejections)
	}
	if len(cfg.Dispatch.SearchRadiiKM) != 3 || cfg.Dispatch.SearchRadiiKM[0] != 1.5 {
		t.Errorf("radii = %v", cfg.Dispatch.SearchRadiiKM)
	}
	if !cfg.Settlement.CommissionRate.Equal(decimal.NewFromFloat(0.25)) {
		t.Errorf("commission rate = %s", cfg.Settlement.CommissionRate)
	}
	if !cfg.Settlement.PlatformDriverFee.Equal(decimal.NewFromInt(5)) {
		t.Errorf("platform driver fee = %s", cfg.Settlement.PlatformDriverFee)
	}
	if cfg.Cleanup.StalePaymentAge != 20*time.Minute {
		t.Errorf("stale payment age = %v", cfg.Cleanup.StalePaymentAge)
	}
}

func TestDefaults(t *testing.T) {
	var cfg Config
	minimal := `
database:
  user: app
  password: pw
  database: food_dispatch
rabbitmq:
  user: guest
  password: guest
`
	if err := parseYAML(strings.NewReader(minimal), &cfg); err != nil {
		t.Fatalf("parseYAML: %v", err)
	}
	applyDefaults(&cfg)
	if err := cfg.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	if cfg.Database.Port != 5432 || cfg.Redis.Port != 6379 {
		t.Errorf("default ports: db=%d redis=%d", cfg.Database.Port, cfg.Redis.Port)
	}
	if cfg.Dispatch.OfferTimeout != 30*time.Second {
		t.Errorf("default offer timeout = %v", cfg.Dispatch.OfferTimeout)
	}
	if want := []float64{2, 5, 10}; len(cfg.Dispatch.SearchRadiiKM) != len(want) {
		t.Errorf("default radii = %v", cfg.Dispatch.SearchRadiiKM)
	}
	if !cfg.Settlement.CommissionRate.Equal(decimal.NewFromFloat(0.20)) {
		t.Errorf("default commission = %s", cfg.Settlement.CommissionRate)
	}
	if cfg.JWT.SecretKey == "" {
		t.Error("jwt secret should be generated when missing")
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"unknown section", "smtp:\n  host: x\n"},
		{"unknown key", "database:\n  hostname: x\n"},
		{"bad int", "database:\n  port: eighty\n"},
		{"bad duration", "dispatch:\n  offer_timeout: soon\n"},
		{"bad list", "dispatch:\n  search_radii_km: 2 5 10\n"},
		{"key without section", "  port: 5432\n"},
		{"duplicate section", "jwt:\n  secret_key: a\njwt:\n  secret_key: b\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var cfg Config
			if err := parseYAML(strings.NewReader(tc.yaml), &cfg); err == nil {
				t.Fatal("expected parse error")
			}
		})
	}
}
