package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// setter assigns one "key: value" pair inside a section.
type setter func(cfg *Config, val string) error

// parseYAML parses the specific two-level mapping used by config.yaml
func parseYAML(r io.Reader, cfg *Config) error {
	sections := map[string]map[string]setter{
		"database": {
			"host":     setString(func(c *Config, v string) { c.Database.Host = v }),
			"port":     setInt(func(c *Config, v int) { c.Database.Port = v }),
			"user":     setString(func(c *Config, v string) { c.Database.User = v }),
			"password": setString(func(c *Config, v string) { c.Database.Password = v }),
			"database": setString(func(c *Config, v string) { c.Database.Name = v }),
		},
		"rabbitmq": {
			"host":     setString(func(c *Config, v string) { c.RabbitMQ.Host = v }),
			"port":     setInt(func(c *Config, v int) { c.RabbitMQ.Port = v }),
			"user":     setString(func(c *Config, v string) { c.RabbitMQ.User = v }),
			"password": setString(func(c *Config, v string) { c.RabbitMQ.Password = v }),
		},
		"redis": {
			"host":     setString(func(c *Config, v string) { c.Redis.Host = v }),
			"port":     setInt(func(c *Config, v int) { c.Redis.Port = v }),
			"password": setString(func(c *Config, v string) { c.Redis.Password = v }),
			"db":       setInt(func(c *Config, v int) { c.Redis.DB = v }),
		},
		"maps": {
			"api_key":         setString(func(c *Config, v string) { c.Maps.APIKey = v }),
			"request_timeout": setDuration(func(c *Config, v time.Duration) { c.Maps.RequestTimeout = v }),
		},
		"websocket": {
			"port": setInt(func(c *Config, v int) { c.WebSocket.Port = v }),
		},
		"services": {
			"order_service":    setInt(func(c *Config, v int) { c.Services.OrderServicePort = v }),
			"dispatch_service": setInt(func(c *Config, v int) { c.Services.DispatchServicePort = v }),
			"admin_service":    setInt(func(c *Config, v int) { c.Services.AdminServicePort = v }),
		},
		"jwt": {
			"secret_key": setString(func(c *Config, v string) { c.JWT.SecretKey = v }),
		},
		"dispatch": {
			"offer_timeout":      setDuration(func(c *Config, v time.Duration) { c.Dispatch.OfferTimeout = v }),
			"retry_delay":        setDuration(func(c *Config, v time.Duration) { c.Dispatch.RetryDelay = v }),
			"max_rejections":     setInt(func(c *Config, v int) { c.Dispatch.MaxRejections = v }),
			"escalate_after":     setDuration(func(c *Config, v time.Duration) { c.Dispatch.EscalateAfter = v }),
			"search_radii_km":    setFloatList(func(c *Config, v []float64) { c.Dispatch.SearchRadiiKM = v }),
			"max_candidates":     setInt(func(c *Config, v int) { c.Dispatch.MaxCandidates = v }),
			"location_ttl":       setDuration(func(c *Config, v time.Duration) { c.Dispatch.LocationTTL = v }),
			"oracle_call_budget": setDuration(func(c *Config, v time.Duration) { c.Dispatch.OracleCallBudget = v }),
		},
		"settlement": {
			"commission_rate":     setDecimal(func(c *Config, v decimal.Decimal) { c.Settlement.CommissionRate = v }),
			"platform_driver_fee": setDecimal(func(c *Config, v decimal.Decimal) { c.Settlement.PlatformDriverFee = v }),
		},
		"cleanup": {
			"stale_payment_age": setDuration(func(c *Config, v time.Duration) { c.Cleanup.StalePaymentAge = v }),
			"interval":          setDuration(func(c *Config, v time.Duration) { c.Cleanup.Interval = v }),
		},
	}

	scanner := bufio.NewScanner(r)
	var cur map[string]setter
	var curName string
	seenTop := map[string]bool{}
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()

		// strip comments
		if i := strings.IndexByte(raw, '#'); i >= 0 {
			raw = raw[:i]
		}

		line := strings.TrimRight(raw, " \t\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}

		// top-level section? (no leading spaces)
		if line[0] != ' ' && line[0] != '\t' {
			name := strings.TrimSuffix(strings.TrimSpace(line), ":")
			section, ok := sections[name]
			if !ok {
				return fmt.Errorf("line %d: unknown top-level key %q", lineNo, name)
			}
			if seenTop[name] {
				return fmt.Errorf("line %d: duplicate %q section", lineNo, name)
			}
			seenTop[name] = true
			cur = section
			curName = name
			continue
		}

		// expect indented "key: value"
		if cur == nil {
			return fmt.Errorf("line %d: key without a section", lineNo)
		}
		trim := strings.TrimSpace(line)
		colon := strings.IndexByte(trim, ':')
		if colon <= 0 {
			return fmt.Errorf("line %d: expected 'key: value'", lineNo)
		}
		key := strings.TrimSpace(trim[:colon])
		val := strings.TrimSpace(trim[colon+1:])

		set, ok := cur[key]
		if !ok {
			return fmt.Errorf("line %d: unknown key in %s: %q", lineNo, curName, key)
		}
		if err := set(cfg, val); err != nil {
			return fmt.Errorf("line %d: %s.%s: %w", lineNo, curName, key, err)
		}
	}

	return scanner.Err()
}

// ----- setter constructors -----

func setString(assign func(*Config, string)) setter {
	return func(cfg *Config, val string) error {
		assign(cfg, resolveScalar(val))
		return nil
	}
}

func setInt(assign func(*Config, int)) setter {
	return func(cfg *Config, val string) error {
		n, err := strconv.Atoi(resolveScalar(val))
		if err != nil {
			return fmt.Errorf("must be int: %v", err)
		}
		assign(cfg, n)
		return nil
	}
}

func setDuration(assign func(*Config, time.Duration)) setter {
	return func(cfg *Config, val string) error {
		d, err := time.ParseDuration(resolveScalar(val))
		if err != nil {
			return fmt.Errorf("must be a duration (e.g. 30s, 15m): %v", err)
		}
		assign(cfg, d)
		return nil
	}
}

func setDecimal(assign func(*Config, decimal.Decimal)) setter {
	return func(cfg *Config, val string) error {
		d, err := decimal.NewFromString(resolveScalar(val))
		if err != nil {
			return fmt.Errorf("must be a decimal number: %v", err)
		}
		assign(cfg, d)
		return nil
	}
}

// setFloatList parses an inline YAML list like "[2, 5, 10]".
func setFloatList(assign func(*Config, []float64)) setter {
	return func(cfg *Config, val string) error {
		val = strings.TrimSpace(val)
		if !strings.HasPrefix(val, "[") || !strings.HasSuffix(val, "]") {
			return fmt.Errorf("must be an inline list like [2, 5, 10]")
		}
		inner := strings.TrimSpace(val[1 : len(val)-1])
		if inner == "" {
			assign(cfg, nil)
			return nil
		}
		parts := strings.Split(inner, ",")
		out := make([]float64, 0, len(parts))
		for _, p := range parts {
			f, err := strconv.ParseFloat(resolveScalar(p), 64)
			if err != nil {
				return fmt.Errorf("list entries must be numbers: %v", err)
			}
			out = append(out, f)
		}
		assign(cfg, out)
		return nil
	}
}

// resolveScalar trims whitespace and removes surrounding quotes from YAML-like scalars.
// For example:
//
//	"localhost"  -> localhost
//	'password123' -> password123
//	localhost     -> localhost
//
// This ensures values like jwt.secret_key are not stored with extra quotes.
func resolveScalar(s string) string {
	s = strings.TrimSpace(s)

	// if value is quoted with "..." or '...', remove quotes safely
	n := len(s)
	if n >= 2 {
		if (s[0] == '"' && s[n-1] == '"') || (s[0] == '\'' && s[n-1] == '\'') {
			if unq, err := strconv.Unquote(s); err == nil {
				return unq
			}
			// fallback if strconv.Unquote fails (e.g., mismatched quotes)
			return s[1 : n-1]
		}
	}

	return s
}
