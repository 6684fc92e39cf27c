// Package config reads the allocator settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"allocator/allocation"
	"allocator/entities"
	"allocator/inventory"
	"allocator/ledger"
)

const DefaultProducts = "A=10,B=10,C=15,D=15,E=20"

var ErrInvalidProducts = errors.New("invalid PRODUCTS")

type Config struct {
	Levels          []inventory.Level
	PoolSize        int
	QueueSize       int
	DuplicatePolicy ledger.DuplicatePolicy
	ExhaustedPolicy allocation.ExhaustedPolicy

	ProducerStreams     int
	ProducerInterval    time.Duration
	ProducerMaxQuantity int

	HTTPAddr       string
	RedisAddr      string
	PostgresURL    string
	JaegerEndpoint string
}

// FromEnv reads the configuration from the process environment.
func FromEnv() (Config, error) {
	return Load(os.Getenv)
}

// Load reads the configuration through getenv, unset values fall back to defaults.
func Load(getenv func(string) string) (Config, error) {
	var (
		cfg  Config
		errs []error
		err  error
	)

	cfg.Levels, err = ParseProducts(valueOr(getenv("PRODUCTS"), DefaultProducts))
	errs = append(errs, err)

	cfg.PoolSize, err = positiveInt(getenv, "POOL_SIZE", 5)
	errs = append(errs, err)
	cfg.QueueSize, err = nonNegativeInt(getenv, "QUEUE_SIZE", 100)
	errs = append(errs, err)
	cfg.ProducerStreams, err = nonNegativeInt(getenv, "PRODUCER_STREAMS", 3)
	errs = append(errs, err)
	cfg.ProducerMaxQuantity, err = positiveInt(getenv, "PRODUCER_MAX_QUANTITY", 5)
	errs = append(errs, err)

	cfg.ProducerInterval, err = time.ParseDuration(valueOr(getenv("PRODUCER_INTERVAL"), "5s"))
	if err == nil && cfg.ProducerInterval < 0 {
		err = fmt.Errorf("PRODUCER_INTERVAL can't be negative: %s", cfg.ProducerInterval)
	}
	errs = append(errs, err)

	cfg.DuplicatePolicy, err = ledger.ParseDuplicatePolicy(getenv("DUPLICATE_POLICY"))
	errs = append(errs, err)
	cfg.ExhaustedPolicy, err = allocation.ParseExhaustedPolicy(getenv("EXHAUSTED_POLICY"))
	errs = append(errs, err)

	cfg.HTTPAddr = valueOr(getenv("HTTP_ADDR"), ":8080")
	cfg.RedisAddr = getenv("REDIS_ADDR")
	cfg.PostgresURL = getenv("POSTGRES_URL")
	cfg.JaegerEndpoint = getenv("JAEGER_ENDPOINT")

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseProducts reads a comma separated list of product=quantity pairs,
// keeping the order in which products are listed.
func ParseProducts(s string) ([]inventory.Level, error) {
	var levels []inventory.Level
	seen := make(map[string]struct{})

	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		name, quantity, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q is not product=quantity", ErrInvalidProducts, pair)
		}
		if _, ok := seen[name]; ok {
			return nil, fmt.Errorf("%w: %s listed twice", ErrInvalidProducts, name)
		}
		seen[name] = struct{}{}

		q, err := strconv.Atoi(strings.TrimSpace(quantity))
		if err != nil || q < 0 {
			return nil, fmt.Errorf("%w: quantity of %s must be a non-negative integer", ErrInvalidProducts, name)
		}

		levels = append(levels, inventory.Level{ProductID: entities.ProductID(name), Quantity: q})
	}

	if len(levels) == 0 {
		return nil, fmt.Errorf("%w: no products", ErrInvalidProducts)
	}
	return levels, nil
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func nonNegativeInt(getenv func(string) string, key string, fallback int) (int, error) {
	raw := getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", key, raw)
	}
	return v, nil
}

func positiveInt(getenv func(string) string, key string, fallback int) (int, error) {
	v, err := nonNegativeInt(getenv, key, fallback)
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return v, nil
}
