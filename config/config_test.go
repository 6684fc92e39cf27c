package config_test

import (
	"testing"
	"time"

	"allocator/allocation"
	"allocator/config"
	"allocator/inventory"
	"allocator/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(values map[string]string) func(string) string {
	return func(key string) string {
		return values[key]
	}
}

func TestLoad_defaults(t *testing.T) {
	cfg, err := config.Load(env(nil))
	require.NoError(t, err)

	assert.Equal(t, []inventory.Level{
		{ProductID: "A", Quantity: 10},
		{ProductID: "B", Quantity: 10},
		{ProductID: "C", Quantity: 15},
		{ProductID: "D", Quantity: 15},
		{ProductID: "E", Quantity: 20},
	}, cfg.Levels)
	assert.Equal(t, 5, cfg.PoolSize)
	assert.Equal(t, 100, cfg.QueueSize)
	assert.Equal(t, 3, cfg.ProducerStreams)
	assert.Equal(t, 5*time.Second, cfg.ProducerInterval)
	assert.Equal(t, 5, cfg.ProducerMaxQuantity)
	assert.Equal(t, ledger.Overwrite, cfg.DuplicatePolicy)
	assert.Equal(t, allocation.AcceptAfterExhaustion, cfg.ExhaustedPolicy)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Empty(t, cfg.RedisAddr)
	assert.Empty(t, cfg.PostgresURL)
}

func TestLoad_overrides(t *testing.T) {
	cfg, err := config.Load(env(map[string]string{
		"PRODUCTS":              "X=1, Y=0",
		"POOL_SIZE":             "2",
		"QUEUE_SIZE":            "0",
		"PRODUCER_STREAMS":      "0",
		"PRODUCER_INTERVAL":     "10ms",
		"PRODUCER_MAX_QUANTITY": "3",
		"DUPLICATE_POLICY":      "strict",
		"EXHAUSTED_POLICY":      "reject",
		"HTTP_ADDR":             ":9090",
		"REDIS_ADDR":            "localhost:6379",
	}))
	require.NoError(t, err)

	assert.Equal(t, []inventory.Level{{ProductID: "X", Quantity: 1}, {ProductID: "Y", Quantity: 0}}, cfg.Levels)
	assert.Equal(t, 2, cfg.PoolSize)
	assert.Equal(t, 0, cfg.QueueSize)
	assert.Equal(t, 0, cfg.ProducerStreams)
	assert.Equal(t, 10*time.Millisecond, cfg.ProducerInterval)
	assert.Equal(t, ledger.Strict, cfg.DuplicatePolicy)
	assert.Equal(t, allocation.RejectAfterExhaustion, cfg.ExhaustedPolicy)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestLoad_invalid(t *testing.T) {
	testCases := []struct {
		Name string
		Env  map[string]string
	}{
		{Name: "zero pool", Env: map[string]string{"POOL_SIZE": "0"}},
		{Name: "pool not a number", Env: map[string]string{"POOL_SIZE": "five"}},
		{Name: "negative queue", Env: map[string]string{"QUEUE_SIZE": "-1"}},
		{Name: "bad interval", Env: map[string]string{"PRODUCER_INTERVAL": "soon"}},
		{Name: "negative interval", Env: map[string]string{"PRODUCER_INTERVAL": "-1s"}},
		{Name: "bad duplicate policy", Env: map[string]string{"DUPLICATE_POLICY": "ignore"}},
		{Name: "bad exhausted policy", Env: map[string]string{"EXHAUSTED_POLICY": "drop"}},
		{Name: "bad products", Env: map[string]string{"PRODUCTS": "A"}},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			_, err := config.Load(env(tc.Env))
			assert.Error(t, err)
		})
	}
}

func TestParseProducts(t *testing.T) {
	testCases := []struct {
		Name    string
		Input   string
		Want    []inventory.Level
		WantErr bool
	}{
		{
			Name:  "keeps order",
			Input: "E=1,A=2",
			Want:  []inventory.Level{{ProductID: "E", Quantity: 1}, {ProductID: "A", Quantity: 2}},
		},
		{
			Name:  "trailing comma",
			Input: "A=1,",
			Want:  []inventory.Level{{ProductID: "A", Quantity: 1}},
		},
		{Name: "empty", Input: "", WantErr: true},
		{Name: "missing name", Input: "=3", WantErr: true},
		{Name: "negative", Input: "A=-1", WantErr: true},
		{Name: "duplicate", Input: "A=1,A=2", WantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			levels, err := config.ParseProducts(tc.Input)
			if tc.WantErr {
				assert.ErrorIs(t, err, config.ErrInvalidProducts)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.Want, levels)
		})
	}
}
