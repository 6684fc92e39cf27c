package tests

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"allocator/config"
	"allocator/inventory"
	"allocator/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponent(t *testing.T) {
	cfg, err := config.Load(func(string) string { return "" })
	require.NoError(t, err)

	cfg.Levels = []inventory.Level{
		{ProductID: "A", Quantity: 2},
		{ProductID: "B", Quantity: 3},
	}
	cfg.PoolSize = 2
	cfg.ProducerStreams = 0
	cfg.HTTPAddr = httpAddr

	var out bytes.Buffer
	svc, err := service.New(cfg, &out)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	finished := make(chan error, 1)
	go func() {
		finished <- svc.Run(ctx)
	}()

	waitForHttpServer(t)

	assert.Equal(t, http.StatusBadRequest, postOrder(t, orderRequest{
		OrderID: "bad:1",
		Lines:   []orderLine{{ProductID: "A", Quantity: 0}},
	}))
	assert.Equal(t, http.StatusBadRequest, postOrder(t, orderRequest{
		OrderID: "bad:2",
		Lines:   []orderLine{{ProductID: "Z", Quantity: 1}},
	}))

	require.Equal(t, http.StatusAccepted, postOrder(t, orderRequest{
		OrderID: "s:1",
		Lines:   []orderLine{{ProductID: "A", Quantity: 2}, {ProductID: "B", Quantity: 1}},
	}))

	require.EventuallyWithT(t, func(t *assert.CollectT) {
		var inv inventoryResponse
		if !getJSON(t, "/inventory", &inv) {
			return
		}
		if assert.Len(t, inv.Products, 2) {
			assert.Equal(t, 0, inv.Products[0].Remaining)
			assert.Equal(t, 2, inv.Products[1].Remaining)
		}
		assert.Equal(t, "running", inv.State)
	}, 10*time.Second, 50*time.Millisecond)

	require.EventuallyWithT(t, func(t *assert.CollectT) {
		var orders ordersResponse
		if !getJSON(t, "/orders", &orders) {
			return
		}
		if assert.Len(t, orders.Rows, 1) {
			assert.Equal(t, []int{2, 1}, orders.Rows[0].Filled)
		}
	}, 10*time.Second, 50*time.Millisecond)

	require.Equal(t, http.StatusAccepted, postOrder(t, orderRequest{
		OrderID: "s:2",
		Lines:   []orderLine{{ProductID: "A", Quantity: 1}, {ProductID: "B", Quantity: 2}},
	}))

	select {
	case err := <-finished:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("service did not stop after the inventory was exhausted")
	}

	assert.Equal(t,
		"s:1  2 1  2 1  0 0 \n"+
			"s:2  1 2  0 2  1 0 \n",
		out.String(),
	)
}
