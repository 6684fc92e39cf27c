package allocation_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"allocator/allocation"
	"allocator/entities"
	"allocator/inventory"
	"allocator/ledger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publisherMock struct {
	lock   sync.Mutex
	events []any
	err    error
}

func (p *publisherMock) Publish(_ context.Context, event any) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.events = append(p.events, event)
	return p.err
}

func (p *publisherMock) exhaustedEvents() int {
	p.lock.Lock()
	defer p.lock.Unlock()

	count := 0
	for _, event := range p.events {
		if _, ok := event.(entities.InventoryExhausted_v1); ok {
			count++
		}
	}
	return count
}

func (p *publisherMock) allocatedEvents() []entities.OrderAllocated_v1 {
	p.lock.Lock()
	defer p.lock.Unlock()

	var allocated []entities.OrderAllocated_v1
	for _, event := range p.events {
		if e, ok := event.(entities.OrderAllocated_v1); ok {
			allocated = append(allocated, e)
		}
	}
	return allocated
}

type engineFixture struct {
	engine    *allocation.Engine
	store     *inventory.Store
	ledger    *ledger.Ledger
	detector  *allocation.Detector
	gate      *allocation.Gate
	publisher *publisherMock
}

func newEngineFixture(t *testing.T, policy ledger.DuplicatePolicy, levels ...inventory.Level) engineFixture {
	t.Helper()

	store, err := inventory.New(levels)
	require.NoError(t, err)

	f := engineFixture{
		store:     store,
		ledger:    ledger.New(policy),
		gate:      allocation.NewGate(),
		publisher: &publisherMock{},
	}
	f.detector = allocation.NewDetector(store, func(context.Context) { f.gate.Signal() })
	f.engine = allocation.NewEngine(store, f.ledger, f.detector, f.publisher, nil)
	return f
}

func line(productID entities.ProductID, quantity int) entities.OrderLine {
	return entities.OrderLine{ProductID: productID, Quantity: quantity}
}

func TestEngine_Process_fills_whole_lines_only(t *testing.T) {
	f := newEngineFixture(t, ledger.Overwrite,
		inventory.Level{ProductID: "A", Quantity: 3},
		inventory.Level{ProductID: "B", Quantity: 10},
	)

	status, err := f.engine.Process(context.Background(), entities.NewOrder("s:1", line("A", 4), line("B", 2)))
	require.NoError(t, err)

	assert.Equal(t, []entities.FilledLine{
		{ProductID: "A", Requested: 4, Filled: 0},
		{ProductID: "B", Requested: 2, Filled: 2},
	}, status.Lines)
	assert.False(t, status.ProcessedAt.IsZero())

	remaining := f.store.Snapshot()
	assert.Equal(t, 3, remaining["A"], "no partial fill")
	assert.Equal(t, 8, remaining["B"])

	recorded, ok := f.ledger.Get("s:1")
	require.True(t, ok)
	assert.Equal(t, status, recorded)

	allocated := f.publisher.allocatedEvents()
	require.Len(t, allocated, 1)
	assert.Equal(t, "s:1", allocated[0].OrderID)
	assert.Equal(t, status.Lines, allocated[0].Lines)
}

func TestEngine_Process_zero_lines(t *testing.T) {
	f := newEngineFixture(t, ledger.Overwrite, inventory.Level{ProductID: "A", Quantity: 0})

	status, err := f.engine.Process(context.Background(), entities.NewOrder("s:1"))
	require.NoError(t, err)
	assert.Empty(t, status.Lines)

	assert.True(t, f.detector.Exhausted(), "termination is checked even for an empty order")
	assert.True(t, f.gate.Signaled())
}

func TestEngine_Process_all_zero_order_is_a_noop(t *testing.T) {
	f := newEngineFixture(t, ledger.Overwrite, inventory.Level{ProductID: "A", Quantity: 5})

	status, err := f.engine.Process(context.Background(), entities.NewOrder("s:1", line("A", 0)))
	require.NoError(t, err)
	assert.Equal(t, []entities.FilledLine{{ProductID: "A"}}, status.Lines)
	assert.Equal(t, map[entities.ProductID]int{"A": 5}, f.store.Snapshot())
	assert.False(t, f.detector.Exhausted())
}

func TestEngine_Process_unknown_product_is_backordered(t *testing.T) {
	f := newEngineFixture(t, ledger.Overwrite, inventory.Level{ProductID: "A", Quantity: 5})

	status, err := f.engine.Process(context.Background(), entities.NewOrder("s:1", line("Z", 1), line("A", 1)))
	require.NoError(t, err)
	assert.Equal(t, []entities.FilledLine{
		{ProductID: "Z", Requested: 1, Filled: 0},
		{ProductID: "A", Requested: 1, Filled: 1},
	}, status.Lines)
}

func TestEngine_Process_after_exhaustion(t *testing.T) {
	f := newEngineFixture(t, ledger.Overwrite, inventory.Level{ProductID: "A", Quantity: 2})

	_, err := f.engine.Process(context.Background(), entities.NewOrder("s:1", line("A", 2)))
	require.NoError(t, err)
	require.True(t, f.detector.Exhausted())

	status, err := f.engine.Process(context.Background(), entities.NewOrder("s:2", line("A", 0), line("A", 1)))
	require.NoError(t, err)
	assert.Equal(t, []entities.FilledLine{
		{ProductID: "A", Requested: 0, Filled: 0},
		{ProductID: "A", Requested: 1, Filled: 0},
	}, status.Lines)
	assert.Equal(t, 1, f.gate.Signals())
}

func TestEngine_Process_duplicate_orders(t *testing.T) {
	t.Run("overwrite", func(t *testing.T) {
		f := newEngineFixture(t, ledger.Overwrite, inventory.Level{ProductID: "A", Quantity: 10})

		_, err := f.engine.Process(context.Background(), entities.NewOrder("s:1", line("A", 2)))
		require.NoError(t, err)
		_, err = f.engine.Process(context.Background(), entities.NewOrder("s:1", line("A", 3)))
		require.NoError(t, err)

		assert.Equal(t, 1, f.ledger.Len())
		recorded, _ := f.ledger.Get("s:1")
		assert.Equal(t, 3, recorded.Lines[0].Filled, "last write wins")
	})

	t.Run("strict", func(t *testing.T) {
		f := newEngineFixture(t, ledger.Strict, inventory.Level{ProductID: "A", Quantity: 10})

		_, err := f.engine.Process(context.Background(), entities.NewOrder("s:1", line("A", 2)))
		require.NoError(t, err)
		_, err = f.engine.Process(context.Background(), entities.NewOrder("s:1", line("A", 3)))
		assert.ErrorIs(t, err, ledger.ErrDuplicateOrder)

		assert.Equal(t, map[entities.ProductID]int{"A": 8}, f.store.Snapshot(), "refused duplicate takes nothing")
	})
}

func TestEngine_Process_publish_failure_does_not_fail_allocation(t *testing.T) {
	f := newEngineFixture(t, ledger.Overwrite, inventory.Level{ProductID: "A", Quantity: 10})
	f.publisher.err = errors.New("broker down")

	status, err := f.engine.Process(context.Background(), entities.NewOrder("s:1", line("A", 2)))
	require.NoError(t, err)
	assert.Equal(t, 2, status.Lines[0].Filled)
}

func TestEngine_Process_metrics(t *testing.T) {
	store, err := inventory.New([]inventory.Level{{ProductID: "A", Quantity: 3}})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	metrics := allocation.NewMetrics(reg)
	l := ledger.New(ledger.Overwrite)
	engine := allocation.NewEngine(store, l, allocation.NewDetector(store), nil, metrics)

	_, err = engine.Process(context.Background(), entities.NewOrder("s:1", line("A", 2)))
	require.NoError(t, err)
	_, err = engine.Process(context.Background(), entities.NewOrder("s:2", line("A", 2)))
	require.NoError(t, err)

	expected := `
# HELP allocator_units_backordered_total Units requested but not granted.
# TYPE allocator_units_backordered_total counter
allocator_units_backordered_total{product="A"} 2
# HELP allocator_units_filled_total Units granted from inventory.
# TYPE allocator_units_filled_total counter
allocator_units_filled_total{product="A"} 2
# HELP allocator_inventory_remaining Units left per product.
# TYPE allocator_inventory_remaining gauge
allocator_inventory_remaining{product="A"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"allocator_units_backordered_total",
		"allocator_units_filled_total",
		"allocator_inventory_remaining",
	))
}
