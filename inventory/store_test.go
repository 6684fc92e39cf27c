package inventory_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"allocator/entities"
	"allocator/inventory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newStore(t *testing.T, levels ...inventory.Level) *inventory.Store {
	t.Helper()

	store, err := inventory.New(levels)
	require.NoError(t, err)
	return store
}

func TestNew_rejects_bad_configuration(t *testing.T) {
	_, err := inventory.New(nil)
	assert.ErrorIs(t, err, inventory.ErrEmptyCatalog)

	_, err = inventory.New([]inventory.Level{{ProductID: "A", Quantity: -1}})
	assert.ErrorIs(t, err, inventory.ErrNegativeAmount)

	_, err = inventory.New([]inventory.Level{{ProductID: "A", Quantity: 1}, {ProductID: "A", Quantity: 2}})
	assert.ErrorIs(t, err, inventory.ErrDuplicateProduct)

	_, err = inventory.New([]inventory.Level{{ProductID: "", Quantity: 1}})
	assert.ErrorIs(t, err, inventory.ErrUnknownProduct)
}

func TestTryDecrement(t *testing.T) {
	store := newStore(t, inventory.Level{ProductID: "A", Quantity: 10}, inventory.Level{ProductID: "B", Quantity: 0})

	ok, err := store.TryDecrement("A", 4)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.TryDecrement("A", 7)
	require.NoError(t, err)
	assert.False(t, ok, "not enough left, nothing should be taken")

	remaining, err := store.Remaining("A")
	require.NoError(t, err)
	assert.Equal(t, 6, remaining)

	ok, err = store.TryDecrement("A", 6)
	require.NoError(t, err)
	assert.True(t, ok)

	zero, err := store.IsZero("A")
	require.NoError(t, err)
	assert.True(t, zero)
	assert.True(t, store.AllZero())

	ok, err = store.TryDecrement("B", 0)
	require.NoError(t, err)
	assert.True(t, ok, "zero amount always fits")
}

func TestTryDecrement_errors(t *testing.T) {
	store := newStore(t, inventory.Level{ProductID: "A", Quantity: 10})

	_, err := store.TryDecrement("Z", 1)
	assert.ErrorIs(t, err, inventory.ErrUnknownProduct)

	_, err = store.TryDecrement("A", -1)
	assert.ErrorIs(t, err, inventory.ErrNegativeAmount)

	_, err = store.IsZero("Z")
	assert.ErrorIs(t, err, inventory.ErrUnknownProduct)

	assert.False(t, store.Has("Z"))
	assert.True(t, store.Has("A"))
}

func TestProducts_keeps_configuration_order(t *testing.T) {
	store := newStore(t,
		inventory.Level{ProductID: "E", Quantity: 1},
		inventory.Level{ProductID: "A", Quantity: 1},
		inventory.Level{ProductID: "C", Quantity: 1},
	)

	assert.Equal(t, []entities.ProductID{"E", "A", "C"}, store.Products())
	assert.Equal(t, map[entities.ProductID]int{"E": 1, "A": 1, "C": 1}, store.Snapshot())
}

func TestTryDecrement_full_stock_race(t *testing.T) {
	for i := 0; i < 100; i++ {
		store := newStore(t, inventory.Level{ProductID: "A", Quantity: 10})

		var granted atomic.Int32
		start := make(chan struct{})
		wg := sync.WaitGroup{}
		for w := 0; w < 2; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				ok, err := store.TryDecrement("A", 10)
				assert.NoError(t, err)
				if ok {
					granted.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()

		require.EqualValues(t, 1, granted.Load())
		assert.True(t, store.AllZero())
	}
}

func TestTryDecrement_never_oversells(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initial := rapid.IntRange(0, 200).Draw(t, "initial")
		amounts := rapid.SliceOfN(rapid.IntRange(0, 15), 1, 80).Draw(t, "amounts")

		store, err := inventory.New([]inventory.Level{{ProductID: "A", Quantity: initial}})
		if err != nil {
			t.Fatalf("new store: %v", err)
		}

		var taken atomic.Int64
		wg := sync.WaitGroup{}
		for _, amount := range amounts {
			wg.Add(1)
			go func(amount int) {
				defer wg.Done()
				ok, err := store.TryDecrement("A", amount)
				if err != nil {
					panic(err)
				}
				if ok {
					taken.Add(int64(amount))
				}
			}(amount)
		}
		wg.Wait()

		remaining, _ := store.Remaining("A")
		if remaining < 0 {
			t.Fatalf("remaining went negative: %d", remaining)
		}
		if int(taken.Load())+remaining != initial {
			t.Fatalf("taken %d + remaining %d != initial %d", taken.Load(), remaining, initial)
		}
	})
}
