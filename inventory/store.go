// Package inventory keeps the remaining quantity of every product.
//
// Every counter is decremented with a compare-and-swap loop, so a decrement either
// takes the whole requested amount or nothing, and two callers can never both be
// granted the same units.
package inventory

import (
	"errors"
	"fmt"
	"sync/atomic"

	"allocator/entities"
)

var (
	ErrUnknownProduct   = errors.New("unknown product")
	ErrNegativeAmount   = errors.New("amount can't be negative")
	ErrEmptyCatalog     = errors.New("inventory needs at least one product")
	ErrDuplicateProduct = errors.New("product listed twice")
)

// Level is the initial stock of one product.
type Level struct {
	ProductID entities.ProductID
	Quantity  int
}

type counter struct {
	remaining atomic.Int64
}

func (c *counter) tryDecrement(amount int64) bool {
	for {
		current := c.remaining.Load()
		if current < amount {
			return false
		}
		if c.remaining.CompareAndSwap(current, current-amount) {
			return true
		}
	}
}

// Store is safe for concurrent use. The set of products is fixed at construction,
// so the map itself is never written after New returns.
type Store struct {
	products []entities.ProductID
	counters map[entities.ProductID]*counter
}

func New(levels []Level) (*Store, error) {
	if len(levels) == 0 {
		return nil, ErrEmptyCatalog
	}

	s := &Store{
		products: make([]entities.ProductID, 0, len(levels)),
		counters: make(map[entities.ProductID]*counter, len(levels)),
	}
	for _, level := range levels {
		if level.ProductID == "" {
			return nil, fmt.Errorf("product with empty id: %w", ErrUnknownProduct)
		}
		if level.Quantity < 0 {
			return nil, fmt.Errorf("initial level of %s: %w", level.ProductID, ErrNegativeAmount)
		}
		if _, exists := s.counters[level.ProductID]; exists {
			return nil, fmt.Errorf("%s: %w", level.ProductID, ErrDuplicateProduct)
		}

		c := &counter{}
		c.remaining.Store(int64(level.Quantity))
		s.counters[level.ProductID] = c
		s.products = append(s.products, level.ProductID)
	}

	return s, nil
}

// TryDecrement subtracts amount from the product's remaining stock if enough is left.
// It returns false and leaves the stock untouched otherwise.
func (s *Store) TryDecrement(productID entities.ProductID, amount int) (bool, error) {
	if amount < 0 {
		return false, fmt.Errorf("decrement %s by %d: %w", productID, amount, ErrNegativeAmount)
	}
	c, err := s.counter(productID)
	if err != nil {
		return false, err
	}

	return c.tryDecrement(int64(amount)), nil
}

func (s *Store) IsZero(productID entities.ProductID) (bool, error) {
	remaining, err := s.Remaining(productID)
	if err != nil {
		return false, err
	}
	return remaining == 0, nil
}

func (s *Store) AllZero() bool {
	for _, c := range s.counters {
		if c.remaining.Load() != 0 {
			return false
		}
	}
	return true
}

func (s *Store) Remaining(productID entities.ProductID) (int, error) {
	c, err := s.counter(productID)
	if err != nil {
		return 0, err
	}
	return int(c.remaining.Load()), nil
}

func (s *Store) Has(productID entities.ProductID) bool {
	_, ok := s.counters[productID]
	return ok
}

// Products returns the product ids in configuration order.
func (s *Store) Products() []entities.ProductID {
	products := make([]entities.ProductID, len(s.products))
	copy(products, s.products)
	return products
}

// Snapshot reads every counter once. Counters are read one by one, so under
// concurrent decrements the result is not a single point in time.
func (s *Store) Snapshot() map[entities.ProductID]int {
	snapshot := make(map[entities.ProductID]int, len(s.counters))
	for productID, c := range s.counters {
		snapshot[productID] = int(c.remaining.Load())
	}
	return snapshot
}

func (s *Store) counter(productID entities.ProductID) (*counter, error) {
	c, ok := s.counters[productID]
	if !ok {
		return nil, fmt.Errorf("product %q: %w", productID, ErrUnknownProduct)
	}
	return c, nil
}
