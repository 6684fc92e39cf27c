package ledger

import (
	"errors"
	"fmt"
	"sync"

	"allocator/entities"
)

var ErrDuplicateOrder = errors.New("order already recorded")

type DuplicatePolicy int

const (
	// Overwrite replaces the status of an already recorded order and keeps its
	// original position in the ledger.
	Overwrite DuplicatePolicy = iota
	// Strict refuses a second status for the same order id with ErrDuplicateOrder.
	Strict
)

func (p DuplicatePolicy) String() string {
	switch p {
	case Overwrite:
		return "overwrite"
	case Strict:
		return "strict"
	default:
		return fmt.Sprintf("DuplicatePolicy(%d)", int(p))
	}
}

func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch s {
	case "", "overwrite":
		return Overwrite, nil
	case "strict":
		return Strict, nil
	default:
		return 0, fmt.Errorf("unknown duplicate policy %q", s)
	}
}

// Ledger records order statuses in the order they were recorded.
type Ledger struct {
	policy DuplicatePolicy

	mu       sync.RWMutex
	statuses []entities.OrderStatus
	index    map[string]int
	reserved map[string]struct{}
}

func New(policy DuplicatePolicy) *Ledger {
	return &Ledger{
		policy:   policy,
		index:    make(map[string]int),
		reserved: make(map[string]struct{}),
	}
}

func (l *Ledger) Policy() DuplicatePolicy {
	return l.policy
}

// Reserve claims an order id before its allocation starts, so under the Strict
// policy a duplicate is refused before it takes any inventory.
// It does nothing under Overwrite.
func (l *Ledger) Reserve(orderID string) error {
	if l.policy != Strict {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	_, recorded := l.index[orderID]
	_, reserved := l.reserved[orderID]
	if recorded || reserved {
		return fmt.Errorf("order %s: %w", orderID, ErrDuplicateOrder)
	}
	l.reserved[orderID] = struct{}{}
	return nil
}

// Record stores the status of an order. It reports whether an earlier status
// for the same order id was replaced.
func (l *Ledger) Record(status entities.OrderStatus) (overwritten bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.reserved, status.OrderID)

	if i, exists := l.index[status.OrderID]; exists {
		if l.policy == Strict {
			return false, fmt.Errorf("order %s: %w", status.OrderID, ErrDuplicateOrder)
		}
		l.statuses[i] = status
		return true, nil
	}

	l.index[status.OrderID] = len(l.statuses)
	l.statuses = append(l.statuses, status)
	return false, nil
}

func (l *Ledger) Get(orderID string) (entities.OrderStatus, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	i, ok := l.index[orderID]
	if !ok {
		return entities.OrderStatus{}, false
	}
	return l.statuses[i], true
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.statuses)
}

// Snapshot returns a copy of all statuses in insertion order.
// Read it once the allocator is exhausted and its pool drained, otherwise
// orders still in flight are missing from it.
func (l *Ledger) Snapshot() []entities.OrderStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snapshot := make([]entities.OrderStatus, len(l.statuses))
	copy(snapshot, l.statuses)
	return snapshot
}
