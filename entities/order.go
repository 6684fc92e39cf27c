package entities

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrMissingOrderID   = errors.New("order id is required")
	ErrEmptyOrder       = errors.New("order must request at least one unit")
	ErrNegativeQuantity = errors.New("quantity can't be negative")
)

// ProductID names one of the products tracked by the inventory.
type ProductID string

type OrderLine struct {
	ProductID ProductID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

type Order struct {
	ID    string      `json:"order_id"`
	Lines []OrderLine `json:"lines"`
}

func NewOrder(id string, lines ...OrderLine) Order {
	return Order{
		ID:    id,
		Lines: lines,
	}
}

func (o Order) TotalQuantity() int {
	total := 0
	for _, line := range o.Lines {
		total += line.Quantity
	}
	return total
}

// Validate checks what a conforming producer guarantees before submission.
// It doesn't know the product catalog; unknown products are rejected by the allocator.
func (o Order) Validate() error {
	if o.ID == "" {
		return ErrMissingOrderID
	}
	for _, line := range o.Lines {
		if line.Quantity < 0 {
			return fmt.Errorf("product %s: %w", line.ProductID, ErrNegativeQuantity)
		}
	}
	if o.TotalQuantity() == 0 {
		return ErrEmptyOrder
	}
	return nil
}

// FilledLine pairs a requested line with what was granted for it.
// Filled is either 0 or Requested, lines are never partially filled.
type FilledLine struct {
	ProductID ProductID `json:"product_id" db:"product_id"`
	Requested int       `json:"requested" db:"requested"`
	Filled    int       `json:"filled" db:"filled"`
}

func (l FilledLine) Backordered() int {
	return l.Requested - l.Filled
}

type OrderStatus struct {
	OrderID     string       `json:"order_id"`
	Lines       []FilledLine `json:"lines"`
	ProcessedAt time.Time    `json:"processed_at"`
}

func (s OrderStatus) Requested() []OrderLine {
	return s.project(func(l FilledLine) int { return l.Requested })
}

func (s OrderStatus) Filled() []OrderLine {
	return s.project(func(l FilledLine) int { return l.Filled })
}

func (s OrderStatus) Backordered() []OrderLine {
	return s.project(FilledLine.Backordered)
}

// FilledQuantity sums what the order got of a product over all of its lines.
func (s OrderStatus) FilledQuantity(productID ProductID) int {
	total := 0
	for _, line := range s.Lines {
		if line.ProductID == productID {
			total += line.Filled
		}
	}
	return total
}

func (s OrderStatus) project(quantity func(FilledLine) int) []OrderLine {
	lines := make([]OrderLine, 0, len(s.Lines))
	for _, l := range s.Lines {
		lines = append(lines, OrderLine{ProductID: l.ProductID, Quantity: quantity(l)})
	}
	return lines
}
