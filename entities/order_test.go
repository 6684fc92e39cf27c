package entities_test

import (
	"testing"

	"allocator/entities"

	"github.com/stretchr/testify/assert"
)

func TestOrderValidate(t *testing.T) {
	testCases := []struct {
		name    string
		order   entities.Order
		wantErr error
	}{
		{
			name:  "valid",
			order: entities.NewOrder("s:1", entities.OrderLine{ProductID: "A", Quantity: 1}, entities.OrderLine{ProductID: "B"}),
		},
		{
			name:    "missing id",
			order:   entities.NewOrder("", entities.OrderLine{ProductID: "A", Quantity: 1}),
			wantErr: entities.ErrMissingOrderID,
		},
		{
			name:    "all zero",
			order:   entities.NewOrder("s:2", entities.OrderLine{ProductID: "A"}, entities.OrderLine{ProductID: "B"}),
			wantErr: entities.ErrEmptyOrder,
		},
		{
			name:    "no lines",
			order:   entities.NewOrder("s:3"),
			wantErr: entities.ErrEmptyOrder,
		},
		{
			name:    "negative",
			order:   entities.NewOrder("s:4", entities.OrderLine{ProductID: "A", Quantity: 3}, entities.OrderLine{ProductID: "B", Quantity: -1}),
			wantErr: entities.ErrNegativeQuantity,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.order.Validate()
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestOrderStatusProjections(t *testing.T) {
	status := entities.OrderStatus{
		OrderID: "s:1",
		Lines: []entities.FilledLine{
			{ProductID: "A", Requested: 5, Filled: 0},
			{ProductID: "B", Requested: 2, Filled: 2},
		},
	}

	assert.Equal(t, []entities.OrderLine{{ProductID: "A", Quantity: 5}, {ProductID: "B", Quantity: 2}}, status.Requested())
	assert.Equal(t, []entities.OrderLine{{ProductID: "A", Quantity: 0}, {ProductID: "B", Quantity: 2}}, status.Filled())
	assert.Equal(t, []entities.OrderLine{{ProductID: "A", Quantity: 5}, {ProductID: "B", Quantity: 0}}, status.Backordered())
	assert.Equal(t, 2, status.FilledQuantity("B"))
	assert.Equal(t, 0, status.FilledQuantity("C"))
}
