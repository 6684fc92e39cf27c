package entities

import "time"

type OrderAllocated_v1 struct {
	Header EventHeader `json:"header"`

	OrderID     string       `json:"order_id"`
	Lines       []FilledLine `json:"lines"`
	ProcessedAt time.Time    `json:"processed_at"`
}

func (e OrderAllocated_v1) IsInternal() bool {
	return true
}

func (e OrderAllocated_v1) Status() OrderStatus {
	return OrderStatus{
		OrderID:     e.OrderID,
		Lines:       e.Lines,
		ProcessedAt: e.ProcessedAt,
	}
}
