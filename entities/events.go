package entities

import (
	"time"

	"github.com/google/uuid"
)

type IEvent interface {
	IsInternal() bool
}

type EventHeader struct {
	ID          string    `json:"id"`
	PublishedAt time.Time `json:"published_at"`
}

func NewEventHeader() EventHeader {
	return EventHeader{
		ID:          uuid.NewString(),
		PublishedAt: time.Now().UTC(),
	}
}

type InventoryExhausted_v1 struct {
	Header EventHeader `json:"header"`

	OrdersProcessed int `json:"orders_processed"`
}

func (e InventoryExhausted_v1) IsInternal() bool {
	return false
}

// ReportExported_v1 is published through the outbox once the final report is stored.
type ReportExported_v1 struct {
	Header EventHeader `json:"header"`

	ReportID string `json:"report_id"`
	Orders   int    `json:"orders"`
}

func (e ReportExported_v1) IsInternal() bool {
	return false
}
