package http

import (
	"context"

	"allocator/allocation"
	"allocator/entities"
	"allocator/report"
)

type Handler struct {
	allocator       Allocator
	reportReadModel ReportReadModel
}

type Allocator interface {
	Submit(ctx context.Context, order entities.Order) error
	Products() []entities.ProductID
	Remaining() map[entities.ProductID]int
	State() allocation.State
}

type ReportReadModel interface {
	Summary() report.Summary
}
