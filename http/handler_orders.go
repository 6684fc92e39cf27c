package http

import (
	"errors"
	"fmt"
	"net/http"

	"allocator/allocation"
	"allocator/entities"
	"allocator/inventory"
	"allocator/report"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/labstack/echo/v4"
)

type orderRequest struct {
	OrderID string               `json:"order_id"`
	Lines   []entities.OrderLine `json:"lines"`
}

type orderResponse struct {
	OrderID string `json:"order_id"`
}

type ordersResponse struct {
	report.Summary

	Products []entities.ProductID `json:"products"`
	Rows     []report.Row         `json:"rows"`
}

func (h Handler) PostOrder(c echo.Context) error {
	var request orderRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	order := entities.NewOrder(request.OrderID, request.Lines...)
	if err := order.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()

	err := h.allocator.Submit(ctx, order)
	switch {
	case errors.Is(err, inventory.ErrUnknownProduct):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, allocation.ErrExhausted):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, allocation.ErrPoolClosed):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	case err != nil:
		return fmt.Errorf("failed to submit order %s: %w", order.ID, err)
	}

	log.FromContext(ctx).WithField("order_id", order.ID).Debug("Order accepted")

	return c.JSON(http.StatusAccepted, orderResponse{OrderID: order.ID})
}

func (h Handler) GetOrders(c echo.Context) error {
	summary := h.reportReadModel.Summary()
	products := h.allocator.Products()

	return c.JSON(http.StatusOK, ordersResponse{
		Summary:  summary,
		Products: products,
		Rows:     report.Rows(products, summary.Orders),
	})
}
