package http

import (
	"net/http"

	libHttp "github.com/ThreeDotsLabs/go-event-driven/common/http"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewHttpRouter serves the allocator API. metricsHandler may be nil.
func NewHttpRouter(
	allocator Allocator,
	reportReadModel ReportReadModel,
	metricsHandler http.Handler,
) *echo.Echo {
	e := libHttp.NewEcho()

	e.Use(otelecho.Middleware("allocator"))

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	if metricsHandler != nil {
		e.GET("/metrics", echo.WrapHandler(otelhttp.NewHandler(metricsHandler, "metrics")))
	}

	handler := Handler{
		allocator:       allocator,
		reportReadModel: reportReadModel,
	}

	e.POST("/orders", handler.PostOrder)
	e.GET("/orders", handler.GetOrders)
	e.GET("/inventory", handler.GetInventory)

	return e
}
