package http

import (
	"net/http"

	"allocator/entities"

	"github.com/labstack/echo/v4"
)

type productLevel struct {
	ProductID entities.ProductID `json:"product_id"`
	Remaining int                `json:"remaining"`
}

type inventoryResponse struct {
	State    string         `json:"state"`
	Products []productLevel `json:"products"`
}

func (h Handler) GetInventory(c echo.Context) error {
	remaining := h.allocator.Remaining()

	resp := inventoryResponse{
		State: h.allocator.State().String(),
	}
	for _, productID := range h.allocator.Products() {
		resp.Products = append(resp.Products, productLevel{
			ProductID: productID,
			Remaining: remaining[productID],
		})
	}

	return c.JSON(http.StatusOK, resp)
}
