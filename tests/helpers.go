package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/lithammer/shortuuid/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const httpAddr = "localhost:18080"

type orderLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type orderRequest struct {
	OrderID string      `json:"order_id"`
	Lines   []orderLine `json:"lines"`
}

type inventoryResponse struct {
	State    string `json:"state"`
	Products []struct {
		ProductID string `json:"product_id"`
		Remaining int    `json:"remaining"`
	} `json:"products"`
}

type ordersResponse struct {
	Exhausted bool `json:"exhausted"`
	Rows      []struct {
		OrderID string `json:"order_id"`
		Filled  []int  `json:"filled"`
	} `json:"rows"`
}

func url(path string) string {
	return fmt.Sprintf("http://%s%s", httpAddr, path)
}

func postOrder(t *testing.T, req orderRequest) int {
	t.Helper()

	payload, err := json.Marshal(req)
	require.NoError(t, err)

	httpReq, err := http.NewRequest(http.MethodPost, url("/orders"), bytes.NewBuffer(payload))
	require.NoError(t, err)

	httpReq.Header.Set("Correlation-ID", shortuuid.New())
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(httpReq)
	require.NoError(t, err)
	defer resp.Body.Close()

	return resp.StatusCode
}

func getJSON(t assert.TestingT, path string, target any) bool {
	resp, err := http.Get(url(path))
	if !assert.NoError(t, err) {
		return false
	}
	defer resp.Body.Close()

	return assert.Equal(t, http.StatusOK, resp.StatusCode) &&
		assert.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func waitForHttpServer(t *testing.T) {
	t.Helper()

	require.EventuallyWithT(
		t,
		func(t *assert.CollectT) {
			resp, err := http.Get(url("/health"))
			if !assert.NoError(t, err) {
				return
			}
			defer resp.Body.Close()

			assert.Less(t, resp.StatusCode, 300, "API not ready, http status: %d", resp.StatusCode)
		},
		time.Second*10,
		time.Millisecond*50,
	)
}
