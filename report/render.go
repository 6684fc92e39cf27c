package report

import (
	"bufio"
	"fmt"
	"io"

	"allocator/entities"

	"github.com/samber/lo"
)

// Row is one order of the final report, with one column per product.
type Row struct {
	OrderID     string `json:"order_id"`
	Requested   []int  `json:"requested"`
	Filled      []int  `json:"filled"`
	Backordered []int  `json:"backordered"`
}

// Rows lays the statuses out in product columns. Quantities of a product
// requested on several lines of the same order are summed.
func Rows(products []entities.ProductID, statuses []entities.OrderStatus) []Row {
	return lo.Map(statuses, func(status entities.OrderStatus, _ int) Row {
		return Row{
			OrderID:     status.OrderID,
			Requested:   columns(products, status.Lines, func(l entities.FilledLine) int { return l.Requested }),
			Filled:      columns(products, status.Lines, func(l entities.FilledLine) int { return l.Filled }),
			Backordered: columns(products, status.Lines, entities.FilledLine.Backordered),
		}
	})
}

func columns(products []entities.ProductID, lines []entities.FilledLine, quantity func(entities.FilledLine) int) []int {
	return lo.Map(products, func(product entities.ProductID, _ int) int {
		return lo.SumBy(lines, func(l entities.FilledLine) int {
			if l.ProductID != product {
				return 0
			}
			return quantity(l)
		})
	})
}

// Render prints one line per order:
//
//	<order id>  <requested per product>  <filled per product>  <backordered per product>
func Render(w io.Writer, products []entities.ProductID, statuses []entities.OrderStatus) error {
	bw := bufio.NewWriter(w)

	for _, row := range Rows(products, statuses) {
		fmt.Fprintf(bw, "%s  ", row.OrderID)
		writeColumns(bw, row.Requested)
		bw.WriteString(" ")
		writeColumns(bw, row.Filled)
		bw.WriteString(" ")
		writeColumns(bw, row.Backordered)
		bw.WriteString("\n")
	}

	return bw.Flush()
}

func writeColumns(w *bufio.Writer, quantities []int) {
	for _, q := range quantities {
		fmt.Fprintf(w, "%d ", q)
	}
}
