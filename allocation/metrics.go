package allocation

import (
	"allocator/entities"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is optional everywhere: a nil *Metrics records nothing.
type Metrics struct {
	ordersProcessed  prometheus.Counter
	unitsFilled      *prometheus.CounterVec
	unitsBackordered *prometheus.CounterVec
	remaining        *prometheus.GaugeVec
	exhaustions      prometheus.Counter
	queueDepth       prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ordersProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "allocator",
			Name:      "orders_processed_total",
			Help:      "Orders allocated by the engine.",
		}),
		unitsFilled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "allocator",
			Name:      "units_filled_total",
			Help:      "Units granted from inventory.",
		}, []string{"product"}),
		unitsBackordered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "allocator",
			Name:      "units_backordered_total",
			Help:      "Units requested but not granted.",
		}, []string{"product"}),
		remaining: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "allocator",
			Name:      "inventory_remaining",
			Help:      "Units left per product.",
		}, []string{"product"}),
		exhaustions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "allocator",
			Name:      "exhaustions_total",
			Help:      "Times the inventory was declared exhausted. Never above 1.",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "allocator",
			Name:      "pool_queue_depth",
			Help:      "Orders waiting for a worker.",
		}),
	}

	reg.MustRegister(
		m.ordersProcessed,
		m.unitsFilled,
		m.unitsBackordered,
		m.remaining,
		m.exhaustions,
		m.queueDepth,
	)

	return m
}

func (m *Metrics) observeStatus(status entities.OrderStatus) {
	if m == nil {
		return
	}

	m.ordersProcessed.Inc()
	for _, line := range status.Lines {
		product := string(line.ProductID)
		m.unitsFilled.WithLabelValues(product).Add(float64(line.Filled))
		m.unitsBackordered.WithLabelValues(product).Add(float64(line.Backordered()))
	}
}

func (m *Metrics) observeRemaining(levels map[entities.ProductID]int) {
	if m == nil {
		return
	}

	for productID, remaining := range levels {
		m.remaining.WithLabelValues(string(productID)).Set(float64(remaining))
	}
}

func (m *Metrics) observeExhaustion() {
	if m == nil {
		return
	}
	m.exhaustions.Inc()
}

func (m *Metrics) observeQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
}
