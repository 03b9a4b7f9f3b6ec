package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"papertrader/internal/models"
)

// Metrics holds the Prometheus metrics for the engine. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	OrdersPlaced    *prometheus.CounterVec
	OrdersRejected  *prometheus.CounterVec
	OrdersCancelled prometheus.Counter
	Fills           *prometheus.CounterVec
	PriceUpdates    prometheus.Counter
	OrdersTriggered prometheus.Counter
	PendingOrders   prometheus.Gauge
}

// NewMetrics creates the engine metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OrdersPlaced: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "papertrader_orders_placed_total",
			Help: "Orders accepted by the engine",
		}, []string{"type", "side"}),

		OrdersRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "papertrader_orders_rejected_total",
			Help: "Orders rejected at placement or at trigger time",
		}, []string{"stage"}),

		OrdersCancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "papertrader_orders_cancelled_total",
			Help: "Orders cancelled by the caller",
		}),

		Fills: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "papertrader_fills_total",
			Help: "Executed fills",
		}, []string{"side"}),

		PriceUpdates: factory.NewCounter(prometheus.CounterOpts{
			Name: "papertrader_price_updates_total",
			Help: "Market price updates applied",
		}),

		OrdersTriggered: factory.NewCounter(prometheus.CounterOpts{
			Name: "papertrader_orders_triggered_total",
			Help: "Pending orders whose price condition was met",
		}),

		PendingOrders: factory.NewGauge(prometheus.GaugeOpts{
			Name: "papertrader_pending_orders",
			Help: "Orders waiting in the pending index",
		}),
	}
}

func (m *Metrics) placed(o models.Order) {
	if m == nil {
		return
	}
	m.OrdersPlaced.WithLabelValues(string(o.Type), string(o.Side)).Inc()
}

func (m *Metrics) rejected(stage string) {
	if m == nil {
		return
	}
	m.OrdersRejected.WithLabelValues(stage).Inc()
}

func (m *Metrics) cancelled() {
	if m == nil {
		return
	}
	m.OrdersCancelled.Inc()
}

func (m *Metrics) filled(f models.Fill) {
	if m == nil {
		return
	}
	m.Fills.WithLabelValues(string(f.Side)).Inc()
}

func (m *Metrics) priceUpdate(triggered int) {
	if m == nil {
		return
	}
	m.PriceUpdates.Inc()
	m.OrdersTriggered.Add(float64(triggered))
}

func (m *Metrics) pending(n int) {
	if m == nil {
		return
	}
	m.PendingOrders.Set(float64(n))
}
