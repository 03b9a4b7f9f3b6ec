package engine

import "papertrader/internal/models"

// EventSink receives order updates and fills after the engine has released
// its locks. Implementations must not call back into the engine
// synchronously and should not block for long.
type EventSink interface {
	OnOrder(order models.Order)
	OnFill(fill models.Fill)
}

// MultiSink fans events out to several sinks in order.
type MultiSink []EventSink

// OnOrder implements EventSink.
func (m MultiSink) OnOrder(order models.Order) {
	for _, s := range m {
		s.OnOrder(order)
	}
}

// OnFill implements EventSink.
func (m MultiSink) OnFill(fill models.Fill) {
	for _, s := range m {
		s.OnFill(fill)
	}
}

type nopSink struct{}

func (nopSink) OnOrder(models.Order) {}
func (nopSink) OnFill(models.Fill)   {}

// events collects copies of state changes made under a lock so they can be
// emitted once the lock is released.
type events struct {
	orders []models.Order
	fills  []models.Fill
}

func (ev *events) order(o *models.Order) {
	ev.orders = append(ev.orders, *o)
}

func (ev *events) fill(f models.Fill) {
	ev.fills = append(ev.fills, f)
}
