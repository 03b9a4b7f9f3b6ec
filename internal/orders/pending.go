package orders

import (
	"sync"

	"papertrader/internal/models"
)

// PendingIndex holds open non-market orders per symbol in arrival order.
// Each symbol has its own lock so updates on different symbols proceed
// in parallel while updates on the same symbol are serialized.
type PendingIndex struct {
	mu     sync.RWMutex
	queues map[string]*symbolQueue
}

type symbolQueue struct {
	mu     sync.Mutex
	orders []*models.Order
}

// NewPendingIndex creates an empty index.
func NewPendingIndex() *PendingIndex {
	return &PendingIndex{
		queues: make(map[string]*symbolQueue),
	}
}

func (p *PendingIndex) queue(symbol string, create bool) *symbolQueue {
	p.mu.RLock()
	q, ok := p.queues[symbol]
	p.mu.RUnlock()
	if ok || !create {
		return q
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if q, ok = p.queues[symbol]; !ok {
		q = &symbolQueue{}
		p.queues[symbol] = q
	}
	return q
}

// AddIf holds symbol's lock while admit runs and appends the order it
// returns when ok is true. admit may take account locks; it must not touch
// the index itself.
func (p *PendingIndex) AddIf(symbol string, admit func() (o *models.Order, ok bool)) {
	q := p.queue(symbol, true)
	q.mu.Lock()
	defer q.mu.Unlock()
	if o, ok := admit(); ok {
		q.orders = append(q.orders, o)
	}
}

// Remove drops the order with orderID from symbol's queue.
func (p *PendingIndex) Remove(symbol, orderID string) bool {
	q := p.queue(symbol, false)
	if q == nil {
		return false
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, o := range q.orders {
		if o.ID == orderID {
			q.orders = append(q.orders[:i], q.orders[i+1:]...)
			return true
		}
	}
	return false
}

// Scan visits each queued order for symbol in FIFO order while holding the
// symbol lock. Orders for which keep returns false are removed.
func (p *PendingIndex) Scan(symbol string, keep func(o *models.Order) bool) {
	q := p.queue(symbol, false)
	if q == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.orders[:0]
	for _, o := range q.orders {
		if keep(o) {
			kept = append(kept, o)
		}
	}
	for i := len(kept); i < len(q.orders); i++ {
		q.orders[i] = nil
	}
	q.orders = kept
}

// Len returns the number of queued orders for symbol.
func (p *PendingIndex) Len(symbol string) int {
	q := p.queue(symbol, false)
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.orders)
}

// Total returns the number of queued orders across all symbols.
func (p *PendingIndex) Total() int {
	p.mu.RLock()
	queues := make([]*symbolQueue, 0, len(p.queues))
	for _, q := range p.queues {
		queues = append(queues, q)
	}
	p.mu.RUnlock()

	total := 0
	for _, q := range queues {
		q.mu.Lock()
		total += len(q.orders)
		q.mu.Unlock()
	}
	return total
}
