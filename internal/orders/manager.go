// Package orders implements order creation, validation, the order state
// machine and the per-symbol index of pending orders.
package orders

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"papertrader/internal/models"
)

// Manager registers orders and owns the pending index.
//
// The maps are guarded by mu. Mutable order fields (status, fills,
// reservation) are guarded by the lock of the owning account, so callers
// read or write them only inside ledger.WithAccount.
type Manager struct {
	mu        sync.RWMutex
	orders    map[string]*models.Order
	byAccount map[string][]*models.Order
	pending   *PendingIndex
	now       func() time.Time
}

// NewManager creates a Manager. A nil clock defaults to time.Now.
func NewManager(clock func() time.Time) *Manager {
	if clock == nil {
		clock = time.Now
	}
	return &Manager{
		orders:    make(map[string]*models.Order),
		byAccount: make(map[string][]*models.Order),
		pending:   NewPendingIndex(),
		now:       clock,
	}
}

// NewOrder builds a PENDING order from req. It is not registered yet.
func (m *Manager) NewOrder(req models.OrderRequest) *models.Order {
	now := m.now()
	return &models.Order{
		ID:             uuid.NewString(),
		AccountID:      req.AccountID,
		Symbol:         NormalizeSymbol(req.Symbol),
		Type:           req.Type,
		Side:           req.Side,
		Quantity:       req.Quantity,
		Price:          req.Price,
		StopPrice:      req.StopPrice,
		Status:         models.OrderStatusPending,
		FilledQuantity: decimal.Zero,
		AvgFillPrice:   decimal.Zero,
		Fee:            decimal.Zero,
		Reserved:       decimal.Zero,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Register records o in the order registry.
func (m *Manager) Register(o *models.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
	m.byAccount[o.AccountID] = append(m.byAccount[o.AccountID], o)
}

// Get returns the order with id.
func (m *Manager) Get(id string) (*models.Order, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	return o, ok
}

// ForAccount returns the account's orders in registration order.
func (m *Manager) ForAccount(accountID string) []*models.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.byAccount[accountID]
	out := make([]*models.Order, len(list))
	copy(out, list)
	return out
}

// Pending returns the pending order index.
func (m *Manager) Pending() *PendingIndex {
	return m.pending
}

// Now returns the manager clock's current time.
func (m *Manager) Now() time.Time {
	return m.now()
}
