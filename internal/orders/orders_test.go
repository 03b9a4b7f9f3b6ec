package orders

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	apperrors "papertrader/internal/errors"
	"papertrader/internal/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestValidateRequest(t *testing.T) {
	base := models.OrderRequest{
		AccountID: "acct",
		Symbol:    "X",
		Type:      models.OrderTypeMarket,
		Side:      models.OrderSideBuy,
		Quantity:  d("1"),
	}

	tests := []struct {
		name    string
		mutate  func(r *models.OrderRequest)
		wantErr bool
	}{
		{"valid market", func(r *models.OrderRequest) {}, false},
		{"valid limit", func(r *models.OrderRequest) { r.Type = models.OrderTypeLimit; r.Price = d("100") }, false},
		{"valid stop", func(r *models.OrderRequest) { r.Type = models.OrderTypeStop; r.StopPrice = d("90") }, false},
		{"missing account", func(r *models.OrderRequest) { r.AccountID = "" }, true},
		{"blank symbol", func(r *models.OrderRequest) { r.Symbol = "  " }, true},
		{"bad type", func(r *models.OrderRequest) { r.Type = "ICEBERG" }, true},
		{"bad side", func(r *models.OrderRequest) { r.Side = "HOLD" }, true},
		{"zero quantity", func(r *models.OrderRequest) { r.Quantity = decimal.Zero }, true},
		{"negative quantity", func(r *models.OrderRequest) { r.Quantity = d("-2") }, true},
		{"limit without price", func(r *models.OrderRequest) { r.Type = models.OrderTypeLimit }, true},
		{"stop without stop price", func(r *models.OrderRequest) { r.Type = models.OrderTypeStop; r.Price = d("5") }, true},
		{"negative reference price", func(r *models.OrderRequest) { r.Price = d("-1") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			tt.mutate(&req)
			err := ValidateRequest(req)
			if tt.wantErr {
				if !apperrors.Is(err, apperrors.ErrInvalidOrderParameters) {
					t.Errorf("err = %v, want ErrInvalidOrderParameters", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestReferencePrice(t *testing.T) {
	limit := models.OrderRequest{Type: models.OrderTypeLimit, Price: d("100")}
	if p, _ := ReferencePrice(limit, d("90"), true); !p.Equal(d("100")) {
		t.Errorf("limit reference = %s, want 100", p)
	}

	stop := models.OrderRequest{Type: models.OrderTypeStop, StopPrice: d("110")}
	if p, _ := ReferencePrice(stop, d("90"), true); !p.Equal(d("110")) {
		t.Errorf("stop reference = %s, want 110", p)
	}

	market := models.OrderRequest{Type: models.OrderTypeMarket, Symbol: "X", Price: d("101")}
	if p, _ := ReferencePrice(market, d("99"), true); !p.Equal(d("99")) {
		t.Errorf("market reference = %s, want latest price 99", p)
	}
	if p, _ := ReferencePrice(market, decimal.Zero, false); !p.Equal(d("101")) {
		t.Errorf("market fallback = %s, want 101", p)
	}

	market.Price = decimal.Zero
	if _, err := ReferencePrice(market, decimal.Zero, false); !apperrors.Is(err, apperrors.ErrNoMarketPrice) {
		t.Errorf("err = %v, want ErrNoMarketPrice", err)
	}
}

func TestEstimateCost(t *testing.T) {
	got := EstimateCost(d("10"), d("100"), d("0.001"))
	if !got.Equal(d("1001")) {
		t.Errorf("EstimateCost = %s, want 1001", got)
	}
}

func TestStateMachine(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	m := NewManager(func() time.Time { return now })

	o := m.NewOrder(models.OrderRequest{AccountID: "a", Symbol: " x ", Type: models.OrderTypeLimit, Side: models.OrderSideBuy, Quantity: d("2"), Price: d("10")})
	if o.Symbol != "X" {
		t.Errorf("symbol = %q, want normalized X", o.Symbol)
	}
	if o.Status != models.OrderStatusPending {
		t.Fatalf("new order status = %s", o.Status)
	}

	o.Reserved = d("20.02")
	if err := Fill(o, d("9.5"), d("0.019"), now); err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if !o.FilledQuantity.Equal(d("2")) || !o.AvgFillPrice.Equal(d("9.5")) || !o.Reserved.IsZero() {
		t.Errorf("filled order = %+v", o)
	}

	if err := Cancel(o, now); !apperrors.Is(err, apperrors.ErrOrderNotCancellable) {
		t.Errorf("cancel filled err = %v", err)
	}
	if err := Reject(o, "late", now); !apperrors.Is(err, apperrors.ErrInvalidTransition) {
		t.Errorf("reject filled err = %v", err)
	}
	if o.Status != models.OrderStatusFilled {
		t.Errorf("terminal order mutated to %s", o.Status)
	}
}

func TestCancelAndReject(t *testing.T) {
	m := NewManager(nil)
	req := models.OrderRequest{AccountID: "a", Symbol: "X", Type: models.OrderTypeStop, Side: models.OrderSideSell, Quantity: d("1"), StopPrice: d("5")}

	c := m.NewOrder(req)
	if err := Cancel(c, m.Now()); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if c.Status != models.OrderStatusCancelled {
		t.Errorf("status = %s", c.Status)
	}
	if err := Cancel(c, m.Now()); !apperrors.Is(err, apperrors.ErrOrderNotCancellable) {
		t.Errorf("second cancel err = %v", err)
	}

	r := m.NewOrder(req)
	if err := Reject(r, "insufficient position", m.Now()); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if r.RejectReason != "insufficient position" || !r.Status.IsTerminal() {
		t.Errorf("rejected order = %+v", r)
	}
}

func TestManagerRegistry(t *testing.T) {
	m := NewManager(nil)
	var ids []string
	for i := 0; i < 3; i++ {
		o := m.NewOrder(models.OrderRequest{AccountID: "a", Symbol: "X", Type: models.OrderTypeMarket, Side: models.OrderSideBuy, Quantity: d("1")})
		m.Register(o)
		ids = append(ids, o.ID)
	}
	m.Register(m.NewOrder(models.OrderRequest{AccountID: "b", Symbol: "Y", Type: models.OrderTypeMarket, Side: models.OrderSideBuy, Quantity: d("1")}))

	list := m.ForAccount("a")
	if len(list) != 3 {
		t.Fatalf("ForAccount = %d orders, want 3", len(list))
	}
	for i, o := range list {
		if o.ID != ids[i] {
			t.Errorf("order %d = %s, want %s", i, o.ID, ids[i])
		}
	}
	if _, ok := m.Get(ids[1]); !ok {
		t.Error("Get registered order failed")
	}
	if _, ok := m.Get("nope"); ok {
		t.Error("Get unknown order succeeded")
	}
}

func add(idx *PendingIndex, o *models.Order) {
	idx.AddIf(o.Symbol, func() (*models.Order, bool) { return o, true })
}

func TestPendingIndex_FIFOAndRemove(t *testing.T) {
	idx := NewPendingIndex()
	for i := 0; i < 5; i++ {
		add(idx, &models.Order{ID: fmt.Sprintf("o%d", i), Symbol: "X"})
	}
	add(idx, &models.Order{ID: "y0", Symbol: "Y"})

	if !idx.Remove("X", "o2") {
		t.Error("Remove o2 failed")
	}
	if idx.Remove("X", "o2") {
		t.Error("Remove o2 twice succeeded")
	}
	if idx.Remove("Z", "o1") {
		t.Error("Remove on unknown symbol succeeded")
	}

	var seen []string
	idx.Scan("X", func(o *models.Order) bool {
		seen = append(seen, o.ID)
		return o.ID != "o3"
	})
	want := []string{"o0", "o1", "o3", "o4"}
	if fmt.Sprint(seen) != fmt.Sprint(want) {
		t.Errorf("scan order = %v, want %v", seen, want)
	}
	if idx.Len("X") != 3 {
		t.Errorf("Len(X) = %d, want 3", idx.Len("X"))
	}
	if idx.Total() != 4 {
		t.Errorf("Total = %d, want 4", idx.Total())
	}
}

func TestPendingIndex_ConcurrentAdd(t *testing.T) {
	idx := NewPendingIndex()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			add(idx, &models.Order{ID: fmt.Sprintf("o%d", i), Symbol: fmt.Sprintf("S%d", i%4)})
		}(i)
	}
	wg.Wait()
	if idx.Total() != 50 {
		t.Errorf("Total = %d, want 50", idx.Total())
	}
}

func TestPendingIndex_AddIfHoldsSymbolLock(t *testing.T) {
	idx := NewPendingIndex()
	o := &models.Order{ID: "o1", Symbol: "X"}

	removed := make(chan bool)
	idx.AddIf("X", func() (*models.Order, bool) {
		go func() { removed <- idx.Remove("X", "o1") }()
		select {
		case <-removed:
			t.Error("Remove ran while admit held the symbol lock")
		case <-time.After(20 * time.Millisecond):
		}
		return o, true
	})
	if !<-removed {
		t.Error("Remove after AddIf did not find the order")
	}

	idx.AddIf("X", func() (*models.Order, bool) { return o, false })
	if idx.Len("X") != 0 {
		t.Errorf("Len(X) = %d, want 0 after a refused admit", idx.Len("X"))
	}
}
