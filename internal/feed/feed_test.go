package feed

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"

	apperrors "papertrader/internal/errors"
	"papertrader/internal/models"
)

type update struct {
	symbol string
	price  decimal.Decimal
}

// fakeUpdater records updates and rejects the symbol "BAD".
type fakeUpdater struct {
	mu      sync.Mutex
	updates []update
}

func (f *fakeUpdater) UpdateMarketPrice(symbol string, price decimal.Decimal) error {
	if symbol == "BAD" {
		return errors.New("rejected")
	}
	f.mu.Lock()
	f.updates = append(f.updates, update{symbol, price})
	f.mu.Unlock()
	return nil
}

func (f *fakeUpdater) snapshot() []update {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]update(nil), f.updates...)
}

func tick(symbol string, price int64) models.Tick {
	return models.Tick{Symbol: symbol, Price: decimal.NewFromInt(price)}
}

func TestConsumer_AppliesInOrder(t *testing.T) {
	up := &fakeUpdater{}
	c := NewConsumer(up, DefaultConsumerConfig())
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := int64(1); i <= 50; i++ {
		if err := c.Publish(tick("X", i)); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}
	c.Stop()

	got := up.snapshot()
	if len(got) != 50 {
		t.Fatalf("applied %d, want 50", len(got))
	}
	for i, u := range got {
		if !u.price.Equal(decimal.NewFromInt(int64(i + 1))) {
			t.Fatalf("update %d price = %s, want %d", i, u.price, i+1)
		}
	}
	if m := c.GetMetrics(); m.Applied != 50 || m.Received != 50 {
		t.Errorf("metrics = %+v", m)
	}
}

func TestConsumer_DropsWhenFull(t *testing.T) {
	up := &fakeUpdater{}
	c := NewConsumer(up, ConsumerConfig{BufferSize: 2})

	for i := int64(1); i <= 3; i++ {
		_ = c.Publish(tick("X", i))
	}
	if m := c.GetMetrics(); m.Dropped != 1 {
		t.Errorf("dropped = %d, want 1", m.Dropped)
	}

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	c.Stop()
	if n := len(up.snapshot()); n != 2 {
		t.Errorf("applied %d, want 2", n)
	}
}

func TestConsumer_CountsFailures(t *testing.T) {
	up := &fakeUpdater{}
	c := NewConsumer(up, DefaultConsumerConfig())
	_ = c.Start(context.Background())

	_ = c.Publish(tick("BAD", 1))
	_ = c.Publish(tick("X", 1))
	c.Stop()

	m := c.GetMetrics()
	if m.Failed != 1 || m.Applied != 1 {
		t.Errorf("metrics = %+v, want 1 failed 1 applied", m)
	}
}

// gatedUpdater blocks every update until gate is closed.
type gatedUpdater struct {
	fakeUpdater
	gate chan struct{}
}

func (g *gatedUpdater) UpdateMarketPrice(symbol string, price decimal.Decimal) error {
	<-g.gate
	return g.fakeUpdater.UpdateMarketPrice(symbol, price)
}

func TestConsumer_AppliesQueuedTicksAfterCancel(t *testing.T) {
	up := &gatedUpdater{gate: make(chan struct{})}
	c := NewConsumer(up, ConsumerConfig{BufferSize: 10})
	ctx, cancel := context.WithCancel(context.Background())
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := int64(1); i <= 5; i++ {
		if err := c.Publish(tick("X", i)); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}
	cancel()
	close(up.gate)
	c.Stop()

	m := c.GetMetrics()
	if m.Received != 5 || m.Applied != 5 || m.Dropped != 0 {
		t.Errorf("metrics = %+v, want all 5 applied", m)
	}
	got := up.snapshot()
	if len(got) != 5 || !got[4].price.Equal(decimal.NewFromInt(5)) {
		t.Errorf("updates = %v", got)
	}
}

func TestConsumer_ClosedAfterStop(t *testing.T) {
	c := NewConsumer(&fakeUpdater{}, DefaultConsumerConfig())
	_ = c.Start(context.Background())
	c.Stop()
	c.Stop()

	if err := c.Publish(tick("X", 1)); !errors.Is(err, apperrors.ErrFeedClosed) {
		t.Errorf("Publish err = %v, want ErrFeedClosed", err)
	}
	if err := c.Send(context.Background(), tick("X", 1)); !errors.Is(err, apperrors.ErrFeedClosed) {
		t.Errorf("Send err = %v, want ErrFeedClosed", err)
	}
	if err := c.Start(context.Background()); !errors.Is(err, apperrors.ErrFeedClosed) {
		t.Errorf("Start err = %v, want ErrFeedClosed", err)
	}
}

func TestConsumer_SendHonoursContext(t *testing.T) {
	c := NewConsumer(&fakeUpdater{}, ConsumerConfig{BufferSize: 1})
	_ = c.Publish(tick("X", 1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := c.Send(ctx, tick("X", 2)); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Send err = %v, want deadline exceeded", err)
	}
}

func TestReadTicks(t *testing.T) {
	data := "symbol,price,timestamp\n" +
		"AAA,100.5,2024-03-01T09:15:00Z\n" +
		" bbb , 42 ,\n"

	ticks, err := ReadTicks(strings.NewReader(data))
	if err != nil {
		t.Fatalf("ReadTicks: %v", err)
	}
	if len(ticks) != 2 {
		t.Fatalf("ticks = %d, want 2", len(ticks))
	}
	if ticks[0].Symbol != "AAA" || !ticks[0].Price.Equal(decimal.RequireFromString("100.5")) {
		t.Errorf("tick 0 = %+v", ticks[0])
	}
	if !ticks[0].Timestamp.Equal(time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC)) {
		t.Errorf("tick 0 timestamp = %s", ticks[0].Timestamp)
	}
	if ticks[1].Symbol != "bbb" || !ticks[1].Price.Equal(decimal.NewFromInt(42)) || !ticks[1].Timestamp.IsZero() {
		t.Errorf("tick 1 = %+v", ticks[1])
	}
}

func TestReadTicks_InvalidRows(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"bad price", "symbol,price\nAAA,abc\n", apperrors.ErrInvalidPrice},
		{"zero price", "symbol,price\nAAA,0\n", apperrors.ErrInvalidPrice},
		{"missing symbol", "symbol,price\nAAA,1\n,2\n", apperrors.ErrInvalidOrderParameters},
		{"bad timestamp", "symbol,price,timestamp\nAAA,1,yesterday\n", apperrors.ErrInvalidOrderParameters},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadTicks(strings.NewReader(tt.data)); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReplay(t *testing.T) {
	up := &fakeUpdater{}
	ticks := []models.Tick{tick("A", 1), tick("BAD", 2), tick("A", 3)}

	stats, err := Replay(context.Background(), up, ticks)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if stats.Ticks != 3 || stats.Applied != 2 || stats.Failed != 1 {
		t.Errorf("stats = %+v", stats)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Replay(ctx, up, ticks); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled replay err = %v", err)
	}
}

func TestDecodeTick(t *testing.T) {
	in := models.Tick{Symbol: "AAA", Price: decimal.RequireFromString("12.25"), Timestamp: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
	data, err := EncodeTick(in)
	if err != nil {
		t.Fatalf("EncodeTick: %v", err)
	}
	out, err := DecodeTick(data)
	if err != nil {
		t.Fatalf("DecodeTick: %v", err)
	}
	if out.Symbol != in.Symbol || !out.Price.Equal(in.Price) || !out.Timestamp.Equal(in.Timestamp) {
		t.Errorf("decoded = %+v, want %+v", out, in)
	}

	if _, err := DecodeTick([]byte(`{"symbol":"AAA","price":"-1"}`)); !errors.Is(err, apperrors.ErrInvalidPrice) {
		t.Errorf("negative price err = %v", err)
	}
	if _, err := DecodeTick([]byte(`{"price":1}`)); !errors.Is(err, apperrors.ErrInvalidOrderParameters) {
		t.Errorf("missing symbol err = %v", err)
	}
	if _, err := DecodeTick([]byte(`not json`)); err == nil {
		t.Error("expected decode error")
	}
}

// Property: every tick sent through Send is applied exactly once, in order.
func TestProperty_SendPreservesOrder(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("ticks applied in send order", prop.ForAll(
		func(prices []int64) bool {
			up := &fakeUpdater{}
			c := NewConsumer(up, ConsumerConfig{BufferSize: 4})
			_ = c.Start(context.Background())
			for _, p := range prices {
				if err := c.Send(context.Background(), tick("X", p)); err != nil {
					return false
				}
			}
			c.Stop()

			got := up.snapshot()
			if len(got) != len(prices) {
				return false
			}
			for i, p := range prices {
				if !got[i].price.Equal(decimal.NewFromInt(p)) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Int64Range(1, 1000)),
	))

	properties.TestingRun(t)
}
