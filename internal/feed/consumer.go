// Package feed delivers market prices to the trading engine. Prices can be
// pushed directly, replayed from a CSV file, or received from NATS; all
// sources funnel into a Consumer that applies ticks in arrival order.
package feed

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	apperrors "papertrader/internal/errors"
	"papertrader/internal/logging"
	"papertrader/internal/models"
)

// PriceUpdater applies a market price. *engine.Engine implements it.
type PriceUpdater interface {
	UpdateMarketPrice(symbol string, price decimal.Decimal) error
}

// ConsumerConfig holds configuration for the Consumer.
type ConsumerConfig struct {
	// BufferSize is the size of the internal tick channel buffer.
	BufferSize int
	Logger     zerolog.Logger
}

// DefaultConsumerConfig returns the default consumer configuration.
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		BufferSize: 1000,
		Logger:     zerolog.Nop(),
	}
}

// Consumer queues ticks and applies them to a PriceUpdater from a single
// goroutine, so updates for a symbol are applied in the order received.
type Consumer struct {
	config  ConsumerConfig
	updater PriceUpdater
	log     zerolog.Logger

	ticks   chan models.Tick
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	stopped bool

	metricsMu sync.RWMutex
	metrics   ConsumerMetrics
}

// ConsumerMetrics contains consumer counters.
type ConsumerMetrics struct {
	Received uint64 `json:"received"`
	Applied  uint64 `json:"applied"`
	Dropped  uint64 `json:"dropped"`
	Failed   uint64 `json:"failed"`
}

// NewConsumer creates a consumer feeding updater.
func NewConsumer(updater PriceUpdater, config ConsumerConfig) *Consumer {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultConsumerConfig().BufferSize
	}
	return &Consumer{
		config:  config,
		updater: updater,
		log:     logging.WithComponent(config.Logger, "feed"),
		ticks:   make(chan models.Tick, config.BufferSize),
		done:    make(chan struct{}),
	}
}

// Start begins the apply loop. It returns when the loop is running; the
// loop ends when ctx is cancelled or Stop is called.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return apperrors.ErrFeedClosed
	}
	if c.started {
		return nil
	}
	c.started = true

	c.wg.Add(1)
	go c.loop(ctx)
	return nil
}

func (c *Consumer) loop(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			c.drain()
			return
		case <-c.done:
			c.drain()
			return
		case tick := <-c.ticks:
			c.apply(tick)
		}
	}
}

// drain applies ticks already queued when the loop ends.
func (c *Consumer) drain() {
	for {
		select {
		case tick := <-c.ticks:
			c.apply(tick)
		default:
			return
		}
	}
}

func (c *Consumer) apply(tick models.Tick) {
	c.metricsMu.Lock()
	c.metrics.Received++
	c.metricsMu.Unlock()

	if err := c.updater.UpdateMarketPrice(tick.Symbol, tick.Price); err != nil {
		c.log.Warn().Err(err).Str("symbol", tick.Symbol).Stringer("price", tick.Price).Msg("Price update rejected")
		c.metricsMu.Lock()
		c.metrics.Failed++
		c.metricsMu.Unlock()
		return
	}

	c.metricsMu.Lock()
	c.metrics.Applied++
	c.metricsMu.Unlock()
}

// Stop ends the loop after applying ticks already queued and waits for it
// to exit. Later publishes return ErrFeedClosed.
func (c *Consumer) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	close(c.done)
	c.mu.Unlock()

	c.wg.Wait()
	// Ticks published after a cancelled loop exited.
	c.drain()
}

// Publish queues a tick without blocking. If the buffer is full the tick is
// dropped and counted.
func (c *Consumer) Publish(tick models.Tick) error {
	select {
	case <-c.done:
		return apperrors.ErrFeedClosed
	default:
	}

	select {
	case c.ticks <- tick:
		return nil
	default:
		c.metricsMu.Lock()
		c.metrics.Dropped++
		c.metricsMu.Unlock()
		return nil
	}
}

// Send queues a tick, blocking until there is room, ctx ends or the
// consumer stops.
func (c *Consumer) Send(ctx context.Context, tick models.Tick) error {
	select {
	case <-c.done:
		return apperrors.ErrFeedClosed
	default:
	}

	select {
	case c.ticks <- tick:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return apperrors.ErrFeedClosed
	}
}

// GetMetrics returns a snapshot of the consumer counters.
func (c *Consumer) GetMetrics() ConsumerMetrics {
	c.metricsMu.RLock()
	defer c.metricsMu.RUnlock()
	return c.metrics
}
