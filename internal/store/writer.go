package store

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"papertrader/internal/logging"
	"papertrader/internal/models"
)

// WriterConfig holds configuration for the JournalWriter.
type WriterConfig struct {
	// BufferSize is the number of events queued before new ones are dropped.
	BufferSize int
	// WriteTimeout bounds a single database write.
	WriteTimeout time.Duration
	Logger       zerolog.Logger
}

// DefaultWriterConfig returns the default writer configuration.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BufferSize:   1024,
		WriteTimeout: 5 * time.Second,
		Logger:       zerolog.Nop(),
	}
}

type entry struct {
	order *models.Order
	fill  *models.Fill
}

// JournalWriter persists engine events to a Journal from a background
// goroutine. It satisfies the engine's event sink; writes are best effort
// and never block the caller.
type JournalWriter struct {
	journal Journal
	config  WriterConfig
	log     zerolog.Logger

	entries chan entry
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once

	mu      sync.Mutex
	written uint64
	dropped uint64
	failed  uint64
}

// NewJournalWriter starts a writer draining into journal.
func NewJournalWriter(journal Journal, config WriterConfig) *JournalWriter {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultWriterConfig().BufferSize
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultWriterConfig().WriteTimeout
	}
	w := &JournalWriter{
		journal: journal,
		config:  config,
		log:     logging.WithComponent(config.Logger, "journal"),
		entries: make(chan entry, config.BufferSize),
		done:    make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

// OnOrder queues an order state for persistence.
func (w *JournalWriter) OnOrder(order models.Order) {
	w.enqueue(entry{order: &order})
}

// OnFill queues a fill for persistence.
func (w *JournalWriter) OnFill(fill models.Fill) {
	w.enqueue(entry{fill: &fill})
}

func (w *JournalWriter) enqueue(e entry) {
	select {
	case <-w.done:
		w.countDropped()
		return
	default:
	}
	select {
	case w.entries <- e:
	default:
		w.countDropped()
	}
}

func (w *JournalWriter) countDropped() {
	w.mu.Lock()
	w.dropped++
	w.mu.Unlock()
}

func (w *JournalWriter) run() {
	defer w.wg.Done()
	for {
		select {
		case e := <-w.entries:
			w.write(e)
		case <-w.done:
			for {
				select {
				case e := <-w.entries:
					w.write(e)
				default:
					return
				}
			}
		}
	}
}

func (w *JournalWriter) write(e entry) {
	ctx, cancel := context.WithTimeout(context.Background(), w.config.WriteTimeout)
	defer cancel()

	var err error
	if e.order != nil {
		err = w.journal.SaveOrder(ctx, e.order)
	} else {
		err = w.journal.SaveFill(ctx, e.fill)
	}

	w.mu.Lock()
	if err != nil {
		w.failed++
	} else {
		w.written++
	}
	w.mu.Unlock()

	if err != nil {
		w.log.Warn().Err(err).Msg("Journal write failed")
	}
}

// Close flushes queued events and stops the writer. It does not close the
// underlying journal.
func (w *JournalWriter) Close() {
	w.once.Do(func() {
		close(w.done)
		w.wg.Wait()
	})
}

// WriterStats contains writer counters.
type WriterStats struct {
	Written uint64
	Dropped uint64
	Failed  uint64
}

// Stats returns a snapshot of the writer counters.
func (w *JournalWriter) Stats() WriterStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return WriterStats{Written: w.written, Dropped: w.dropped, Failed: w.failed}
}
