package feed

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	apperrors "papertrader/internal/errors"
	"papertrader/internal/models"
)

// TickRecord is one row of a tick CSV file. The timestamp column is
// optional and RFC3339 when present.
type TickRecord struct {
	Symbol    string `csv:"symbol"`
	Price     string `csv:"price"`
	Timestamp string `csv:"timestamp"`
}

// ReadTicks parses tick rows from r in file order.
func ReadTicks(r io.Reader) ([]models.Tick, error) {
	var records []TickRecord
	if err := gocsv.Unmarshal(r, &records); err != nil {
		return nil, apperrors.Wrap(err, "parse ticks csv")
	}

	ticks := make([]models.Tick, 0, len(records))
	for i, rec := range records {
		tick, err := rec.Tick()
		if err != nil {
			// Header is line 1.
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
		ticks = append(ticks, tick)
	}
	return ticks, nil
}

// LoadTicks reads a tick CSV file.
func LoadTicks(path string) ([]models.Tick, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	return ReadTicks(f)
}

// Tick converts the record into a models.Tick.
func (r TickRecord) Tick() (models.Tick, error) {
	symbol := strings.TrimSpace(r.Symbol)
	if symbol == "" {
		return models.Tick{}, apperrors.NewValidationError("symbol", r.Symbol, "is required")
	}
	price, err := decimal.NewFromString(strings.TrimSpace(r.Price))
	if err != nil || !price.IsPositive() {
		return models.Tick{}, &apperrors.ValidationError{Field: "price", Value: r.Price, Message: "must be a positive number", Err: apperrors.ErrInvalidPrice}
	}

	tick := models.Tick{Symbol: symbol, Price: price}
	if ts := strings.TrimSpace(r.Timestamp); ts != "" {
		tick.Timestamp, err = time.Parse(time.RFC3339, ts)
		if err != nil {
			return models.Tick{}, apperrors.NewValidationError("timestamp", r.Timestamp, "must be RFC3339")
		}
	}
	return tick, nil
}

// ReplayStats summarizes a replay.
type ReplayStats struct {
	Ticks   int `json:"ticks"`
	Applied int `json:"applied"`
	Failed  int `json:"failed"`
}

// Replay applies ticks to updater synchronously in order. A tick the
// updater rejects is counted and skipped.
func Replay(ctx context.Context, updater PriceUpdater, ticks []models.Tick) (ReplayStats, error) {
	stats := ReplayStats{Ticks: len(ticks)}
	for _, tick := range ticks {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := updater.UpdateMarketPrice(tick.Symbol, tick.Price); err != nil {
			stats.Failed++
			continue
		}
		stats.Applied++
	}
	return stats, nil
}
