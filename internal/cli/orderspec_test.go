package cli

import (
	"testing"

	"github.com/shopspring/decimal"

	apperrors "papertrader/internal/errors"
	"papertrader/internal/models"
)

func TestParseOrderSpec(t *testing.T) {
	tests := []struct {
		spec      string
		after     int
		orderType models.OrderType
		side      models.OrderSide
		symbol    string
		qty       string
		price     string
		stop      string
	}{
		{"MARKET BUY AAPL 10", 0, models.OrderTypeMarket, models.OrderSideBuy, "AAPL", "10", "0", "0"},
		{"limit sell msft 2.5 @310.25", 0, models.OrderTypeLimit, models.OrderSideSell, "msft", "2.5", "310.25", "0"},
		{"3:STOP SELL AAPL 5 !90", 3, models.OrderTypeStop, models.OrderSideSell, "AAPL", "5", "0", "90"},
		{" 12 : STOP BUY X 1 !105 @1 ", 12, models.OrderTypeStop, models.OrderSideBuy, "X", "1", "1", "105"},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := ParseOrderSpec(tt.spec, "acct-1")
			if err != nil {
				t.Fatalf("ParseOrderSpec: %v", err)
			}
			req := got.Request
			if got.AfterTicks != tt.after {
				t.Errorf("AfterTicks = %d, want %d", got.AfterTicks, tt.after)
			}
			if req.AccountID != "acct-1" || req.Type != tt.orderType || req.Side != tt.side || req.Symbol != tt.symbol {
				t.Errorf("request = %+v", req)
			}
			if !req.Quantity.Equal(decimal.RequireFromString(tt.qty)) {
				t.Errorf("quantity = %s, want %s", req.Quantity, tt.qty)
			}
			if !req.Price.Equal(decimal.RequireFromString(tt.price)) {
				t.Errorf("price = %s, want %s", req.Price, tt.price)
			}
			if !req.StopPrice.Equal(decimal.RequireFromString(tt.stop)) {
				t.Errorf("stop = %s, want %s", req.StopPrice, tt.stop)
			}
		})
	}
}

func TestParseOrderSpec_Invalid(t *testing.T) {
	specs := []string{
		"",
		"MARKET BUY AAPL",
		"ICEBERG BUY AAPL 10",
		"MARKET HOLD AAPL 10",
		"MARKET BUY AAPL ten",
		"LIMIT BUY AAPL 10 100",
		"LIMIT BUY AAPL 10 @",
		"LIMIT BUY AAPL 10 @abc",
		"x:MARKET BUY AAPL 10",
		"-1:MARKET BUY AAPL 10",
	}
	for _, spec := range specs {
		if _, err := ParseOrderSpec(spec, "acct-1"); !apperrors.Is(err, apperrors.ErrInvalidOrderParameters) {
			t.Errorf("ParseOrderSpec(%q) err = %v, want ErrInvalidOrderParameters", spec, err)
		}
	}
}
