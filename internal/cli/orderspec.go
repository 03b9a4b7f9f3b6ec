package cli

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "papertrader/internal/errors"
	"papertrader/internal/models"
)

// ScheduledOrder is an order request to place once AfterTicks ticks have
// been applied.
type ScheduledOrder struct {
	AfterTicks int
	Request    models.OrderRequest
}

// ParseOrderSpec parses an order written as
//
//	[N:]TYPE SIDE SYMBOL QTY [@PRICE] [!STOP]
//
// for example "LIMIT BUY AAPL 10 @100" or "3:STOP SELL AAPL 5 !90".
// Parameters are only checked for syntax; the engine validates the rest.
func ParseOrderSpec(spec, accountID string) (ScheduledOrder, error) {
	var out ScheduledOrder
	body := strings.TrimSpace(spec)

	if i := strings.Index(body, ":"); i >= 0 {
		n, err := strconv.Atoi(strings.TrimSpace(body[:i]))
		if err != nil || n < 0 {
			return out, apperrors.Wrapf(apperrors.ErrInvalidOrderParameters, "bad tick offset in %q", spec)
		}
		out.AfterTicks = n
		body = body[i+1:]
	}

	fields := strings.Fields(body)
	if len(fields) < 4 {
		return out, apperrors.Wrapf(apperrors.ErrInvalidOrderParameters, "want TYPE SIDE SYMBOL QTY, got %q", spec)
	}

	orderType := models.OrderType(strings.ToUpper(fields[0]))
	if !orderType.Valid() {
		return out, apperrors.Wrapf(apperrors.ErrInvalidOrderParameters, "unknown order type %q", fields[0])
	}
	side := models.OrderSide(strings.ToUpper(fields[1]))
	if !side.Valid() {
		return out, apperrors.Wrapf(apperrors.ErrInvalidOrderParameters, "unknown side %q", fields[1])
	}
	qty, err := decimal.NewFromString(fields[3])
	if err != nil {
		return out, apperrors.Wrapf(apperrors.ErrInvalidOrderParameters, "bad quantity %q", fields[3])
	}

	req := models.OrderRequest{
		AccountID: accountID,
		Symbol:    fields[2],
		Type:      orderType,
		Side:      side,
		Quantity:  qty,
	}

	for _, f := range fields[4:] {
		if len(f) < 2 {
			return out, apperrors.Wrapf(apperrors.ErrInvalidOrderParameters, "bad price field %q", f)
		}
		v, err := decimal.NewFromString(f[1:])
		if err != nil {
			return out, apperrors.Wrapf(apperrors.ErrInvalidOrderParameters, "bad price field %q", f)
		}
		switch f[0] {
		case '@':
			req.Price = v
		case '!':
			req.StopPrice = v
		default:
			return out, apperrors.Wrapf(apperrors.ErrInvalidOrderParameters, "price fields start with @ or !, got %q", f)
		}
	}

	out.Request = req
	return out, nil
}
