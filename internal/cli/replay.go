package cli

import (
	"sort"

	"github.com/spf13/cobra"

	"papertrader/internal/feed"
	"papertrader/internal/models"
)

// Placement is the outcome of placing one scheduled order.
type Placement struct {
	Spec       string `json:"spec"`
	AfterTicks int    `json:"after_ticks"`
	OrderID    string `json:"order_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ReplayResult is the JSON form of a replay run.
type ReplayResult struct {
	Account    *models.AccountInfo `json:"account"`
	Orders     []models.Order      `json:"orders"`
	Placements []Placement         `json:"placements"`
	Stats      feed.ReplayStats    `json:"stats"`
	Metrics    map[string]float64  `json:"metrics,omitempty"`
}

func newReplayCmd(app *App) *cobra.Command {
	var (
		ticksPath string
		specs     []string
		name      string
		balance   float64
	)

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a ticks CSV against a fresh paper account",
		Long: `Create a paper account, place the given orders and replay market prices
from a CSV file with the columns symbol,price[,timestamp].

Orders are written as "[N:]TYPE SIDE SYMBOL QTY [@PRICE] [!STOP]". An order
with an N: prefix is placed after the first N ticks have been applied.`,
		Example: `  papertrader replay --ticks ticks.csv \
    --order "LIMIT BUY AAPL 10 @99" \
    --order "1:MARKET BUY AAPL 5" \
    --order "2:STOP SELL AAPL 15 !95"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			ticks, err := feed.LoadTicks(ticksPath)
			if err != nil {
				return err
			}

			rt, err := NewRuntime(app.Config, app.Logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			accountID, err := rt.Engine.CreateAccount(name, app.initialBalance(balance))
			if err != nil {
				return err
			}

			scheduled := make([]ScheduledOrder, 0, len(specs))
			for _, spec := range specs {
				so, err := ParseOrderSpec(spec, accountID)
				if err != nil {
					return err
				}
				scheduled = append(scheduled, so)
			}

			result, err := runReplay(cmd, rt, ticks, specs, scheduled)
			if err != nil {
				return err
			}

			if result.Account, err = rt.Engine.GetAccountInfo(accountID); err != nil {
				return err
			}
			if result.Orders, err = rt.Engine.GetOrderHistory(accountID); err != nil {
				return err
			}
			if result.Metrics, err = rt.MetricValues(); err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(result)
			}
			printReplay(output, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&ticksPath, "ticks", "", "ticks CSV file (required)")
	cmd.Flags().StringArrayVar(&specs, "order", nil, "order to place, repeatable")
	cmd.Flags().StringVar(&name, "name", "replay", "account name")
	cmd.Flags().Float64Var(&balance, "balance", 0, "initial balance (default from config)")
	_ = cmd.MarkFlagRequired("ticks")
	return cmd
}

// runReplay applies ticks in segments, placing each scheduled order once its
// tick offset has been reached. Offsets past the end are placed last.
func runReplay(cmd *cobra.Command, rt *Runtime, ticks []models.Tick, specs []string, scheduled []ScheduledOrder) (*ReplayResult, error) {
	idx := make([]int, len(scheduled))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scheduled[idx[a]].AfterTicks < scheduled[idx[b]].AfterTicks
	})

	result := &ReplayResult{Placements: make([]Placement, 0, len(scheduled))}
	applied := 0
	for _, i := range idx {
		so := scheduled[i]
		if target := min(so.AfterTicks, len(ticks)); target > applied {
			if err := replaySegment(cmd, rt, ticks[applied:target], &result.Stats); err != nil {
				return nil, err
			}
			applied = target
		}

		p := Placement{Spec: specs[i], AfterTicks: so.AfterTicks}
		id, err := rt.Engine.PlaceOrder(so.Request)
		p.OrderID = id
		if err != nil {
			p.Error = err.Error()
		}
		result.Placements = append(result.Placements, p)
	}

	if applied < len(ticks) {
		if err := replaySegment(cmd, rt, ticks[applied:], &result.Stats); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func replaySegment(cmd *cobra.Command, rt *Runtime, ticks []models.Tick, total *feed.ReplayStats) error {
	stats, err := feed.Replay(cmd.Context(), rt.Engine, ticks)
	total.Ticks += stats.Ticks
	total.Applied += stats.Applied
	total.Failed += stats.Failed
	return err
}

func printReplay(output *Output, r *ReplayResult) {
	output.Info("Replayed %d ticks (%d applied, %d failed)", r.Stats.Ticks, r.Stats.Applied, r.Stats.Failed)
	for _, p := range r.Placements {
		if p.Error != "" {
			output.Warning("  %s: %s", p.Spec, p.Error)
		}
	}
	output.Println()

	printAccount(output, r.Account)
	output.Println()
	printOrders(output, r.Orders)

	if len(r.Metrics) > 0 {
		output.Println()
		output.Bold("Metrics")
		for _, k := range sortedKeys(r.Metrics) {
			output.Printf("  %-60s %g\n", k, r.Metrics[k])
		}
	}
}
