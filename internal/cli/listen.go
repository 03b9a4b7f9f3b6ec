package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"papertrader/internal/feed"
	"papertrader/internal/models"
)

func newListenCmd(app *App) *cobra.Command {
	var (
		specs    []string
		name     string
		balance  float64
		duration time.Duration
	)

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Trade a paper account against live prices from NATS",
		Long: `Create a paper account, place the given orders, then apply JSON price
ticks received on the configured NATS subject until interrupted.

Messages look like {"symbol":"AAPL","price":"101.25"}.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			rt, err := NewRuntime(app.Config, app.Logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			accountID, err := rt.Engine.CreateAccount(name, app.initialBalance(balance))
			if err != nil {
				return err
			}
			for _, spec := range specs {
				so, err := ParseOrderSpec(spec, accountID)
				if err != nil {
					return err
				}
				if so.AfterTicks != 0 {
					return fmt.Errorf("tick offsets are only supported by replay: %q", spec)
				}
				if _, err := rt.Engine.PlaceOrder(so.Request); err != nil {
					output.Warning("%s: %v", spec, err)
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			consumer := feed.NewConsumer(rt.Engine, feed.ConsumerConfig{
				BufferSize: app.Config.Feed.BufferSize,
				Logger:     app.Logger,
			})
			if err := consumer.Start(ctx); err != nil {
				return err
			}

			natsCfg := feed.DefaultNATSConfig()
			natsCfg.URL = app.Config.Feed.NATSURL
			natsCfg.Subject = app.Config.Feed.NATSSubject
			source, err := feed.ConnectNATS(natsCfg, consumer, app.Logger)
			if err != nil {
				consumer.Stop()
				return err
			}

			if !output.IsJSON() {
				output.Info("Listening on %s (%s), Ctrl+C to stop", natsCfg.Subject, natsCfg.URL)
			}
			<-ctx.Done()

			source.Close()
			consumer.Stop()

			return printListenSummary(output, rt, accountID, consumer.GetMetrics())
		},
	}

	cmd.Flags().StringArrayVar(&specs, "order", nil, "order to place before listening, repeatable")
	cmd.Flags().StringVar(&name, "name", "live", "account name")
	cmd.Flags().Float64Var(&balance, "balance", 0, "initial balance (default from config)")
	cmd.Flags().DurationVar(&duration, "duration", 0, "stop after this long (default: until interrupted)")
	return cmd
}

func printListenSummary(output *Output, rt *Runtime, accountID string, fm feed.ConsumerMetrics) error {
	info, err := rt.Engine.GetAccountInfo(accountID)
	if err != nil {
		return err
	}
	history, err := rt.Engine.GetOrderHistory(accountID)
	if err != nil {
		return err
	}

	if output.IsJSON() {
		return output.JSON(struct {
			Account *models.AccountInfo  `json:"account"`
			Orders  []models.Order       `json:"orders"`
			Feed    feed.ConsumerMetrics `json:"feed"`
		}{info, history, fm})
	}

	output.Println()
	output.Info("Ticks received %d, applied %d, dropped %d, failed %d",
		fm.Received, fm.Applied, fm.Dropped, fm.Failed)
	output.Println()
	printAccount(output, info)
	output.Println()
	printOrders(output, history)
	return nil
}
