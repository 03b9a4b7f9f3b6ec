package cli

import (
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"papertrader/internal/models"
)

func newAccountCmd(app *App) *cobra.Command {
	var (
		name    string
		balance float64
	)

	cmd := &cobra.Command{
		Use:   "account",
		Short: "Create an account with the configured defaults and print it",
		Long: `Create a fresh paper trading account and print its snapshot.

Useful for checking the configured default balance and fee rate.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			rt, err := NewRuntime(app.Config, app.Logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			id, err := rt.Engine.CreateAccount(name, app.initialBalance(balance))
			if err != nil {
				return err
			}
			info, err := rt.Engine.GetAccountInfo(id)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"account":  info,
					"fee_rate": rt.Engine.FeeRate(),
				})
			}
			printAccount(output, info)
			output.Printf("  Fee Rate:      %s\n", rt.Engine.FeeRate())
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "paper", "account name")
	cmd.Flags().Float64Var(&balance, "balance", 0, "initial balance (default from config)")
	return cmd
}

// initialBalance returns flagValue, or the configured default when it is not positive.
func (a *App) initialBalance(flagValue float64) decimal.Decimal {
	if flagValue > 0 {
		return decimal.NewFromFloat(flagValue)
	}
	return a.Config.DefaultBalance()
}

func printAccount(output *Output, info *models.AccountInfo) {
	output.Bold("Account %s (%s)", info.Name, info.ID)
	output.Printf("  Initial:       %s\n", FormatMoney(info.InitialBalance))
	output.Printf("  Balance:       %s\n", FormatMoney(info.CurrentBalance))
	output.Printf("  Available:     %s\n", FormatMoney(info.AvailableBalance))
	output.Printf("  Reserved:      %s\n", FormatMoney(info.Reserved))
	output.Printf("  Fees Paid:     %s\n", FormatMoney(info.FeesPaid))
	output.Printf("  Realized P&L:  %s\n", colorPnL(output, info.RealizedPnL))
	output.Printf("  Total Equity:  %s\n", FormatMoney(info.TotalEquity()))
	output.Printf("  Created:       %s\n", FormatDateTime(info.CreatedAt))

	if len(info.Positions) == 0 {
		return
	}
	output.Println()
	table := NewTable(output, "SYMBOL", "QTY", "AVG COST", "LAST", "VALUE", "UNREALIZED")
	for _, p := range info.Positions {
		table.AddRow(
			p.Symbol,
			FormatQuantity(p.Quantity),
			FormatPrice(p.AvgCost),
			FormatPrice(p.LastPrice),
			FormatMoney(p.MarketValue),
			colorPnL(output, p.UnrealizedPnL),
		)
	}
	table.Render()
}

func printOrders(output *Output, orders []models.Order) {
	if len(orders) == 0 {
		output.Dim("No orders")
		return
	}
	table := NewTable(output, "ID", "TYPE", "SIDE", "SYMBOL", "QTY", "PRICE", "STOP", "STATUS", "FILL", "FEE", "REASON")
	for _, o := range orders {
		table.AddRow(
			TruncateString(o.ID, 8),
			string(o.Type),
			string(o.Side),
			o.Symbol,
			FormatQuantity(o.Quantity),
			FormatPrice(o.Price),
			FormatPrice(o.StopPrice),
			colorStatus(output, o.Status),
			FormatPrice(o.AvgFillPrice),
			FormatMoney(o.Fee),
			TruncateString(o.RejectReason, 40),
		)
	}
	table.Render()
}

func colorPnL(output *Output, pnl decimal.Decimal) string {
	text := FormatPnL(pnl)
	switch {
	case pnl.IsPositive():
		return output.Green(text)
	case pnl.IsNegative():
		return output.Red(text)
	}
	return text
}

func colorStatus(output *Output, status models.OrderStatus) string {
	switch status {
	case models.OrderStatusFilled:
		return output.Green(string(status))
	case models.OrderStatusRejected:
		return output.Red(string(status))
	case models.OrderStatusCancelled:
		return output.DimText(string(status))
	}
	return output.Yellow(string(status))
}
