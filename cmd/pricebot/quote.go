package main

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pricebot/internal/bot"
	"pricebot/internal/quote"
)

var fixedRate string

var quoteCmd = &cobra.Command{
	Use:   "quote <amount> [items]",
	Short: "Compute a quote from the command line",
	Long: `Compute the RUB price for an order amount in euro and print it
exactly as the bot would send it. Pass the number of items to get the
two-step notices.`,
	Example: `  pricebot quote 150
  pricebot quote "99,90" 3 --rate 98.5`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runQuote,
}

func init() {
	addRateFlags(quoteCmd)
	quoteCmd.Flags().StringVar(&fixedRate, "rate", "", "Use this rate instead of fetching one")
}

func runQuote(cmd *cobra.Command, args []string) error {
	amount, err := quote.ParseAmount(args[0])
	if err != nil {
		return err
	}

	items := 0
	if len(args) == 2 {
		if items, err = quote.ParseItemCount(args[1]); err != nil {
			return err
		}
	}

	var r decimal.Decimal
	if fixedRate != "" {
		if r, err = decimal.NewFromString(fixedRate); err != nil {
			return fmt.Errorf("invalid rate %q: %w", fixedRate, err)
		}
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), rateTimeout)
		defer cancel()
		r = newRateProvider(zap.NewNop()).Rate(ctx)
	}

	q, err := quote.Compute(amount, r)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), bot.QuoteText(q, items))
	return nil
}
