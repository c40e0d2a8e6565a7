package main

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pricebot/internal/rate"
)

var (
	rateURL      string
	rateTimeout  time.Duration
	fallbackRate float64
)

var rateCmd = &cobra.Command{
	Use:   "rate",
	Short: "Print the current EUR rate",
	Long: `Fetch the EUR rate from the central bank feed and print it.
Exits with an error when the feed is unavailable.`,
	Args: cobra.NoArgs,
	RunE: runRate,
}

func init() {
	addRateFlags(rateCmd)
}

func addRateFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&rateURL, "rate-url", rate.DefaultURL, "Exchange rate feed URL")
	cmd.Flags().DurationVar(&rateTimeout, "rate-timeout", rate.DefaultTimeout, "Exchange rate request timeout")
	cmd.Flags().Float64Var(&fallbackRate, "fallback-rate", rate.FallbackRate.InexactFloat64(), "Rate used when the feed is unavailable")
}

func newRateProvider(logger *zap.Logger) *rate.Provider {
	return rate.NewProvider(logger,
		rate.WithURL(rateURL),
		rate.WithHTTPClient(rate.NewHTTPClient(rateTimeout)),
		rate.WithFallback(decimal.NewFromFloat(fallbackRate)),
	)
}

func runRate(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), rateTimeout)
	defer cancel()

	value, err := newRateProvider(zap.NewNop()).Fetch(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch rate: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "EUR: %s ₽\n", value.StringFixed(4))
	return nil
}
