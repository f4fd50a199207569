package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"relist/internal/cli"
	"relist/internal/config"
	"relist/internal/model"
	"relist/internal/pricing"
)

func priceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "price <source-price>",
		Short: "Price a hypothetical candidate",
		Long: `Run a single source price through the pricing engine and show the
computed listing price with its full fee breakdown. Useful for checking
margins before changing the markup or the fee schedule.

Examples:
  relist price 299.99
  relist price 1450 --category electronics --weight 8.5`,
		Args: cobra.ExactArgs(1),
		RunE: runPrice,
	}

	cmd.Flags().StringP("category", "c", "", "Candidate category (selects the commission rate)")
	cmd.Flags().Float64P("weight", "w", 0, "Shipment weight in kilograms")

	_ = viper.BindPFlag("price.category", cmd.Flags().Lookup("category"))
	_ = viper.BindPFlag("price.weight", cmd.Flags().Lookup("weight"))

	return cmd
}

func runPrice(_ *cobra.Command, args []string) error {
	sourcePrice, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid source price %q: %w", args[0], err)
	}

	category := viper.GetString("price.category")
	weight := viper.GetFloat64("price.weight")

	charm, err := config.LoadCharmTable()
	if err != nil {
		return err
	}
	engine, err := pricing.New(model.DefaultFeeSchedule(), charm, config.LoadPricingConfig())
	if err != nil {
		return fmt.Errorf("failed to build pricing engine: %w", err)
	}

	quote, err := engine.Price(sourcePrice, category, weight)
	if err != nil {
		return fmt.Errorf("pricing failed: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Source price:   R%.2f\n", sourcePrice)
	fmt.Fprintf(&b, "Listing price:  R%.2f\n", quote.ComputedPrice)
	fmt.Fprintf(&b, "Commission:     R%.2f\n", quote.Breakdown.Commission)
	fmt.Fprintf(&b, "Transport:      R%.2f\n", quote.Breakdown.Transport)
	fmt.Fprintf(&b, "Platform:       R%.2f\n", quote.Breakdown.Platform)

	margin := fmt.Sprintf("%.1f%%", quote.RealizedMargin*100)
	if quote.Breakdown.MarginNotGuaranteed {
		margin += " (not guaranteed)"
	}
	fmt.Fprintf(&b, "Margin:         %s", margin)

	slog.Info(cli.RenderBox("Price Quote", b.String()))
	return nil
}
