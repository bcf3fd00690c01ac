package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/fxrates"
)

// FXShowOptions configures the fx command.
type FXShowOptions struct {
	Amount     string
	JSONOutput bool
	Stdout     io.Writer
}

// FXShowSummary is the JSON shape printed by the fx command.
type FXShowSummary struct {
	Rate      decimal.Decimal  `json:"tasa"`
	Source    string           `json:"fuente"`
	UpdatedAt string           `json:"fecha_actualizacion"`
	Amount    *decimal.Decimal `json:"monto,omitempty"`
	USD       *decimal.Decimal `json:"equivalente_usd,omitempty"`
}

// FXCLI queries the upstream rate API directly, bypassing the cache, so
// operators can check what the refresh job would store.
type FXCLI struct {
	fetcher fxrates.Fetcher
}

func NewFXCLI(fetcher fxrates.Fetcher) *FXCLI {
	return &FXCLI{fetcher: fetcher}
}

func (c *FXCLI) Show(ctx context.Context, opts FXShowOptions) error {
	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}
	rate, err := c.fetcher.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fx: fetch rate: %w", err)
	}
	summary := FXShowSummary{
		Rate:      rate.Value,
		Source:    rate.Source,
		UpdatedAt: rate.UpdatedAt.Format("2006-01-02 15:04"),
	}
	if opts.Amount != "" {
		amount, err := decimal.NewFromString(opts.Amount)
		if err != nil {
			return fmt.Errorf("fx: invalid amount %q: %w", opts.Amount, err)
		}
		usd, err := fxrates.USDEquivalent(amount, rate.Value)
		if err != nil {
			return err
		}
		summary.Amount, summary.USD = &amount, &usd
	}

	if opts.JSONOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	fmt.Fprintf(out, "Tasa %s: Bs. %s por USD (actualizada %s)\n", summary.Source, summary.Rate.StringFixed(2), summary.UpdatedAt)
	if summary.USD != nil {
		fmt.Fprintf(out, "Bs. %s = USD %s\n", summary.Amount.StringFixed(2), summary.USD.StringFixed(2))
	}
	return nil
}
