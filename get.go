package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"stockscraper/extract"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	getProfile bool
	getAll     bool
)

var getCmd = &cobra.Command{
	Use:   "get SYMBOL",
	Short: "Print the record for a symbol as JSON",
	Long:  "Fetch a symbol's statistics page (default), its company profile (--profile), or both at once (--all) and print the result as JSON.",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func init() {
	getCmd.Flags().BoolVar(&getProfile, "profile", false, "Print the company profile instead of the flat record")
	getCmd.Flags().BoolVar(&getAll, "all", false, "Print both records")
	getCmd.MarkFlagsMutuallyExclusive("profile", "all")
	rootCmd.AddCommand(getCmd)
}

// combined is the --all output.
type combined struct {
	Price   *extract.FlatRecord    `json:"price"`
	Profile *extract.ProfileRecord `json:"profile"`
}

func runGet(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out, err := records(ctx, a, args[0])
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

func records(ctx context.Context, a *app, symbol string) (any, error) {
	switch {
	case getAll:
		var out combined
		g, gCtx := errgroup.WithContext(ctx)
		g.Go(func() error {
			rec, err := a.service.GetFlatRecord(gCtx, symbol)
			out.Price = rec
			return err
		})
		g.Go(func() error {
			rec, err := a.service.GetProfileRecord(gCtx, symbol)
			out.Profile = rec
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return out, nil
	case getProfile:
		return a.service.GetProfileRecord(ctx, symbol)
	default:
		return a.service.GetFlatRecord(ctx, symbol)
	}
}
