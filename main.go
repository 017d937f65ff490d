// Command stockscraper serves stock statistics and company profiles scraped
// from stockanalysis.com, or prints them from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "stockscraper",
	Short:         "Stock page scraper",
	Long:          "stockscraper turns stockanalysis.com statistics and company pages into JSON records, over HTTP or on the command line.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
