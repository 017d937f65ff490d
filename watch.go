package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"stockscraper/alert"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print structure-change alerts as they arrive",
	Long:  "Subscribe to ALERT_CHANNEL on REDIS_ADDR and print one line per page that stopped matching the expected layout.",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.RedisAddr == "" {
		return errors.New("REDIS_ADDR is required to watch alerts")
	}
	a := &app{cfg: cfg, log: cfg.Logger()}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	pub := alert.NewRedisPublisher(a.redisOptions(), cfg.AlertChannel)
	defer pub.Close()

	sub := pub.Subscribe(ctx)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to %s: %w", cfg.AlertChannel, err)
	}
	a.log.Info("watching alerts", "channel", cfg.AlertChannel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			ev, err := alert.Decode(msg.Payload)
			if err != nil {
				a.log.Warn("skipping malformed alert", "error", err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s %s\n", ev.At.Format(time.RFC3339), ev.Kind, ev.Symbol, ev.URL)
		}
	}
}
