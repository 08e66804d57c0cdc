package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	serverURL string
	verbose   bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "batchreview: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batchreview",
		Short: "Review brand assets in bulk against the asset review API",
		Long: `batchreview uploads up to 30 images to the asset review API, five at a time,
and prints a pass/fail summary once every file has been reviewed.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&serverURL, "server", "s", defaultServerURL(), "Base URL of the asset review API")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every status transition")
	cmd.AddCommand(
		newRunCmd(),
		newAssetTypesCmd(),
	)
	return cmd
}

func defaultServerURL() string {
	if value := os.Getenv("ASSET_REVIEW_SERVER"); value != "" {
		return value
	}
	return "http://localhost:8080"
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().
		Timestamp().
		Logger()
}
