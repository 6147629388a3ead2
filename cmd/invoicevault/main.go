// The invoicevault command harvests invoice documents from a shared
// inbox and archives them to object storage, keyed by vendor and date.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"invoicevault/internal/tracehttp"
)

func main() {
	var (
		logLevel string
		trace    bool
	)

	rootCmd := &cobra.Command{
		Use:   "invoicevault",
		Short: "Harvest invoice attachments from a shared inbox into object storage",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := parseLevel(logLevel)
			if err != nil {
				return err
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			if trace {
				tracehttp.WrapDefaultTransport()
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Logging level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&trace, "trace", false, "Dump API requests and responses to stderr")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newVendorsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}
