// Command dianctl is the operator tool of the DIAN document service: it
// computes fingerprints, signs and verifies documents, publishes events
// and issues API tokens.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cloudfly/dian-service/internal/domain/document"
	"github.com/cloudfly/dian-service/internal/infrastructure/logger"
)

var (
	verbose bool
	log     = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:           "dianctl",
	Short:         "Operator tool for the DIAN electronic document service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "warn"
		if verbose {
			level = "debug"
		}
		l, err := logger.New(&logger.Config{Level: level, Format: "console", Output: "stderr"})
		if err != nil {
			return err
		}
		log = l
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// readEvent loads and validates an event JSON file
func readEvent(path string) (*document.ElectronicDocumentEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var event document.ElectronicDocumentEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}
	return &event, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
