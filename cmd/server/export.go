package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"longtrees/internal/export"
	"longtrees/internal/platform/blob"
	"longtrees/internal/storage"
)

// exportPrefix overrides export.prefix from the config.
var exportPrefix string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every collection to the blob store as JSON Lines",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, log, err := setup()
		if err != nil {
			return err
		}
		stores, err := storage.Open(ctx, cfg.Store)
		if err != nil {
			return fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
		}
		defer stores.Close(ctx)

		blobs, err := blob.Open(ctx, cfg.Export)
		if err != nil {
			return fmt.Errorf("open %s blob store: %w", cfg.Export.Driver, err)
		}

		prefix := cfg.Export.Prefix
		if exportPrefix != "" {
			prefix = exportPrefix
		}
		exporter := export.New(stores, blobs,
			export.WithLogger(log),
			export.WithPageSize(cfg.Store.MaxPageSize),
		)
		manifest, err := exporter.Run(ctx, prefix)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(manifest)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportPrefix, "prefix", "", "key prefix for this run (default: export.prefix)")
}
