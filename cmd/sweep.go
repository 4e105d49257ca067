package cmd

import (
	"context"
	"sync"
	"time"

	"picture-manager/core/config"
	"picture-manager/core/logger"
	"picture-manager/feature/thumbnail"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// sweepCmd runs one cache maintenance pass.
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one thumbnail cache maintenance pass",
	Long: `Prunes metadata for missing thumbnail files, evicts entries down to the
byte budget, and expires entries idle past the TTL.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(".")
		if err != nil {
			return err
		}

		logg, err := logger.New(&logger.Config{Level: cfg.Log.Level, Format: "console"})
		if err != nil {
			return err
		}
		defer logg.Sync()

		meta := thumbnail.NewMetaStore(cfg.Thumbnail.MetadataPath)
		if err := meta.Load(); err != nil {
			return err
		}

		gen := thumbnail.NewGenerator(nil, cfg.Thumbnail.CacheDir, cfg.Thumbnail.JPEGQuality, meta, logg)
		sweeper := thumbnail.NewSweeper(
			meta,
			gen.CachePath,
			int64(cfg.Thumbnail.BudgetMB)*1024*1024,
			time.Duration(cfg.Thumbnail.TTLHours)*time.Hour,
			&sync.Mutex{},
			logg,
		)

		stats := sweeper.Sweep(context.Background())
		logg.Info("Sweep finished",
			zap.Int("pruned", stats.Pruned),
			zap.Int("budget_evictions", stats.Budget),
			zap.Int("ttl_evictions", stats.Expired),
		)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(sweepCmd)
}
