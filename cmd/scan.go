package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"picture-manager/core/config"
	"picture-manager/core/database"
	"picture-manager/core/logger"
	"picture-manager/core/storage"
	"picture-manager/feature/inventory"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var scanSourceIDs string

// scanCmd runs a one-shot reconciliation pass.
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one reconciliation pass",
	Long: `Walks the selected sources, diffs them against the stored inventory, and
applies the resulting changeset. Without --sources, all enabled sources are
scanned.`,
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

		db, err := database.Connect(cfg.Database)
		if err != nil {
			return err
		}
		if err := inventory.Migrate(db); err != nil {
			return err
		}

		store, err := storage.NewClient(cfg.Storage)
		if err != nil {
			logg.Warn("Storage client unavailable, bucket sources disabled", zap.Error(err))
			store = nil
		}

		svc := inventory.NewService(db, store, cfg.Inventory, logg)
		ctx := context.Background()
		if err := svc.Bootstrap(ctx); err != nil {
			return err
		}

		scope, err := resolveScope(ctx, svc, scanSourceIDs)
		if err != nil {
			return err
		}
		if len(scope) == 0 {
			logg.Info("No sources to scan")
			return nil
		}

		cs, srcErrs, err := svc.Scan(ctx, scope)
		if err != nil {
			return err
		}
		for _, se := range srcErrs {
			logg.Warn("Source failed", zap.String("source", se.Source), zap.Error(se.Err))
		}
		logg.Info("Scan complete",
			zap.Int("adds", len(cs.Adds)),
			zap.Int("updates", len(cs.Updates)),
			zap.Int("deletes", len(cs.Deletes)),
		)
		return nil
	},
}

// resolveScope parses --sources or falls back to every enabled source.
func resolveScope(ctx context.Context, svc *inventory.Service, raw string) ([]uint, error) {
	if strings.TrimSpace(raw) != "" {
		var scope []uint
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseUint(part, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid source id %q", part)
			}
			scope = append(scope, uint(id))
		}
		return scope, nil
	}

	sources, err := svc.Store().Sources(ctx)
	if err != nil {
		return nil, err
	}
	var scope []uint
	for _, src := range sources {
		if src.Enabled {
			scope = append(scope, src.ID)
		}
	}
	return scope, nil
}

func init() {
	scanCmd.Flags().StringVar(&scanSourceIDs, "sources", "", "comma-separated source ids (default: all enabled)")
	RootCmd.AddCommand(scanCmd)
}
