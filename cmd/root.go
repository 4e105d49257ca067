package cmd

import (
	"fmt"
	"os"

	"picture-manager/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "picture-manager",
	Short: "Picture Manager Service",
	Long: `Picture Manager keeps a browsable inventory of pictures from local
folders, remote APIs, server mounts, and storage buckets, and serves
tiered thumbnails generated on demand.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Console format with the debug config gives readable ISO8601
		// timestamps for CLI usage.
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Println(err)
		}
		os.Exit(1)
	}
}
