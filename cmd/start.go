package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"picture-manager/core/config"
	"picture-manager/core/database"
	"picture-manager/core/loader"
	"picture-manager/core/logger"
	"picture-manager/core/middleware/auth"
	"picture-manager/core/middleware/rayid"
	"picture-manager/core/storage"
	"picture-manager/feature/inventory"
	"picture-manager/feature/thumbnail"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the picture manager server",
	Long:  `Starts the HTTP server and initializes all enabled features.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Load Configuration
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		// 2. Initialize Logger
		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		// 3. Connect to Database
		db, err := database.Connect(cfg.Database)
		if err != nil {
			logg.Fatal("Failed to connect to database", zap.Error(err))
		}

		// 4. Initialize Storage (optional, only bucket sources need it)
		store, err := storage.NewClient(cfg.Storage)
		if err != nil {
			logg.Warn("Storage client unavailable, bucket sources disabled", zap.Error(err))
			store = nil
		}

		// 5. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true, // We will log our own startup message
		})

		// 6. Initialize Features
		mgr := loader.NewManager()

		invFeature := inventory.NewFeature(db, store, cfg.Inventory, logg)
		mgr.Register(invFeature)

		// The thumbnail feature resolves source roots after the inventory
		// bootstrap and seeds its pregeneration queue from the inventory.
		mgr.Register(thumbnail.NewFeature(
			cfg.Thumbnail,
			invFeature.Service().Mounts,
			func(ctx context.Context) ([]thumbnail.Target, error) {
				return pregenTargets(ctx, invFeature.Service())
			},
			logg,
		))

		// Middleware Registration
		// RayID must be first to trace everything.
		app.Use(rayid.New())

		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))

		// 7. Load Features
		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		// 8. Start Server
		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := app.Listen(":" + cfg.Server.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 9. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		mgr.StopAll()
		_ = app.Shutdown()
	},
}

// pregenTargets seeds the pregeneration queue from the server inventory,
// newest pictures first.
func pregenTargets(ctx context.Context, svc *inventory.Service) ([]thumbnail.Target, error) {
	mounts := svc.Mounts()
	sources, err := svc.Store().Sources(ctx)
	if err != nil {
		return nil, err
	}
	names := map[uint]string{}
	var ids []uint
	for _, src := range sources {
		if _, mounted := mounts[src.Name]; mounted {
			names[src.ID] = src.Name
			ids = append(ids, src.ID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pics, _, err := svc.ListPictures(ctx, ids, 0, 10000, "")
	if err != nil {
		return nil, err
	}
	targets := make([]thumbnail.Target, 0, len(pics))
	for _, p := range pics {
		targets = append(targets, thumbnail.Target{
			Source:     names[p.SourceID],
			RelativeID: p.RelativeID,
		})
	}
	return targets, nil
}

func init() {
	RootCmd.AddCommand(startCmd)
}
