// Package config provides configuration management for the picture manager.
//
// It utilizes Viper for loading configuration from environment variables and
// an optional .env file (via godotenv).
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings,
// divided into subsections:
//   - Server: HTTP server settings (port, API key)
//   - Database: inventory database connection details
//   - Storage: S3/MinIO credentials for bucket sources
//   - Log: logging level and format
//   - Inventory: source mapping, scan and watch settings
//   - Thumbnail: cache directory, tiers, budget, TTL, pregeneration
//
// Defaults come from `default` struct tags, bound recursively by reflection so
// that AutomaticEnv picks up every key.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config
