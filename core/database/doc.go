// Package database handles database connections for the picture inventory.
//
// It provides a wrapper around GORM to configure MySQL connections for
// deployments and SQLite connections for local use and tests, based on the
// application's configuration.
//
// # Connect
//
// The Connect function establishes a connection according to Config.Driver.
// The SQLite driver accepts a file path or ":memory:" as the database name.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
package database
