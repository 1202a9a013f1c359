// Package database provides SQLite connectivity for the bridge's endpoint registry.
//
// The registry holds the composite registrations submitted after each
// discovery window. By default it lives in a shared in-memory database, so
// nothing survives a restart; pointing database.path at a file keeps it.
//
// Schema changes are forward-only *.up.sql files embedded by the
// top-level migrations package and applied by DB.Migrate.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
