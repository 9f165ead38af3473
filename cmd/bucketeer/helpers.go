package main

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/Veraticus/bucketeer/internal/common"
	"github.com/Veraticus/bucketeer/internal/config"
	"github.com/Veraticus/bucketeer/internal/storage"
)

func databasePath() string {
	return config.DatabasePath(viper.GetViper())
}

// initStorage opens the database and brings the schema up to date.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := databasePath()
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		common.LogError(err, "Failed to run migrations", common.Fields{"database": dbPath})
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	common.LogDebug("Opened database", common.Fields{"database": dbPath})

	return store, nil
}
