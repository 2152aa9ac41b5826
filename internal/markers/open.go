package markers

import (
	"context"
	"fmt"
	"log"

	"resume-builder/internal/shared/config"
	"resume-builder/internal/shared/storage/db"
)

// Open selects the store named by cfg.MarkerStore. The postgres store shares
// the process-wide pool, sized by pool, and applies pending migrations.
func Open(ctx context.Context, cfg config.Config, pool db.Options) (Store, error) {
	switch cfg.MarkerStore {
	case "postgres":
		sqlDB, err := db.GetSingleton(ctx, cfg.DatabaseURL, db.OptionsFromEnv(pool))
		if err != nil {
			return nil, fmt.Errorf("connect marker database: %w", err)
		}
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			return nil, fmt.Errorf("migrate marker database: %w", err)
		}
		log.Printf("marker store: postgres")
		return &PGStore{DB: sqlDB}, nil
	case "file":
		store, err := NewFileStore(cfg.StateDir)
		if err != nil {
			return nil, err
		}
		log.Printf("marker store: file (%s)", cfg.StateDir)
		return store, nil
	default:
		log.Printf("marker store: memory")
		return NewMemoryStore(), nil
	}
}
