package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	"aurix/internal/storage/postgres"
)

// RunPostgresMigrations applies every embedded postgres schema file against
// the pool. Files use CREATE ... IF NOT EXISTS so re-running is safe.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	files, err := sqlFiles(postgresFS, "postgres")
	if err != nil {
		return fmt.Errorf("list postgres migrations: %w", err)
	}

	for _, file := range files {
		data, err := fs.ReadFile(postgresFS, file)
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}
		sql := strings.TrimSpace(string(data))
		if sql == "" {
			continue
		}
		if _, err := pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("apply %s: %w", file, err)
		}
	}

	return nil
}
