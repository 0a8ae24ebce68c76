package application

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"
)

// MigrationRegistry collects per-module embedded schema files and applies
// them in registration order. Schema files are written to be idempotent
// (CREATE TABLE IF NOT EXISTS ...), so re-running at startup is safe.
type MigrationRegistry struct {
	schemas []*embed.FS
}

func NewMigrationRegistry() *MigrationRegistry {
	return &MigrationRegistry{}
}

func (m *MigrationRegistry) RegisterSchema(files *embed.FS) {
	m.schemas = append(m.schemas, files)
}

func (m *MigrationRegistry) Apply(ctx context.Context, pool *pgxpool.Pool) error {
	for _, schema := range m.schemas {
		var sqlFiles []string
		err := fs.WalkDir(schema, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && filepath.Ext(path) == ".sql" {
				sqlFiles = append(sqlFiles, path)
			}
			return nil
		})
		if err != nil {
			return err
		}
		sort.Strings(sqlFiles)

		for _, path := range sqlFiles {
			content, err := schema.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read schema %s: %w", path, err)
			}
			if _, err := pool.Exec(ctx, string(content)); err != nil {
				return fmt.Errorf("apply schema %s: %w", path, err)
			}
		}
	}
	return nil
}
