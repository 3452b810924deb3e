package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
)

//go:embed schema.sql
var schemaSQL string

// Schema returns the DDL for the directory tables.
func Schema() string { return schemaSQL }

// ApplySchema creates the directory tables if they do not exist, one statement at a time.
func ApplySchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
