package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strconv"
	"strings"
	"time"
)

//go:embed scripts/initdb.sql
var bootstrapFS embed.FS

// EnsureBootstrapped applies the schema. The statements are all
// idempotent so running this on every startup is safe. The embedding
// column dimension comes from EMBED_DIM and must match the configured
// embedding model.
func EnsureBootstrapped(ctx context.Context, db *sql.DB, embedDim int) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	schema, err := buildSchema(embedDim)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func buildSchema(embedDim int) (string, error) {
	if embedDim <= 0 {
		return "", fmt.Errorf("invalid embedding dimension %d", embedDim)
	}
	raw, err := bootstrapFS.ReadFile("scripts/initdb.sql")
	if err != nil {
		return "", fmt.Errorf("read schema: %w", err)
	}
	return strings.ReplaceAll(string(raw), "{{EMBED_DIM}}", strconv.Itoa(embedDim)), nil
}
