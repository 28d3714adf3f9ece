package database

import (
	"context"
	"fmt"
	"strings"
)

// CollaboratorTables lists the externally owned tables this service reads,
// with the columns it depends on.
var CollaboratorTables = map[string][]string{
	"jobs":    {"id", "title", "company", "location", "description"},
	"resumes": {"user_id", "extracted_text"},
	"users":   {"id", "email"},
}

// EnsureTableColumns fails when table lacks any of columns.
func EnsureTableColumns(ctx context.Context, db DB, table string, columns ...string) error {
	if db == nil {
		return ErrNilDB
	}
	if table == "" {
		return fmt.Errorf("empty table")
	}
	for _, col := range columns {
		if col == "" {
			return fmt.Errorf("empty column")
		}
	}

	rows, err := db.Query(
		ctx,
		`SELECT column_name FROM information_schema.columns WHERE table_schema='public' AND table_name=$1`,
		table,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	existing := map[string]struct{}{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return err
		}
		existing[c] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	var missing []string
	for _, col := range columns {
		if _, ok := existing[col]; !ok {
			missing = append(missing, table+"."+col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("schema mismatch: missing columns %s", strings.Join(missing, ", "))
	}
	return nil
}

// CheckCollaboratorSchema verifies every table in CollaboratorTables.
func CheckCollaboratorSchema(ctx context.Context, db DB) error {
	for _, table := range []string{"jobs", "resumes", "users"} {
		if err := EnsureTableColumns(ctx, db, table, CollaboratorTables[table]...); err != nil {
			return err
		}
	}
	return nil
}
