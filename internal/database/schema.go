package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"todo-api/internal/config"
	"todo-api/internal/models"
	"todo-api/pkg/logger"
)

// TableName is the single table owned by the persistence layer.
const TableName = "todos"

var createTable = map[config.Backend]string{
	config.BackendPostgres: `CREATE TABLE IF NOT EXISTS todos (
		id SERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		category TEXT NOT NULL DEFAULT '` + string(models.DefaultCategory) + `',
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	// AUTOINCREMENT keeps ids from being reused after the highest row is deleted.
	config.BackendSQLite: `CREATE TABLE IF NOT EXISTS todos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		completed BOOLEAN NOT NULL DEFAULT 0,
		category TEXT NOT NULL DEFAULT '` + string(models.DefaultCategory) + `',
		created_at TIMESTAMP NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%f', 'now'))
	)`,
}

const createIndex = `CREATE INDEX IF NOT EXISTS todos_category_created_idx ON todos (category, created_at DESC, id DESC)`

// Initialize creates the todos table when missing and adds the category
// column to installations that predate it. It never drops or rewrites rows
// and is safe to run on every start.
func Initialize(ctx context.Context, db *sqlx.DB, backend config.Backend) error {
	ddl, ok := createTable[backend]
	if !ok {
		return fmt.Errorf("initialize: unsupported backend %q", backend)
	}
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	has, err := hasCategoryColumn(ctx, db, backend)
	if err != nil {
		return fmt.Errorf("inspect columns: %w", err)
	}
	if !has {
		alter := `ALTER TABLE todos ADD COLUMN category TEXT NOT NULL DEFAULT '` + string(models.DefaultCategory) + `'`
		if _, err := db.ExecContext(ctx, alter); err != nil {
			return fmt.Errorf("add category column: %w", err)
		}
		logger.Info(ctx, "Added category column", "default", models.DefaultCategory)
	}

	if _, err := db.ExecContext(ctx, createIndex); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

func hasCategoryColumn(ctx context.Context, db *sqlx.DB, backend config.Backend) (bool, error) {
	if backend == config.BackendPostgres {
		var exists bool
		err := db.GetContext(ctx, &exists, `SELECT EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = $1 AND column_name = 'category'
		)`, TableName)
		return exists, err
	}

	var cols []struct {
		CID        int     `db:"cid"`
		Name       string  `db:"name"`
		Type       string  `db:"type"`
		NotNull    bool    `db:"notnull"`
		Default    *string `db:"dflt_value"`
		PrimaryKey int     `db:"pk"`
	}
	if err := db.SelectContext(ctx, &cols, `PRAGMA table_info(todos)`); err != nil {
		return false, err
	}
	for _, c := range cols {
		if c.Name == "category" {
			return true, nil
		}
	}
	return false, nil
}
