// Package catalog provides the SQLite-backed todo list the demo effects read
// and write.
//
// The catalog is an external data source for effects, not persistence for
// store state: the store never reads it directly.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait up to 5 s on lock contention
//   - Single open connection, so ":memory:" databases survive between calls
//
// List results are always ordered by id.
package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema
// 1 - UNIQUE index on items.title
const currentSchemaVersion = 1

// ErrEmptyTitle is returned when adding an item without a title.
var ErrEmptyTitle = errors.New("catalog: empty title")

// Item is one todo entry.
type Item struct {
	ID    int64  `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
	Done  bool   `json:"done" yaml:"done"`
}

// Catalog is an open todo database.
type Catalog struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at path (":memory:" for a private
// in-memory catalog). Applies pragmas and migrations.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	// One connection: SQLite has a single writer, and every connection to
	// ":memory:" would otherwise get its own empty database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to catalog: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Catalog{db: db}, nil
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Add inserts an item with the given title and returns it. Adding a title that
// already exists returns the existing item.
func (c *Catalog) Add(ctx context.Context, title string) (Item, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Item{}, ErrEmptyTitle
	}

	if _, err := c.db.ExecContext(ctx,
		`INSERT INTO items (title) VALUES (?) ON CONFLICT(title) DO NOTHING`, title,
	); err != nil {
		return Item{}, fmt.Errorf("add item %q: %w", title, err)
	}

	var it Item
	err := c.db.QueryRowContext(ctx,
		`SELECT id, title, done FROM items WHERE title = ?`, title,
	).Scan(&it.ID, &it.Title, &it.Done)
	if err != nil {
		return Item{}, fmt.Errorf("read item %q: %w", title, err)
	}
	return it, nil
}

// Seed adds every title in one transaction. Existing titles are left as-is.
func (c *Catalog) Seed(ctx context.Context, titles ...string) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, title := range titles {
		title = strings.TrimSpace(title)
		if title == "" {
			return ErrEmptyTitle
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO items (title) VALUES (?) ON CONFLICT(title) DO NOTHING`, title,
		); err != nil {
			return fmt.Errorf("seed %q: %w", title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: commit: %w", err)
	}
	return nil
}

// SetDone marks the item with the given id as done or not done.
func (c *Catalog) SetDone(ctx context.Context, id int64, done bool) error {
	res, err := c.db.ExecContext(ctx, `UPDATE items SET done = ? WHERE id = ?`, done, id)
	if err != nil {
		return fmt.Errorf("set done on item %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set done on item %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("set done on item %d: %w", id, sql.ErrNoRows)
	}
	return nil
}

// List returns every item ordered by id.
func (c *Catalog) List(ctx context.Context) ([]Item, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, title, done FROM items ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Title, &it.Done); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if _, err := db.Exec(
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_items_title_unique ON items(title)`,
		); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// pragma returns the current value of a pragma. Used by tests.
func (c *Catalog) pragma(name string) (string, error) {
	var value string
	if err := c.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("failed to query %s: %w", name, err)
	}
	return value, nil
}
