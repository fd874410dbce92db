package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ukydev/supply-chain-analytics/internal/models"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists records in a local SQLite database. Each record kind
// has its own table holding the JSON encoded record next to its id.
type SQLiteStore struct {
	DB *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and prepares the
// schema. Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory for %q: %w", path, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %q: %w", path, err)
	}
	// One connection: ":memory:" databases are per connection, and SQLite
	// allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("verify sqlite connection to %q: %w", path, err)
	}

	s := &SQLiteStore{DB: db}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS routes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			payload TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS analytics (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			route_id INTEGER NOT NULL DEFAULT 0,
			payload TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_analytics_route_id ON analytics(route_id);`,
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit: %w", err)
	}
	return nil
}

// InsertRoute inserts a route and returns its new id.
func (s *SQLiteStore) InsertRoute(ctx context.Context, route models.SupplyChainRoute) (int64, error) {
	route.ID = 0
	payload, err := json.Marshal(route)
	if err != nil {
		return 0, fmt.Errorf("insert route: encode: %w", err)
	}
	res, err := s.DB.ExecContext(ctx, `INSERT INTO routes (payload) VALUES (?);`, string(payload))
	if err != nil {
		return 0, fmt.Errorf("insert route: %w", err)
	}
	return res.LastInsertId()
}

// FindRoutes returns all routes.
func (s *SQLiteStore) FindRoutes(ctx context.Context) ([]models.SupplyChainRoute, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, payload FROM routes ORDER BY id;`)
	if err != nil {
		return nil, fmt.Errorf("find routes: query routes table: %w", err)
	}
	defer rows.Close()

	routes := make([]models.SupplyChainRoute, 0, 16)
	for rows.Next() {
		var r models.SupplyChainRoute
		if err := scanPayload(rows, &r.ID, &r); err != nil {
			return nil, fmt.Errorf("find routes: %w", err)
		}
		routes = append(routes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find routes: row iteration: %w", err)
	}
	return routes, nil
}

// FindRouteByID finds a route by its ID.
func (s *SQLiteStore) FindRouteByID(ctx context.Context, id int64) (*models.SupplyChainRoute, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT id, payload FROM routes WHERE id = ?;`, id)

	var r models.SupplyChainRoute
	if err := scanPayload(row, &r.ID, &r); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(KindRoutes, id)
		}
		return nil, fmt.Errorf("find route %d: %w", id, err)
	}
	return &r, nil
}

// DeleteRoute deletes a route by its ID.
func (s *SQLiteStore) DeleteRoute(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, KindRoutes, id)
}

// InsertAnalytics inserts an analytics record and returns its new id.
func (s *SQLiteStore) InsertAnalytics(ctx context.Context, a models.SupplyChainAnalytics) (int64, error) {
	a.ID = 0
	payload, err := json.Marshal(a)
	if err != nil {
		return 0, fmt.Errorf("insert analytics: encode: %w", err)
	}
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO analytics (route_id, payload) VALUES (?, ?);`, a.RouteID, string(payload))
	if err != nil {
		return 0, fmt.Errorf("insert analytics: %w", err)
	}
	return res.LastInsertId()
}

// FindAnalytics returns all analytics records.
func (s *SQLiteStore) FindAnalytics(ctx context.Context) ([]models.SupplyChainAnalytics, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, payload FROM analytics ORDER BY id;`)
	if err != nil {
		return nil, fmt.Errorf("find analytics: query analytics table: %w", err)
	}
	defer rows.Close()

	out := make([]models.SupplyChainAnalytics, 0, 16)
	for rows.Next() {
		var a models.SupplyChainAnalytics
		if err := scanPayload(rows, &a.ID, &a); err != nil {
			return nil, fmt.Errorf("find analytics: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find analytics: row iteration: %w", err)
	}
	return out, nil
}

// FindAnalyticsByID finds an analytics record by its ID.
func (s *SQLiteStore) FindAnalyticsByID(ctx context.Context, id int64) (*models.SupplyChainAnalytics, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT id, payload FROM analytics WHERE id = ?;`, id)

	var a models.SupplyChainAnalytics
	if err := scanPayload(row, &a.ID, &a); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(KindAnalytics, id)
		}
		return nil, fmt.Errorf("find analytics %d: %w", id, err)
	}
	return &a, nil
}

// DeleteAnalytics deletes an analytics record by its ID.
func (s *SQLiteStore) DeleteAnalytics(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, KindAnalytics, id)
}

// Close closes the database.
func (s *SQLiteStore) Close(ctx context.Context) error {
	return s.DB.Close()
}

// deleteByID only interpolates the table name, which comes from the fixed
// set of record kinds.
func (s *SQLiteStore) deleteByID(ctx context.Context, kind RecordKind, id int64) error {
	res, err := s.DB.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?;`, kind), id)
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", kind, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s %d: rows affected: %w", kind, id, err)
	}
	if n == 0 {
		return notFound(kind, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanPayload decodes the payload column into v and then overwrites the id
// with the row id, which is authoritative.
func scanPayload(row rowScanner, id *int64, v any) error {
	var rowID int64
	var payload string
	if err := row.Scan(&rowID, &payload); err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return fmt.Errorf("decode payload of row %d: %w", rowID, err)
	}
	*id = rowID
	return nil
}
