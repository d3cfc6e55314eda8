// Package store is the append-only evaluation log. It runs on SQLite by
// default and on Postgres when configured.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/ppiankov/credence/internal/model"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	//go:embed sql/*
	schemas embed.FS

	// ErrNotFound is returned when no row matches
	ErrNotFound = errors.New("not found")

	// ErrUnknownDriver is returned for an unsupported driver name
	ErrUnknownDriver = errors.New("unknown store driver")
)

// Store persists requests and evaluations
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to the configured database and applies the schema
func Open(ctx context.Context, cfg model.StoreConfig) (*Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", DriverSQLite:
		driver = DriverSQLite
	case DriverPostgres, "postgresql":
		driver = DriverPostgres
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("store dsn not specified")
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	s := &Store{db: db, driver: driver}
	if err := s.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	if s.driver == DriverSQLite {
		// one writer avoids SQLITE_BUSY under concurrent batch items
		s.db.SetMaxOpenConns(1)
		if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			return fmt.Errorf("pragma: %w", err)
		}
	}
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	ddl, err := schemas.ReadFile("sql/" + s.driver + ".sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, string(ddl)); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Close closes the underlying database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Driver returns the resolved driver name
func (s *Store) Driver() string {
	return s.driver
}

// RecordRequest stores an incoming request
func (s *Store) RecordRequest(ctx context.Context, rec model.RequestRecord) error {
	status := rec.Status
	if status == "" {
		status = model.StatusPending
	}
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO evaluation_requests (request_id, source_name, category, data, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		rec.RequestID, rec.SourceName, rec.Category, string(rec.Data), string(status),
		s.timeArg(created), s.timeArg(created),
	)
	if err != nil {
		return fmt.Errorf("insert request %s: %w", rec.RequestID, err)
	}
	return nil
}

// MarkRequest moves a request to status. updated_at is touched by the schema trigger.
func (s *Store) MarkRequest(ctx context.Context, requestID string, status model.RequestStatus) error {
	res, err := s.db.ExecContext(ctx, s.rebind(
		`UPDATE evaluation_requests SET status = ? WHERE request_id = ?`),
		string(status), requestID,
	)
	if err != nil {
		return fmt.Errorf("update request %s: %w", requestID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("request %s: %w", requestID, ErrNotFound)
	}
	return nil
}

// GetRequest returns a stored request
func (s *Store) GetRequest(ctx context.Context, requestID string) (model.RequestRecord, error) {
	var (
		rec              model.RequestRecord
		data, status     string
		created, updated timestamp
	)
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT request_id, source_name, category, data, status, created_at, updated_at
		 FROM evaluation_requests WHERE request_id = ?`), requestID,
	).Scan(&rec.RequestID, &rec.SourceName, &rec.Category, &data, &status, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RequestRecord{}, fmt.Errorf("request %s: %w", requestID, ErrNotFound)
	}
	if err != nil {
		return model.RequestRecord{}, fmt.Errorf("query request %s: %w", requestID, err)
	}
	rec.Data = []byte(data)
	rec.Status = model.RequestStatus(status)
	rec.CreatedAt = created.Time
	rec.UpdatedAt = updated.Time
	return rec, nil
}

// rebind rewrites ? placeholders as $n for Postgres
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// timeArg encodes t for the driver: TEXT on SQLite, TIMESTAMPTZ on Postgres
func (s *Store) timeArg(t time.Time) interface{} {
	if s.driver == DriverPostgres {
		return t.UTC()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// timestamp scans either a native time or its RFC 3339 text form
type timestamp struct {
	Time time.Time
}

func (t *timestamp) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (t *timestamp) parse(s string) error {
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	t.Time = parsed.UTC()
	return nil
}
