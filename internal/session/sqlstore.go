package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/ocr-dashboard/internal/common"
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// SQLStore keeps snapshots in a single table on SQLite or Postgres.
type SQLStore struct {
	db      *sql.DB
	pool    *pgxpool.Pool
	dialect dialect
	logger  *slog.Logger
}

type sqlOptions struct {
	logger      *slog.Logger
	dialTimeout time.Duration
}

type SQLOption func(*sqlOptions)

func WithLogger(logger *slog.Logger) SQLOption {
	return func(o *sqlOptions) { o.logger = logger }
}

func WithDialTimeout(d time.Duration) SQLOption {
	return func(o *sqlOptions) { o.dialTimeout = d }
}

func buildOptions(opts []SQLOption) sqlOptions {
	o := sqlOptions{logger: slog.Default(), dialTimeout: 5 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// OpenSQLite opens (creating if needed) a SQLite database at path.
func OpenSQLite(ctx context.Context, path string, opts ...SQLOption) (*SQLStore, error) {
	o := buildOptions(opts)
	o.logger.Info("session.store.open", "driver", "sqlite", "path", path)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer keeps SQLite from returning SQLITE_BUSY
	db.SetMaxOpenConns(1)
	s := &SQLStore{db: db, dialect: dialectSQLite, logger: o.logger}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// OpenPostgres connects through a pgx pool wrapped as *sql.DB.
func OpenPostgres(ctx context.Context, dsn string, opts ...SQLOption) (*SQLStore, error) {
	o := buildOptions(opts)
	o.logger.Info("session.store.open", "driver", "pgx")
	pc, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		o.logger.Error("session.store.open_error", "error", err)
		return nil, err
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "ocr-dashboard"

	dialCtx, cancel := context.WithTimeout(ctx, o.dialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		o.logger.Error("session.store.open_error", "error", err)
		return nil, err
	}
	s := &SQLStore{db: stdlib.OpenDBFromPool(pool), pool: pool, dialect: dialectPostgres, logger: o.logger}
	if err := s.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	blob := "BLOB"
	ts := "TIMESTAMP"
	if s.dialect == dialectPostgres {
		blob = "BYTEA"
		ts = "TIMESTAMPTZ"
	}
	ddl := `CREATE TABLE IF NOT EXISTS dashboard_sessions (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		doc_type TEXT NOT NULL DEFAULT '',
		record_id TEXT NOT NULL DEFAULT '',
		record_kind TEXT NOT NULL DEFAULT '',
		record ` + blob + `,
		verification ` + blob + `,
		updated_at ` + ts + ` NOT NULL
	)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("migrate sessions: %w", err)
	}
	return nil
}

// ph returns the n-th (1-based) bind placeholder for the dialect.
func (s *SQLStore) ph(n int) string {
	if s.dialect == dialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (s *SQLStore) Load(ctx context.Context, id string) (Snapshot, error) {
	q := `SELECT mode, doc_type, record_id, record_kind, record, verification, updated_at
		FROM dashboard_sessions WHERE id = ` + s.ph(1)
	var e encoded
	err := s.db.QueryRowContext(ctx, q, id).Scan(&e.Mode, &e.DocType, &e.RecordID, &e.Kind, &e.Record, &e.Verification, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, common.ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load session: %w", err)
	}
	return decode(e)
}

func (s *SQLStore) Save(ctx context.Context, id string, snap Snapshot) error {
	e, err := encode(snap)
	if err != nil {
		return err
	}
	q := `INSERT INTO dashboard_sessions (id, mode, doc_type, record_id, record_kind, record, verification, updated_at)
		VALUES (` + s.ph(1) + `, ` + s.ph(2) + `, ` + s.ph(3) + `, ` + s.ph(4) + `, ` + s.ph(5) + `, ` + s.ph(6) + `, ` + s.ph(7) + `, ` + s.ph(8) + `)
		ON CONFLICT (id) DO UPDATE SET
			mode = excluded.mode,
			doc_type = excluded.doc_type,
			record_id = excluded.record_id,
			record_kind = excluded.record_kind,
			record = excluded.record,
			verification = excluded.verification,
			updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, q, id, e.Mode, e.DocType, e.RecordID, e.Kind, e.Record, e.Verification, e.UpdatedAt.UTC()); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	s.logger.Debug("session.store.saved", "session_id", id, "record_kind", e.Kind)
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM dashboard_sessions WHERE id = `+s.ph(1), id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// HealthCheck pings the database.
func (s *SQLStore) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	err := s.db.Close()
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}
