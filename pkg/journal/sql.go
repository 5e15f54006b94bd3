package journal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS shopctl_journal (
	id       TEXT PRIMARY KEY,
	entity   TEXT NOT NULL,
	action   TEXT NOT NULL,
	target   TEXT NOT NULL,
	reason   TEXT NOT NULL DEFAULT '',
	outcome  TEXT NOT NULL,
	status   INTEGER NOT NULL DEFAULT 0,
	message  TEXT NOT NULL DEFAULT '',
	operator TEXT NOT NULL DEFAULT '',
	at       TEXT NOT NULL
)`

// Timestamps are stored as fixed-width UTC text so the same schema works on
// sqlite and postgres and sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// row is Entry as stored.
type row struct {
	Entry
	At string `db:"at"`
}

// SQL is a journal backed by a SQL database through sqlx.
type SQL struct {
	db *sqlx.DB
}

// OpenSQLite opens (and creates) a sqlite journal at path. ":memory:" gives
// a throwaway database.
func OpenSQLite(ctx context.Context, path string) (*SQL, error) {
	if path == "" {
		return nil, fmt.Errorf("journal: sqlite3: empty path")
	}
	dsn := path
	if path != ":memory:" && !strings.Contains(path, "?") {
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: sqlite3: open: %w", err)
	}
	// sqlite serializes writers anyway, and every ":memory:" connection
	// would otherwise get its own empty database.
	db.SetMaxOpenConns(1)
	return newSQL(ctx, db)
}

// OpenPostgres connects to a postgres journal.
func OpenPostgres(ctx context.Context, dsn string) (*SQL, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: postgres: open: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	return newSQL(ctx, db)
}

// NewSQL wraps an already opened database.
func NewSQL(ctx context.Context, db *sqlx.DB) (*SQL, error) {
	return newSQL(ctx, db)
}

func newSQL(ctx context.Context, db *sqlx.DB) (*SQL, error) {
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: %s: ping: %w", db.DriverName(), err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: %s: migrate: %w", db.DriverName(), err)
	}
	return &SQL{db: db}, nil
}

func (s *SQL) Record(ctx context.Context, e Entry) error {
	q := s.db.Rebind(`INSERT INTO shopctl_journal
		(id, entity, action, target, reason, outcome, status, message, operator, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, q,
		e.ID, e.Entity, e.Action, e.Target, e.Reason, e.Outcome, e.Status, e.Message, e.Operator,
		e.At.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("journal: record %s %s/%s: %w", e.ID, e.Entity, e.Action, err)
	}
	return nil
}

func (s *SQL) List(ctx context.Context, f Filter) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	if f.Entity != "" {
		where = append(where, "entity = ?")
		args = append(args, f.Entity)
	}
	if f.Target != "" {
		where = append(where, "target = ?")
		args = append(args, f.Target)
	}
	q := `SELECT id, entity, action, target, reason, outcome, status, message, operator, at FROM shopctl_journal`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY at DESC, id DESC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	var rows []row
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		e := r.Entry
		at, err := time.Parse(timeLayout, r.At)
		if err != nil {
			return nil, fmt.Errorf("journal: entry %s: bad timestamp %q: %w", r.ID, r.At, err)
		}
		e.At = at
		out = append(out, e)
	}
	return out, nil
}

func (s *SQL) Close() error {
	return s.db.Close()
}
