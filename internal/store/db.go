// Package store is the relational persistence shared by the batch loader and the member API.
// It runs on Postgres through pgx's database/sql driver and on SQLite through modernc.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver

	"github.com/phillip-england/recruitsuite/internal/domain"
)

type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

func (d Dialect) Driver() string {
	if d == SQLite {
		return "sqlite"
	}
	return "pgx"
}

const DefaultStatementTimeout = 5 * time.Second

type Config struct {
	Driver           string
	URL              string
	StatementTimeout time.Duration
}

// DialectFor picks the dialect from an explicit driver name or the URL scheme.
func DialectFor(driver, dsn string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "pgx", "postgres", "postgresql":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "":
		lower := strings.ToLower(dsn)
		if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
			return Postgres, nil
		}
		return SQLite, nil
	default:
		return 0, fmt.Errorf("unsupported database driver %q", driver)
	}
}

var sqlOpen = sql.Open

type DB struct {
	sql     *sql.DB
	dialect Dialect
	timeout time.Duration
}

// Open connects and pings. Failures wrap domain.ErrConnection.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	dialect, err := DialectFor(cfg.Driver, cfg.URL)
	if err != nil {
		return nil, err
	}
	dsn := cfg.URL
	if dialect == SQLite {
		dsn = sqliteDSN(dsn)
	}
	conn, err := sqlOpen(dialect.Driver(), dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", domain.ErrConnection, err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: ping: %v", domain.ErrConnection, err)
	}
	return New(conn, dialect, cfg.StatementTimeout), nil
}

// New wraps an existing handle; tests use it with sqlmock.
func New(conn *sql.DB, dialect Dialect, statementTimeout time.Duration) *DB {
	if statementTimeout <= 0 {
		statementTimeout = DefaultStatementTimeout
	}
	return &DB{sql: conn, dialect: dialect, timeout: statementTimeout}
}

func sqliteDSN(path string) string {
	if path == "" {
		path = "recruits.db"
	}
	if strings.Contains(path, "_pragma=foreign_keys") {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func (db *DB) Dialect() Dialect { return db.dialect }

func (db *DB) Close() error { return db.sql.Close() }

func (db *DB) SQL() *sql.DB { return db.sql }

// Queries runs statements outside a transaction (autocommit).
func (db *DB) Queries() *Queries {
	return &Queries{q: db.sql, dialect: db.dialect, timeout: db.timeout}
}

// WithTx runs fn in one transaction and commits when fn returns nil.
func (db *DB) WithTx(ctx context.Context, fn func(*Queries) error) error {
	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(&Queries{q: tx, dialect: db.dialect, timeout: db.timeout}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries holds the single-row statements used by the loader and the API.
type Queries struct {
	q       querier
	dialect Dialect
	timeout time.Duration
}

func (q *Queries) exec(ctx context.Context, statement string, args ...any) (sql.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()
	return q.q.ExecContext(ctx, Rebind(q.dialect, statement), args...)
}

// execAffected reports whether the statement touched a row; conflict-skipped inserts report false.
func (q *Queries) execAffected(ctx context.Context, statement string, args ...any) (bool, error) {
	res, err := q.exec(ctx, statement, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (q *Queries) queryRow(ctx context.Context, statement string, args []any, dest ...any) error {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()
	err := q.q.QueryRowContext(ctx, Rebind(q.dialect, statement), args...).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

func (q *Queries) query(ctx context.Context, statement string, args []any, scan func(*sql.Rows) error) error {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()
	rows, err := q.q.QueryContext(ctx, Rebind(q.dialect, statement), args...)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Rebind rewrites ? placeholders as $n for Postgres, leaving quoted literals alone.
func Rebind(d Dialect, statement string) string {
	if d != Postgres || !strings.Contains(statement, "?") {
		return statement
	}
	var b strings.Builder
	b.Grow(len(statement) + 8)
	n := 0
	inQuote := false
	for _, r := range statement {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DatabaseName extracts the database name from a postgres URL.
func DatabaseName(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse database url: %w", err)
	}
	name := strings.TrimPrefix(u.Path, "/")
	if name == "" {
		return "", fmt.Errorf("database url %q has no database name", dsn)
	}
	return name, nil
}

// WithDatabaseName points a postgres URL at the named database.
func WithDatabaseName(dsn, name string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse database url: %w", err)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("database name is required")
	}
	u.Path = "/" + name
	u.RawPath = ""
	return u.String(), nil
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func nullInt(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func parseDate(s sql.NullString) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	value := s.String
	if len(value) > len(domain.DateLayout) {
		value = value[:len(domain.DateLayout)]
	}
	return time.Parse(domain.DateLayout, value)
}

func formatDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(domain.DateLayout)
}

// likeContains builds a case-insensitive substring pattern with LIKE metacharacters escaped.
func likeContains(fragment string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(strings.ToLower(strings.TrimSpace(fragment))) + "%"
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
