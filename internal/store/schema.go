package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/phillip-england/recruitsuite/internal/domain"
)

// Statement is one named DDL or seed statement.
type Statement struct {
	Name string
	SQL  string
}

type columnTypes struct {
	serial string
	date   string
}

func typesFor(d Dialect) columnTypes {
	if d == SQLite {
		return columnTypes{serial: "INTEGER PRIMARY KEY AUTOINCREMENT", date: "TEXT"}
	}
	return columnTypes{serial: "SERIAL PRIMARY KEY", date: "DATE"}
}

// SchemaStatements returns the DDL in dependency order. Every statement is re-runnable.
func SchemaStatements(d Dialect) []Statement {
	t := typesFor(d)
	return []Statement{
		{Name: "create roles", SQL: `CREATE TABLE IF NOT EXISTS roles (
			role_id INTEGER PRIMARY KEY,
			role_name TEXT NOT NULL UNIQUE
		)`},
		{Name: "seed roles", SQL: `INSERT INTO roles (role_id, role_name)
			VALUES (1, 'Team Leader'), (2, 'Recruit/Advisor')
			ON CONFLICT DO NOTHING`},
		{Name: "create members", SQL: fmt.Sprintf(`CREATE TABLE IF NOT EXISTS members (
			member_id %s,
			name TEXT NOT NULL UNIQUE,
			role_id_fk INTEGER NOT NULL REFERENCES roles(role_id)
		)`, t.serial)},
		{Name: "create calendar_dates", SQL: fmt.Sprintf(`CREATE TABLE IF NOT EXISTS calendar_dates (
			training_date_id %s,
			training_date TEXT NOT NULL UNIQUE,
			start_date %[2]s,
			thirty_days %[2]s,
			ninety_days %[2]s,
			one_eighty_days %[2]s
		)`, t.serial, t.date)},
		{Name: "seed calendar sentinel", SQL: `INSERT INTO calendar_dates (training_date_id, training_date)
			VALUES (0, 'UNKNOWN')
			ON CONFLICT DO NOTHING`},
		{Name: "create member_details", SQL: `CREATE TABLE IF NOT EXISTS member_details (
			member_id_details_fk INTEGER PRIMARY KEY REFERENCES members(member_id) ON DELETE CASCADE,
			purchase TEXT NOT NULL CHECK (purchase IN ('Owner', 'Earner')),
			training_date_id_fk INTEGER NOT NULL DEFAULT 0 REFERENCES calendar_dates(training_date_id)
		)`},
		{Name: "create member_sales", SQL: `CREATE TABLE IF NOT EXISTS member_sales (
			member_id_fk INTEGER PRIMARY KEY REFERENCES members(member_id) ON DELETE CASCADE,
			newcomer_demo TEXT,
			first_sale TEXT,
			second_sale TEXT,
			third_sale TEXT,
			fourth_sale TEXT,
			fifth_sale TEXT,
			sixth_sale TEXT,
			seventh_sale TEXT,
			eighth_sale TEXT
		)`},
		{Name: "create member_relationships", SQL: `CREATE TABLE IF NOT EXISTS member_relationships (
			member_relationship_id_fk INTEGER PRIMARY KEY REFERENCES members(member_id) ON DELETE CASCADE,
			team_leader_id INTEGER NOT NULL REFERENCES members(member_id),
			recruiting_advisor_id INTEGER REFERENCES members(member_id)
		)`},
		{Name: "index relationships by team leader", SQL: `CREATE INDEX IF NOT EXISTS idx_relationships_team_leader
			ON member_relationships(team_leader_id)`},
		{Name: "index relationships by advisor", SQL: `CREATE INDEX IF NOT EXISTS idx_relationships_advisor
			ON member_relationships(recruiting_advisor_id)`},
	}
}

// CreateTables applies SchemaStatements. Any failure is fatal to the caller.
func (db *DB) CreateTables(ctx context.Context) error {
	q := db.Queries()
	for _, stmt := range SchemaStatements(db.dialect) {
		if _, err := q.exec(ctx, stmt.SQL); err != nil {
			return fmt.Errorf("schema %s: %w", stmt.Name, err)
		}
	}
	return nil
}

// CreateDatabase creates the named Postgres database over an autocommit
// maintenance connection. An existing database is logged and reported as not created.
// SQLite databases are created on open, so the call is a no-op there.
func CreateDatabase(ctx context.Context, cfg Config, name string, logger *slog.Logger) (bool, error) {
	dialect, err := DialectFor(cfg.Driver, cfg.URL)
	if err != nil {
		return false, err
	}
	if dialect == SQLite {
		return false, nil
	}
	if strings.TrimSpace(name) == "" {
		return false, fmt.Errorf("database name is required")
	}
	maintenance, err := MaintenanceURL(cfg.URL)
	if err != nil {
		return false, err
	}
	db, err := Open(ctx, Config{Driver: cfg.Driver, URL: maintenance, StatementTimeout: cfg.StatementTimeout})
	if err != nil {
		return false, err
	}
	defer db.Close()
	return CreateDatabaseOn(ctx, db, name, logger)
}

// CreateDatabaseOn runs the existence check and CREATE DATABASE on an open maintenance handle.
func CreateDatabaseOn(ctx context.Context, db *DB, name string, logger *slog.Logger) (bool, error) {
	q := db.Queries()
	var one int
	err := q.queryRow(ctx, `SELECT 1 FROM pg_database WHERE datname = ?`, []any{name}, &one)
	switch {
	case err == nil:
		if logger != nil {
			logger.Info("database already exists", "database", name)
		}
		return false, nil
	case !errors.Is(err, domain.ErrNotFound):
		return false, fmt.Errorf("check database %s: %w", name, err)
	}
	if _, err := q.exec(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize()); err != nil {
		return false, fmt.Errorf("create database %s: %w", name, err)
	}
	if logger != nil {
		logger.Info("database created", "database", name)
	}
	return true, nil
}

// MaintenanceURL points a postgres URL at the postgres maintenance database.
func MaintenanceURL(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse database url: %w", err)
	}
	u.Path = "/postgres"
	return u.String(), nil
}
