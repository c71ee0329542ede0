package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver

	"github.com/okian/ratebook/internal/domain/model"
)

// Dialect selects the SQL driver and placeholder style.
type Dialect struct {
	name   string
	driver string
	// numbered placeholders ($1) instead of "?"
	numbered bool
}

// Supported dialects.
var (
	SQLite   = Dialect{name: BackendSQLite, driver: "sqlite"}
	Postgres = Dialect{name: BackendPostgres, driver: "pgx", numbered: true}
)

const migration = `
CREATE TABLE IF NOT EXISTS ratings (
    owner  TEXT    NOT NULL,
    item   TEXT    NOT NULL,
    rating INTEGER NOT NULL,
    PRIMARY KEY (owner, item)
)`

// rebind rewrites "?" placeholders for the dialect.
func (d Dialect) rebind(query string) string {
	if !d.numbered {
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

// SQLTable persists ratings in the "ratings" table.
type SQLTable struct {
	db       *sql.DB
	dialect  Dialect
	location string
}

// OpenSQLTable connects with dsn, verifies the connection and creates the
// table when missing.
func OpenSQLTable(ctx context.Context, d Dialect, dsn string) (*SQLTable, error) {
	loc := redact(dsn)
	if strings.TrimSpace(dsn) == "" {
		return nil, &Error{Op: "open", Path: d.name, Err: errors.New("empty dsn")}
	}
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, &Error{Op: "open", Path: loc, Err: err}
	}
	if d == SQLite {
		// one writer at a time
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck,gosec // ping error takes precedence
		return nil, &Error{Op: "open", Path: loc, Err: fmt.Errorf("ping: %w", err)}
	}
	if _, err := db.ExecContext(ctx, migration); err != nil {
		db.Close() //nolint:errcheck,gosec // migration error takes precedence
		return nil, &Error{Op: "open", Path: loc, Err: fmt.Errorf("migrate: %w", err)}
	}
	return &SQLTable{db: db, dialect: d, location: loc}, nil
}

func (t *SQLTable) Name() string     { return t.dialect.name }
func (t *SQLTable) Location() string { return t.location }

// Close closes the database handle.
func (t *SQLTable) Close() error { return t.db.Close() }

// Load reads every row ordered by owner, then item. Rows outside the rating
// range or with blank names are rejected.
func (t *SQLTable) Load(ctx context.Context) ([]model.Rating, error) {
	rows, err := t.db.QueryContext(ctx, `SELECT owner, item, rating FROM ratings ORDER BY owner, item`)
	if err != nil {
		return nil, &Error{Op: "load", Path: t.location, Err: err}
	}
	defer rows.Close()

	var out []model.Rating
	for rows.Next() {
		var r model.Rating
		if err := rows.Scan(&r.Owner, &r.Item, &r.Value); err != nil {
			return nil, &Error{Op: "load", Path: t.location, Err: err}
		}
		if strings.TrimSpace(r.Owner) == "" || strings.TrimSpace(r.Item) == "" || !model.InRange(r.Value) {
			return nil, &Error{Op: "load", Path: t.location, Err: fmt.Errorf("invalid row %s=%d", r.Key(), r.Value)}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Op: "load", Path: t.location, Err: err}
	}
	return out, nil
}

// Save replaces the table contents in one transaction.
func (t *SQLTable) Save(ctx context.Context, ratings []model.Rating) (err error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return &Error{Op: "save", Path: t.location, Err: err}
	}
	defer func() {
		if err != nil {
			tx.Rollback() //nolint:errcheck,gosec // save error takes precedence
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM ratings`); err != nil {
		return &Error{Op: "save", Path: t.location, Err: err}
	}
	stmt, err := tx.PrepareContext(ctx, t.dialect.rebind(`INSERT INTO ratings (owner, item, rating) VALUES (?, ?, ?)`))
	if err != nil {
		return &Error{Op: "save", Path: t.location, Err: err}
	}
	defer stmt.Close()

	for _, r := range ratings {
		if _, err = stmt.ExecContext(ctx, r.Owner, r.Item, r.Value); err != nil {
			return &Error{Op: "save", Path: t.location, Err: fmt.Errorf("insert %s: %w", r.Key(), err)}
		}
	}
	if err = tx.Commit(); err != nil {
		return &Error{Op: "save", Path: t.location, Err: err}
	}
	return nil
}

// redact hides the password of URL-style DSNs.
func redact(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
