package storage

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
)

//go:embed schema_sqlite.sql schema_postgres.sql
var ddl embed.FS

// ErrNotFound is returned when a row to update does not exist (or is no longer updatable).
var ErrNotFound = errors.New("storage: not found")

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

type DB struct {
	*sql.DB
	dialect dialect
}

// New opens the database named by dsn and applies the schema. A postgres:// or
// postgresql:// URL selects lib/pq, anything else is treated as a sqlite file path.
func New(dsn string) (*DB, error) {
	d := &DB{dialect: dialectSQLite}
	driver, source, schema := "sqlite", dsn+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", "schema_sqlite.sql"
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		d.dialect = dialectPostgres
		driver, source, schema = "postgres", dsn, "schema_postgres.sql"
	}

	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, err
	}
	if d.dialect == dialectSQLite {
		// modernc sqlite serialises writers anyway; one connection avoids SQLITE_BUSY between them.
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if err = migrate(db, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	d.DB = db
	return d, nil
}

func migrate(db *sql.DB, name string) error {
	b, err := ddl.ReadFile(name)
	if err != nil {
		return err
	}
	_, err = db.Exec(string(b))
	return err
}

// q rewrites ? placeholders into $n for postgres.
func (d *DB) q(query string) string {
	if d.dialect != dialectPostgres {
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

// withTx runs fn in a transaction, rolling back on any error.
func (d *DB) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func mustAffect(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func unix(t time.Time) int64 { return t.UTC().Unix() }

func nullUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: unix(*t), Valid: true}
}

func fromNull(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}

// ---------- user state (fsm) ------------------------------------------------

// SetUserState stores the pending text input for a chat. An empty state clears it.
func (d *DB) SetUserState(ctx context.Context, chatID int64, state string) error {
	if state == "" {
		_, err := d.ExecContext(ctx, d.q(`DELETE FROM user_states WHERE chat_id=?`), chatID)
		return err
	}
	_, err := d.ExecContext(ctx, d.q(`
        INSERT INTO user_states(chat_id, state) VALUES (?,?)
        ON CONFLICT(chat_id) DO UPDATE SET state=excluded.state`), chatID, state)
	return err
}

func (d *DB) GetUserState(ctx context.Context, chatID int64) (string, error) {
	var st string
	err := d.QueryRowContext(ctx, d.q(`SELECT state FROM user_states WHERE chat_id=?`), chatID).Scan(&st)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return st, err
}
