// Package sql stores file diffs in a SQL database.
package sql

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/url"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/fluxcd/stackdiff/pkg/api"
	"github.com/fluxcd/stackdiff/pkg/store"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS file_diffs (
		seq                 INTEGER PRIMARY KEY AUTOINCREMENT,
		id                  TEXT NOT NULL UNIQUE,
		stack_a             TEXT NOT NULL,
		stack_b             TEXT NOT NULL,
		file                TEXT NOT NULL,
		left_not_right      TEXT NOT NULL,
		right_not_left      TEXT NOT NULL,
		same_key_diff_value TEXT NOT NULL,
		reviewed            INTEGER NOT NULL DEFAULT 0,
		created_at          TEXT NOT NULL,
		updated_at          TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS file_diffs_stacks ON file_diffs (stack_a, stack_b, seq)`,
}

const columns = `id, stack_a, stack_b, file, left_not_right, right_not_left, same_key_diff_value, reviewed, created_at, updated_at`

// DriverForScheme gives the database/sql driver and data source name
// for a database URL. The schemes "file" and "sqlite" name a sqlite
// database file; "memory" is a sqlite database that lasts as long as
// the process.
func DriverForScheme(u *url.URL) (driver, source string, err error) {
	switch u.Scheme {
	case "file", "sqlite":
		path := u.Host + u.Path
		if path == "" {
			path = u.Opaque
		}
		if path == "" {
			return "", "", errors.Errorf("no database file in %q", u.String())
		}
		return "sqlite", path, nil
	case "memory":
		return "sqlite", ":memory:", nil
	default:
		return "", "", errors.Errorf("unsupported database scheme %q", u.Scheme)
	}
}

// DB is a store.Store using a SQL database.
type DB struct {
	driver *sql.DB
}

var _ store.Store = &DB{}

// Open connects to the database at the URL, and creates the schema if
// it is not there already.
func Open(dburl string) (*DB, error) {
	u, err := url.Parse(dburl)
	if err != nil {
		return nil, errors.Wrap(err, "parsing database URL")
	}
	driver, source, err := DriverForScheme(u)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s database", driver)
	}
	// sqlite allows one writer; an in-memory database exists only
	// within its one connection.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	diffs := &DB{driver: db}
	if err := diffs.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return diffs, nil
}

func (db *DB) migrate() error {
	for _, stmt := range schema {
		if _, err := db.driver.Exec(stmt); err != nil {
			return errors.Wrap(err, "creating file_diffs table")
		}
	}
	return nil
}

func (db *DB) Insert(ctx context.Context, diffs []api.FileDiff) ([]api.FileDiff, error) {
	tx, err := db.driver.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning transaction")
	}

	stored := make([]api.FileDiff, len(diffs))
	for i, d := range diffs {
		if d.ID == "" {
			d.ID = store.NewID()
		}
		left, right, changed, err := encodePaths(d.DiffBase)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO file_diffs (`+columns+`)
                                      VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			d.ID, d.StackA, d.StackB, d.File, left, right, changed,
			d.Reviewed, formatTime(d.CreatedAt), formatTime(d.UpdatedAt))
		if err != nil {
			tx.Rollback()
			return nil, errors.Wrapf(err, "inserting diff of %s", d.File)
		}
		stored[i] = d
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "committing diffs")
	}
	return stored, nil
}

func (db *DB) Get(ctx context.Context, id string) (api.FileDiff, error) {
	rows, err := db.query(ctx, `SELECT `+columns+`
                                FROM file_diffs
                                WHERE id = ?`, id)
	if err != nil {
		return api.FileDiff{}, err
	}
	if len(rows) == 0 {
		return api.FileDiff{}, store.ErrNotFound(id)
	}
	return rows[0], nil
}

func (db *DB) FindByStacks(ctx context.Context, stackA, stackB string) ([]api.FileDiff, error) {
	return db.query(ctx, `SELECT `+columns+`
                          FROM file_diffs
                          WHERE stack_a = ? AND stack_b = ?
                          ORDER BY seq`, stackA, stackB)
}

func (db *DB) ToggleReview(ctx context.Context, id string, at time.Time) (int, error) {
	res, err := db.driver.ExecContext(ctx, `UPDATE file_diffs
                                            SET reviewed = NOT reviewed, updated_at = ?
                                            WHERE id = ?`, formatTime(at), id)
	if err != nil {
		return 0, errors.Wrapf(err, "toggling review of %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "counting toggled diffs")
	}
	if n == 0 {
		return 0, store.ErrNotFound(id)
	}
	return int(n), nil
}

func (db *DB) Close() error {
	return db.driver.Close()
}

func (db *DB) query(ctx context.Context, query string, params ...interface{}) ([]api.FileDiff, error) {
	rows, err := db.driver.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, errors.Wrap(err, "querying diffs")
	}
	defer rows.Close()

	diffs := []api.FileDiff{}
	for rows.Next() {
		var (
			d                    api.FileDiff
			left, right, changed string
			createdAt, updatedAt string
		)
		if err := rows.Scan(&d.ID, &d.StackA, &d.StackB, &d.File, &left, &right, &changed,
			&d.Reviewed, &createdAt, &updatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning diff")
		}
		if err := decodePaths(&d.DiffBase, left, right, changed); err != nil {
			return nil, errors.Wrapf(err, "decoding diff %s", d.ID)
		}
		if d.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, errors.Wrapf(err, "parsing created_at of diff %s", d.ID)
		}
		if d.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
			return nil, errors.Wrapf(err, "parsing updated_at of diff %s", d.ID)
		}
		diffs = append(diffs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "reading diffs")
	}
	return diffs, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func encodePaths(d api.DiffBase) (left, right, changed string, err error) {
	var encoded [3]string
	for i, paths := range [][]string{d.LeftNotRight, d.RightNotLeft, d.SameKeyDiffValue} {
		if paths == nil {
			paths = []string{}
		}
		bytes, err := json.Marshal(paths)
		if err != nil {
			return "", "", "", errors.Wrap(err, "encoding paths")
		}
		encoded[i] = string(bytes)
	}
	return encoded[0], encoded[1], encoded[2], nil
}

func decodePaths(d *api.DiffBase, left, right, changed string) error {
	for _, col := range []struct {
		text  string
		paths *[]string
	}{
		{left, &d.LeftNotRight},
		{right, &d.RightNotLeft},
		{changed, &d.SameKeyDiffValue},
	} {
		if err := json.Unmarshal([]byte(col.text), col.paths); err != nil {
			return err
		}
	}
	return nil
}
