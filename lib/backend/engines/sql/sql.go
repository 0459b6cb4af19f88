// Package sql implements a backend adapter storing entries as rows of a
// relational table (key TEXT PRIMARY KEY, value BLOB). The default
// driver is the pure-Go sqlite build; the table name is configurable
// via the URI: sqlite:///path/to/data.db?table=mystore
package sql

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/url"
	"regexp"
	"strings"

	"github.com/omnikv/omnistore/lib/backend"
	_ "modernc.org/sqlite"
)

const defaultTable = "omnistore"

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

const features = backend.FeatureRead |
	backend.FeatureWrite |
	backend.FeatureRemove |
	backend.FeatureExists |
	backend.FeatureList |
	backend.FeatureStat |
	backend.FeatureStream |
	backend.FeatureWriteIfAbsent |
	backend.FeatureCompareAndSwap |
	backend.FeatureOrderedList

func init() {
	backend.Register("sqlite", func(u *url.URL) (backend.Adapter, error) {
		path := u.Path
		if u.Host != "" {
			path = u.Host + "/" + u.Path
		}
		if path == "" {
			return nil, backend.NewError(backend.CodeConfiguration, "sqlite uri without database path")
		}
		table := u.Query().Get("table")
		if table == "" {
			table = defaultTable
		}
		db, err := sql.Open("sqlite", path)
		if err != nil {
			return nil, backend.WrapError(backend.CodeConfiguration, "opening sqlite db "+path, err)
		}
		// sqlite tolerates exactly one writer
		db.SetMaxOpenConns(1)
		return Open(db, table, "sqlite://"+path)
	})
}

type sqlAdapter struct {
	db    *sql.DB
	table string
	uri   string
}

// Open wraps an already-opened database handle. The table is created if
// it does not exist. Callers using other database/sql drivers (postgres,
// mysql) can construct the adapter directly through this function.
func Open(db *sql.DB, table, uri string) (backend.Adapter, error) {
	if !tableNameRe.MatchString(table) {
		_ = db.Close()
		return nil, backend.NewErrorf(backend.CodeConfiguration, "invalid table name: %q", table)
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (key TEXT PRIMARY KEY, value BLOB NOT NULL)`, table)
	if _, err := db.Exec(ddl); err != nil {
		_ = db.Close()
		return nil, backend.WrapError(backend.CodeBackend, "creating table "+table, err)
	}
	return &sqlAdapter{db: db, table: table, uri: uri}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see backend/interface.go)
// --------------------------------------------------------------------------

func (a *sqlAdapter) Read(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	query := fmt.Sprintf(`SELECT value FROM %s WHERE key = ?`, a.table)
	err := a.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, backend.NewErrorf(backend.CodeKeyNotFound, "key does not exist: %q", key)
	}
	if err != nil {
		return nil, backend.WrapError(backend.CodeBackend, "sql read "+key, err)
	}
	return value, nil
}

func (a *sqlAdapter) Write(ctx context.Context, key string, value []byte) error {
	query := fmt.Sprintf(
		`INSERT INTO %s (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		a.table)
	if _, err := a.db.ExecContext(ctx, query, key, value); err != nil {
		return backend.WrapError(backend.CodeBackend, "sql write "+key, err)
	}
	return nil
}

func (a *sqlAdapter) Remove(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = ?`, a.table)
	res, err := a.db.ExecContext(ctx, query, key)
	if err != nil {
		return backend.WrapError(backend.CodeBackend, "sql remove "+key, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return backend.NewErrorf(backend.CodeKeyNotFound, "key does not exist: %q", key)
	}
	return nil
}

func (a *sqlAdapter) Exists(ctx context.Context, key string) (bool, error) {
	var one int
	query := fmt.Sprintf(`SELECT 1 FROM %s WHERE key = ?`, a.table)
	err := a.db.QueryRowContext(ctx, query, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, backend.WrapError(backend.CodeBackend, "sql stat "+key, err)
	}
	return true, nil
}

func (a *sqlAdapter) List(ctx context.Context, prefix string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var (
			rows *sql.Rows
			err  error
		)
		if prefix == "" {
			query := fmt.Sprintf(`SELECT key FROM %s ORDER BY key`, a.table)
			rows, err = a.db.QueryContext(ctx, query)
		} else {
			query := fmt.Sprintf(
				`SELECT key FROM %s WHERE key = ? OR key LIKE ? ESCAPE '\' ORDER BY key`,
				a.table)
			rows, err = a.db.QueryContext(ctx, query, prefix, escapeLike(prefix)+`/%`)
		}
		if err != nil {
			yield("", backend.WrapError(backend.CodeBackend, "sql list "+prefix, err))
			return
		}
		defer rows.Close()
		for rows.Next() {
			var key string
			if err := rows.Scan(&key); err != nil {
				yield("", backend.WrapError(backend.CodeBackend, "sql list "+prefix, err))
				return
			}
			if !yield(key, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield("", backend.WrapError(backend.CodeBackend, "sql list "+prefix, err))
		}
	}
}

func (a *sqlAdapter) Stat(ctx context.Context, key string) (backend.Info, error) {
	var size int64
	query := fmt.Sprintf(`SELECT length(value) FROM %s WHERE key = ?`, a.table)
	err := a.db.QueryRowContext(ctx, query, key).Scan(&size)
	if errors.Is(err, sql.ErrNoRows) {
		return backend.Info{}, backend.NewErrorf(backend.CodeKeyNotFound, "key does not exist: %q", key)
	}
	if err != nil {
		return backend.Info{}, backend.WrapError(backend.CodeBackend, "sql stat "+key, err)
	}
	return backend.Info{Key: key, Size: size}, nil
}

func (a *sqlAdapter) OpenRead(ctx context.Context, key string) (io.ReadCloser, error) {
	value, err := a.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(value)), nil
}

func (a *sqlAdapter) OpenWrite(ctx context.Context, key string) (io.WriteCloser, error) {
	return &sqlWriter{adapter: a, ctx: ctx, key: key}, nil
}

func (a *sqlAdapter) WriteIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	query := fmt.Sprintf(`INSERT INTO %s (key, value) VALUES (?, ?) ON CONFLICT(key) DO NOTHING`, a.table)
	res, err := a.db.ExecContext(ctx, query, key, value)
	if err != nil {
		return false, backend.WrapError(backend.CodeBackend, "sql write "+key, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (a *sqlAdapter) CompareAndSwap(ctx context.Context, key string, expected, next []byte) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s SET value = ? WHERE key = ? AND value = ?`, a.table)
	res, err := a.db.ExecContext(ctx, query, next, key, expected)
	if err != nil {
		return false, backend.WrapError(backend.CodeBackend, "sql cas "+key, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (a *sqlAdapter) SupportsFeature(f backend.Feature) bool {
	return features&f == f
}

func (a *sqlAdapter) Info() backend.EngineInfo {
	return backend.EngineInfo{
		Engine: "sql",
		URI:    a.uri,
		SupportedFeatures: []backend.Feature{
			backend.FeatureRead, backend.FeatureWrite, backend.FeatureRemove,
			backend.FeatureExists, backend.FeatureList, backend.FeatureStat,
			backend.FeatureStream, backend.FeatureWriteIfAbsent,
			backend.FeatureCompareAndSwap, backend.FeatureOrderedList,
		},
	}
}

func (a *sqlAdapter) Close() error {
	return a.db.Close()
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// escapeLike escapes LIKE wildcards so keys containing % or _ match
// literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// sqlWriter buffers writes and commits them as one upsert on Close.
type sqlWriter struct {
	adapter *sqlAdapter
	ctx     context.Context
	key     string
	buf     []byte
	closed  bool
}

func (w *sqlWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, backend.NewError(backend.CodeBackend, "write on closed handle")
	}
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *sqlWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.adapter.Write(w.ctx, w.key, w.buf)
}
