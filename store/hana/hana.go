// Package hana implements the hanakv store contract on SAP HANA.
//
// Entries live in a two-column column-store table: "ID" (bounded VARCHAR,
// primary key) and "VALUE" (NCLOB, opaque to this package). Writes use HANA's
// UPSERT ... WITH PRIMARY KEY, so a set is a single round trip with no
// read-before-write race window. Iteration pages through the table with a
// keyset cursor on "ID" (see iterate.go).
//
// The one-time connect-and-provision step runs lazily: every operation
// resolves the readiness gate first, and the outcome is latched. A failed
// initialization stays failed; the store never retries or reconnects.
package hana

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	// registers the "hdb" database/sql driver
	_ "github.com/SAP/go-hdb/driver"

	"github.com/unkn0wn-root/hanakv/store"
)

const (
	// DefaultTable is the table provisioned and queried when Config.Table
	// is empty.
	DefaultTable = "KEYV"

	// DefaultKeySize bounds the "ID" column width (and therefore the longest
	// storable composite id) when Config.KeySize is zero.
	DefaultKeySize = 255

	// DefaultIterationLimit is the per-batch row count used by Iterate when
	// Config.IterationLimit is not a positive integer.
	DefaultIterationLimit = 10
)

// hdbDuplicateTable is HANA's "cannot use duplicate table name" error code,
// raised when CREATE TABLE races with (or follows) prior provisioning.
const hdbDuplicateTable = 288

// Config describes one HANA-backed store.
type Config struct {
	// Session coordinates. Ignored when DB is set.
	Host     string
	Port     int
	User     string
	Password string

	// ExtraOptions is passed through as DSN query parameters (TLS settings,
	// timeouts, and other driver options). Ignored when DB is set.
	ExtraOptions map[string]string

	// DB supplies an externally managed handle instead of opening one from
	// the coordinates above. The store still pins, pings and provisions it,
	// and Disconnect closes it.
	DB *sql.DB

	// Namespace scopes Clear. Keys arriving at the CRUD operations are
	// expected to carry this prefix already.
	Namespace string

	// Schema qualifies the table name. Empty means the session's current
	// schema.
	Schema string

	// Table is the backing table name. Defaults to DefaultTable.
	Table string

	// KeySize is the "ID" column width. Defaults to DefaultKeySize.
	KeySize int

	// IterationLimit is the Iterate batch size. Non-positive values fall
	// back to DefaultIterationLimit.
	IterationLimit int

	// SkipTableCreation disables provisioning for deployments where the
	// schema is managed externally.
	SkipTableCreation bool

	// Logger receives out-of-band notifications (initialization failures).
	// Nil disables logging.
	Logger store.Logger
}

// Store is a HANA-backed store.Store. All statements serialize through one
// pinned connection guarded by a mutex, so concurrent calls interleave at
// whole-statement granularity only. Multi-statement operations (Delete,
// DeleteMany) are not mutually exclusive across their check and their write.
type Store struct {
	cfg     Config
	table   string // quoted, schema-qualified identifier
	keySize int
	limit   int
	log     store.Logger
	stmt    statements

	initOnce sync.Once
	initErr  error
	closed   atomic.Bool

	mu sync.Mutex // serializes statements on the single session
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// statements are the fixed per-call SQL templates, rendered once at
// construction. IN (...) lists are built per call.
type statements struct {
	create    string
	get       string
	set       string
	countOne  string
	deleteOne string
	clear     string
	iterFirst string
	iterNext  string
}

// New validates cfg and returns an unconnected store. The session is opened
// and the table provisioned on first use.
func New(cfg Config) (*Store, error) {
	if cfg.DB == nil && cfg.Host == "" {
		return nil, errors.New("hana: host is required")
	}
	if cfg.KeySize < 0 {
		return nil, fmt.Errorf("hana: negative key size %d", cfg.KeySize)
	}

	s := &Store{
		cfg:     cfg,
		keySize: cfg.KeySize,
		limit:   cfg.IterationLimit,
		db:      cfg.DB,
	}
	if s.keySize == 0 {
		s.keySize = DefaultKeySize
	}
	if s.limit <= 0 {
		s.limit = DefaultIterationLimit
	}
	s.log = cfg.Logger
	if s.log == nil {
		s.log = store.NopLogger{}
	}

	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}
	s.table = quoteIdent(table)
	if cfg.Schema != "" {
		s.table = quoteIdent(cfg.Schema) + "." + s.table
	}
	s.stmt = renderStatements(s.table, s.keySize, s.limit)

	return s, nil
}

func renderStatements(table string, keySize, limit int) statements {
	return statements{
		create: fmt.Sprintf(
			`CREATE COLUMN TABLE %s ("ID" VARCHAR(%d), "VALUE" NCLOB, PRIMARY KEY ("ID"))`,
			table, keySize),
		get:       fmt.Sprintf(`SELECT "VALUE" FROM %s WHERE "ID" = ?`, table),
		set:       fmt.Sprintf(`UPSERT %s ("ID", "VALUE") VALUES (?, ?) WITH PRIMARY KEY`, table),
		countOne:  fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE "ID" = ?`, table),
		deleteOne: fmt.Sprintf(`DELETE FROM %s WHERE "ID" = ?`, table),
		clear:     fmt.Sprintf(`DELETE FROM %s WHERE "ID" LIKE ? ESCAPE '\'`, table),
		iterFirst: fmt.Sprintf(
			`SELECT "ID", "VALUE" FROM %s WHERE "ID" LIKE ? ESCAPE '\' ORDER BY "ID" LIMIT %d`,
			table, limit),
		iterNext: fmt.Sprintf(
			`SELECT "ID", "VALUE" FROM %s WHERE "ID" LIKE ? ESCAPE '\' AND "ID" > ? ORDER BY "ID" LIMIT %d`,
			table, limit),
	}
}

// ready resolves the one-time initialization. The first caller performs
// connect-and-provision; everyone else gets the latched outcome. Once failed
// it stays failed, wrapped so both errors.Is(err, store.ErrNotReady) and the
// original cause remain matchable.
func (s *Store) ready(ctx context.Context) error {
	if s.closed.Load() {
		return store.ErrNotReady
	}
	s.initOnce.Do(func() {
		s.initErr = s.init(ctx)
		if s.initErr != nil {
			s.log.Error("hana init failed", store.Fields{"table": s.table, "err": s.initErr})
		}
	})
	if s.initErr != nil {
		return fmt.Errorf("%w: %w", store.ErrNotReady, s.initErr)
	}
	if s.closed.Load() {
		return store.ErrNotReady
	}
	return nil
}

func (s *Store) init(ctx context.Context) error {
	db := s.db
	if db == nil {
		var err error
		db, err = sql.Open("hdb", s.dsn())
		if err != nil {
			return &store.ConnectionError{Err: err}
		}
	}

	// One session per store; statements serialize through it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		if s.cfg.DB == nil {
			db.Close()
		}
		return &store.ConnectionError{Err: err}
	}

	if !s.cfg.SkipTableCreation {
		if _, err := db.ExecContext(ctx, s.stmt.create); err != nil && !isDuplicateTable(err) {
			if s.cfg.DB == nil {
				db.Close()
			}
			return &store.ProvisioningError{Table: s.table, Err: err}
		}
	}

	s.db = db
	s.log.Debug("hana store ready", store.Fields{"table": s.table})
	return nil
}

func (s *Store) dsn() string {
	q := url.Values{}
	for k, v := range s.cfg.ExtraOptions {
		q.Set(k, v)
	}
	u := url.URL{
		Scheme:   "hdb",
		User:     url.UserPassword(s.cfg.User, s.cfg.Password),
		Host:     net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port)),
		RawQuery: q.Encode(),
	}
	return u.String()
}

func isDuplicateTable(err error) bool {
	var coded interface{ Code() int }
	return errors.As(err, &coded) && coded.Code() == hdbDuplicateTable
}

// exec is the write half of the execution gateway: resolve readiness, run one
// parameterized statement under the session mutex, wrap failures. No retries,
// no statement caching.
func (s *Store) exec(ctx context.Context, op, stmt string, args ...any) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
		return &store.ExecutionError{Op: op, Err: err}
	}
	return nil
}

// query is the read half of the gateway. scan consumes the row set while the
// session mutex is held.
func (s *Store) query(ctx context.Context, op, stmt string, args []any, scan func(*sql.Rows) error) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return &store.ExecutionError{Op: op, Err: err}
	}
	defer rows.Close()
	if err := scan(rows); err != nil {
		return &store.ExecutionError{Op: op, Err: err}
	}
	if err := rows.Err(); err != nil {
		return &store.ExecutionError{Op: op, Err: err}
	}
	return nil
}

func (s *Store) count(ctx context.Context, op, stmt string, args ...any) (int64, error) {
	var n int64
	err := s.query(ctx, op, stmt, args, func(rows *sql.Rows) error {
		if !rows.Next() {
			return rows.Err()
		}
		return rows.Scan(&n)
	})
	return n, err
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		val   []byte
		found bool
	)
	err := s.query(ctx, "get", s.stmt.get, []any{key}, func(rows *sql.Rows) error {
		if !rows.Next() {
			return rows.Err()
		}
		found = true
		return rows.Scan(&val)
	})
	if err != nil {
		return nil, false, err
	}
	return val, found, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.exec(ctx, "set", s.stmt.set, key, value)
}

func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	n, err := s.count(ctx, "delete", s.stmt.countOne, key)
	if err != nil || n == 0 {
		return false, err
	}
	if err := s.exec(ctx, "delete", s.stmt.deleteOne, key); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Clear(ctx context.Context) error {
	return s.exec(ctx, "clear", s.stmt.clear, prefixPattern(s.cfg.Namespace))
}

func (s *Store) GetMany(ctx context.Context, keys []string) ([][]byte, error) {
	out := make([][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	stmt := fmt.Sprintf(`SELECT "ID", "VALUE" FROM %s WHERE "ID" IN (%s)`,
		s.table, placeholders(len(keys)))
	byID := make(map[string][]byte, len(keys))
	err := s.query(ctx, "getMany", stmt, asArgs(keys), func(rows *sql.Rows) error {
		for rows.Next() {
			var (
				id  string
				val []byte
			)
			if err := rows.Scan(&id, &val); err != nil {
				return err
			}
			byID[id] = val
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// re-project to input order; absent keys keep their nil slot
	for i, k := range keys {
		if v, ok := byID[k]; ok {
			out[i] = v
		}
	}
	return out, nil
}

func (s *Store) SetMany(ctx context.Context, entries []store.Entry) error {
	for _, e := range entries {
		if err := s.Set(ctx, e.Key, e.Value); err != nil {
			return err
		}
	}
	return nil
}

// DeleteMany checks existence once up front, then deletes blindly. An entry
// removed concurrently between the two statements is indistinguishable from
// one that never existed; the return value means "at least one existed at
// check time".
func (s *Store) DeleteMany(ctx context.Context, keys []string) (bool, error) {
	if len(keys) == 0 {
		return false, nil
	}
	countStmt := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE "ID" IN (%s)`,
		s.table, placeholders(len(keys)))
	n, err := s.count(ctx, "deleteMany", countStmt, asArgs(keys)...)
	if err != nil || n == 0 {
		return false, err
	}
	delStmt := fmt.Sprintf(`DELETE FROM %s WHERE "ID" IN (%s)`,
		s.table, placeholders(len(keys)))
	if err := s.exec(ctx, "deleteMany", delStmt, asArgs(keys)...); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	n, err := s.count(ctx, "has", s.stmt.countOne, key)
	return n > 0, err
}

func (s *Store) HasMany(ctx context.Context, keys []string) ([]bool, error) {
	out := make([]bool, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	stmt := fmt.Sprintf(`SELECT "ID" FROM %s WHERE "ID" IN (%s)`,
		s.table, placeholders(len(keys)))
	present := make(map[string]struct{}, len(keys))
	err := s.query(ctx, "hasMany", stmt, asArgs(keys), func(rows *sql.Rows) error {
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			present[id] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		_, out[i] = present[k]
	}
	return out, nil
}

// Disconnect closes the session. Terminal: the store never reconnects and
// every later operation fails with store.ErrNotReady. Callers must not have
// operations in flight.
func (s *Store) Disconnect(ctx context.Context) error {
	if s.closed.Swap(true) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return &store.ExecutionError{Op: "disconnect", Err: err}
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func placeholders(n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = "?"
	}
	return strings.Join(ps, ", ")
}

func asArgs(keys []string) []any {
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	return args
}
