package records

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/afero"

	"github.com/recordkit/records/dburl"
	"github.com/recordkit/records/internal/config"
	"github.com/recordkit/records/introspect"
	"github.com/recordkit/records/pool"
)

// Database owns a connection pool and is the entry point for one-shot
// queries and transactions.
type Database struct {
	mu         sync.Mutex
	pool       *pool.Pool
	driverName string
	open       bool
	fs         afero.Fs
}

// Open connects to the database at the given URL. An empty URL falls back to
// the configured DATABASE_URL.
func Open(rawURL string) (*Database, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if rawURL == "" {
		rawURL = cfg.DatabaseURL
	}
	if rawURL == "" {
		return nil, ErrMissingURL
	}

	poolCfg := pool.DefaultConfig()
	poolCfg.MaxOpenConns = cfg.MaxOpenConns
	poolCfg.MaxIdleConns = cfg.MaxIdleConns
	return OpenPool(rawURL, poolCfg)
}

// OpenPool connects with explicit pool configuration.
func OpenPool(rawURL string, cfg pool.Config) (*Database, error) {
	if rawURL == "" {
		return nil, ErrMissingURL
	}
	driverName, dsn, err := dburl.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	p, err := pool.New(driverName, dsn, cfg)
	if err != nil {
		return nil, err
	}
	return &Database{
		pool:       p,
		driverName: driverName,
		open:       true,
		fs:         config.AppFs,
	}, nil
}

// Open reports whether the database is still usable.
func (db *Database) Open() bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.open
}

// Pool exposes pool statistics for the underlying engine.
func (db *Database) Pool() *pool.Pool {
	return db.pool
}

// Connection acquires a dedicated connection from the pool. The caller owns
// it and must Close it.
func (db *Database) Connection(ctx context.Context) (*Connection, error) {
	return db.connection(ctx, false)
}

func (db *Database) connection(ctx context.Context, closeWithResult bool) (*Connection, error) {
	db.mu.Lock()
	if !db.open {
		db.mu.Unlock()
		return nil, ErrDatabaseClosed
	}
	db.mu.Unlock()

	conn, err := db.pool.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return newConnection(conn, db.driverName, closeWithResult), nil
}

// Query executes the statement on a close-with-result connection: the handle
// is returned to the pool once the resulting collection is drained or closed.
func (db *Database) Query(ctx context.Context, query string, params map[string]any) (*RecordCollection, error) {
	conn, err := db.connection(ctx, true)
	if err != nil {
		return nil, err
	}
	return conn.Query(ctx, query, params)
}

// QueryAll is Query with eager realization: the collection is fully fetched
// before returning, so the connection is released immediately while the
// caller still consumes results at leisure.
func (db *Database) QueryAll(ctx context.Context, query string, params map[string]any) (*RecordCollection, error) {
	collection, err := db.Query(ctx, query, params)
	if err != nil {
		return nil, err
	}
	if _, err := collection.All(); err != nil {
		_ = collection.Close()
		return nil, err
	}
	return collection, nil
}

// QueryFile is Query with the SQL text loaded from a file.
func (db *Database) QueryFile(ctx context.Context, path string, params map[string]any) (*RecordCollection, error) {
	info, err := db.fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("records: query path %q is a directory", path)
	}
	query, err := afero.ReadFile(db.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query file: %w", err)
	}
	return db.Query(ctx, string(query), params)
}

// Exec acquires a connection, executes a row-less statement, and releases the
// connection.
func (db *Database) Exec(ctx context.Context, query string, params map[string]any) (int64, error) {
	conn, err := db.connection(ctx, false)
	if err != nil {
		return 0, err
	}
	defer conn.Close()
	return conn.Exec(ctx, query, params)
}

// Transaction runs fn inside a transaction on a dedicated connection. The
// transaction commits when fn returns nil and rolls back when fn returns an
// error or panics; the connection is closed afterward in every case, and a
// rollback failure never masks fn's error.
func (db *Database) Transaction(ctx context.Context, fn func(conn *Connection) error) error {
	conn, err := db.connection(ctx, false)
	if err != nil {
		return err
	}
	defer conn.Close()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(conn); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// TableNames returns the user table names of the connected database.
func (db *Database) TableNames(ctx context.Context) ([]string, error) {
	return db.tableNames(ctx, false)
}

// AllTableNames includes system catalog tables as well.
func (db *Database) AllTableNames(ctx context.Context) ([]string, error) {
	return db.tableNames(ctx, true)
}

func (db *Database) tableNames(ctx context.Context, internal bool) ([]string, error) {
	db.mu.Lock()
	if !db.open {
		db.mu.Unlock()
		return nil, ErrDatabaseClosed
	}
	db.mu.Unlock()

	ins, err := introspect.New(db.driverName, db.pool.DB())
	if err != nil {
		return nil, err
	}
	return ins.TableNames(ctx, internal)
}

// Close disposes the pool. Closing twice is a no-op; connections requested
// after Close fail with ErrDatabaseClosed.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if !db.open {
		return nil
	}
	db.open = false
	return db.pool.Close()
}
