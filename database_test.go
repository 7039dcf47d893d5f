package records

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recordkit/records/pool"
)

func testPoolConfig() pool.Config {
	cfg := pool.DefaultConfig()
	cfg.MaxOpenConns = 2
	return cfg
}

func openTestDB(t *testing.T) *Database {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records_test.db")
	db, err := OpenPool("sqlite://"+path, testPoolConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedUsers(t *testing.T, db *Database) {
	t.Helper()
	ctx := context.Background()
	_, err := db.Exec(ctx, `CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)`, nil)
	require.NoError(t, err)
	for _, user := range []struct {
		id   int
		name string
	}{{1, "x"}, {2, "y"}} {
		_, err := db.Exec(ctx, `INSERT INTO users (id, name) VALUES (:id, :name)`,
			map[string]any{"id": user.id, "name": user.name})
		require.NoError(t, err)
	}
}

func TestQueryScenario(t *testing.T) {
	db := openTestDB(t)
	seedUsers(t, db)
	ctx := context.Background()

	collection, err := db.Query(ctx, `SELECT id, name FROM users ORDER BY id`, nil)
	require.NoError(t, err)

	maps, err := collection.AllMaps()
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{
		{"id": int64(1), "name": "x"},
		{"id": int64(2), "name": "y"},
	}, maps)

	out, err := collection.Export("csv")
	require.NoError(t, err)
	assert.Equal(t, "id,name\n1,x\n2,y\n", string(out))
}

func TestQueryWithParams(t *testing.T) {
	db := openTestDB(t)
	seedUsers(t, db)
	ctx := context.Background()

	collection, err := db.Query(ctx, `SELECT name FROM users WHERE id = :id`,
		map[string]any{"id": 2})
	require.NoError(t, err)

	v, err := collection.Scalar(nil)
	require.NoError(t, err)
	assert.Equal(t, "y", v)
}

func TestQueryMissingParam(t *testing.T) {
	db := openTestDB(t)
	seedUsers(t, db)

	_, err := db.Query(context.Background(), `SELECT * FROM users WHERE id = :id`, nil)
	require.ErrorIs(t, err, ErrBadParameter)
}

func TestQueryDDLYieldsExhaustedCollection(t *testing.T) {
	db := openTestDB(t)

	collection, err := db.Query(context.Background(), `CREATE TABLE t (id INTEGER)`, nil)
	require.NoError(t, err)
	assert.False(t, collection.Pending())
	assert.Equal(t, 0, collection.Len())

	_, err = collection.Next()
	require.ErrorIs(t, err, ErrExhausted)
}

func TestQueryAllReleasesConnection(t *testing.T) {
	db := openTestDB(t)
	seedUsers(t, db)

	collection, err := db.QueryAll(context.Background(), `SELECT * FROM users`, nil)
	require.NoError(t, err)
	assert.False(t, collection.Pending())
	assert.Equal(t, 2, collection.Len())

	// The close-with-result connection went back to the pool at drain time.
	assert.Equal(t, 0, db.Pool().Stats().InUse)
}

func TestQueryFile(t *testing.T) {
	db := openTestDB(t)
	seedUsers(t, db)
	db.fs = afero.NewMemMapFs()
	ctx := context.Background()

	require.NoError(t, afero.WriteFile(db.fs, "query.sql", []byte(`SELECT name FROM users ORDER BY id`), 0644))
	require.NoError(t, db.fs.MkdirAll("queries", 0755))

	collection, err := db.QueryFile(ctx, "query.sql", nil)
	require.NoError(t, err)
	rows, err := collection.All()
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	_, err = db.QueryFile(ctx, "missing.sql", nil)
	require.Error(t, err)

	_, err = db.QueryFile(ctx, "queries", nil)
	require.Error(t, err)
}

func TestTransactionCommit(t *testing.T) {
	db := openTestDB(t)
	seedUsers(t, db)
	ctx := context.Background()
	_, err := db.Exec(ctx, `DELETE FROM users`, nil)
	require.NoError(t, err)

	err = db.Transaction(ctx, func(conn *Connection) error {
		if _, err := conn.Exec(ctx, `INSERT INTO users (id, name) VALUES (:id, :name)`,
			map[string]any{"id": 1, "name": "a"}); err != nil {
			return err
		}
		_, err := conn.Exec(ctx, `INSERT INTO users (id, name) VALUES (:id, :name)`,
			map[string]any{"id": 2, "name": "b"})
		return err
	})
	require.NoError(t, err)

	count, err := countUsers(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestTransactionRollback(t *testing.T) {
	db := openTestDB(t)
	seedUsers(t, db)
	ctx := context.Background()
	_, err := db.Exec(ctx, `DELETE FROM users`, nil)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = db.Transaction(ctx, func(conn *Connection) error {
		for id := 1; id <= 2; id++ {
			if _, err := conn.Exec(ctx, `INSERT INTO users (id, name) VALUES (:id, :name)`,
				map[string]any{"id": id, "name": "tmp"}); err != nil {
				return err
			}
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	count, err := countUsers(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestTransactionPanicRollsBack(t *testing.T) {
	db := openTestDB(t)
	seedUsers(t, db)
	ctx := context.Background()
	_, err := db.Exec(ctx, `DELETE FROM users`, nil)
	require.NoError(t, err)

	require.Panics(t, func() {
		_ = db.Transaction(ctx, func(conn *Connection) error {
			_, err := conn.Exec(ctx, `INSERT INTO users (id, name) VALUES (:id, :name)`,
				map[string]any{"id": 1, "name": "tmp"})
			require.NoError(t, err)
			panic("boom")
		})
	})

	count, err := countUsers(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func countUsers(ctx context.Context, db *Database) (int64, error) {
	collection, err := db.Query(ctx, `SELECT COUNT(*) FROM users`, nil)
	if err != nil {
		return 0, err
	}
	v, err := collection.Scalar(nil)
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

func TestTransactionStateMachine(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	conn, err := db.Connection(ctx)
	require.NoError(t, err)
	defer conn.Close()

	tx, err := conn.Begin(ctx)
	require.NoError(t, err)
	assert.Equal(t, TxActive, tx.State())

	// A second transaction on the same connection must wait for this one.
	_, err = conn.Begin(ctx)
	require.ErrorIs(t, err, ErrTransactionActive)

	require.NoError(t, tx.Commit())
	assert.Equal(t, TxCommitted, tx.State())

	// Exactly one of commit or rollback per transaction.
	require.ErrorIs(t, tx.Commit(), ErrTransactionDone)
	require.ErrorIs(t, tx.Rollback(), ErrTransactionDone)

	// The connection is free for a new transaction now.
	tx2, err := conn.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx2.Rollback())
	assert.Equal(t, TxRolledBack, tx2.State())
}

func TestConnectionClose(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	conn, err := db.Connection(ctx)
	require.NoError(t, err)
	assert.True(t, conn.Open())

	require.NoError(t, conn.Close())
	assert.False(t, conn.Open())
	// Double close never errors.
	require.NoError(t, conn.Close())

	_, err = conn.Query(ctx, `SELECT 1`, nil)
	require.ErrorIs(t, err, ErrConnectionClosed)
	_, err = conn.Exec(ctx, `SELECT 1`, nil)
	require.ErrorIs(t, err, ErrConnectionClosed)
	_, err = conn.Begin(ctx)
	require.ErrorIs(t, err, ErrConnectionClosed)
}

func TestCloseWithResultConnection(t *testing.T) {
	db := openTestDB(t)
	seedUsers(t, db)
	ctx := context.Background()

	conn, err := db.connection(ctx, true)
	require.NoError(t, err)

	collection, err := conn.Query(ctx, `SELECT * FROM users`, nil)
	require.NoError(t, err)

	// Close is a deliberate no-op while the result owns the handle.
	require.NoError(t, conn.Close())
	assert.True(t, conn.Open())

	_, err = collection.All()
	require.NoError(t, err)

	// Draining the collection released the handle.
	assert.False(t, conn.Open())
	assert.Equal(t, 0, db.Pool().Stats().InUse)
}

func TestConnectionCloseWithPendingCollection(t *testing.T) {
	db := openTestDB(t)
	seedUsers(t, db)
	ctx := context.Background()
	for id := 3; id <= 5; id++ {
		_, err := db.Exec(ctx, `INSERT INTO users (id, name) VALUES (:id, :name)`,
			map[string]any{"id": id, "name": "z"})
		require.NoError(t, err)
	}

	conn, err := db.Connection(ctx)
	require.NoError(t, err)
	collection, err := conn.Query(ctx, `SELECT id FROM users ORDER BY id`, nil)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err := collection.Next()
		require.NoError(t, err)
	}

	// Closing under an undrained cursor must return, not block on the rows.
	require.NoError(t, conn.Close())
	assert.False(t, conn.Open())
	assert.Equal(t, 0, db.Pool().Stats().InUse)

	// Every later pull fails the same way; the collection never pretends
	// the two buffered rows were the whole result set.
	_, err = collection.Next()
	require.ErrorIs(t, err, ErrConnectionClosed)
	_, err = collection.Next()
	require.ErrorIs(t, err, ErrConnectionClosed)
	_, err = collection.All()
	require.ErrorIs(t, err, ErrConnectionClosed)
	assert.True(t, collection.Pending())

	// Rows buffered before the close stay readable.
	assert.Equal(t, 2, collection.Len())
	record, err := collection.Get(0)
	require.NoError(t, err)
	v, err := record.GetByName("id")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestTransactionScopeWithPendingCollection(t *testing.T) {
	db := openTestDB(t)
	seedUsers(t, db)
	ctx := context.Background()

	var leaked *RecordCollection
	err := db.Transaction(ctx, func(conn *Connection) error {
		if _, err := conn.Exec(ctx, `INSERT INTO users (id, name) VALUES (:id, :name)`,
			map[string]any{"id": 3, "name": "c"}); err != nil {
			return err
		}
		collection, err := conn.Query(ctx, `SELECT id FROM users ORDER BY id`, nil)
		if err != nil {
			return err
		}
		if _, err := collection.Next(); err != nil {
			return err
		}
		leaked = collection
		return nil
	})
	// The scope commits and releases even though the cursor was never drained.
	require.NoError(t, err)

	_, err = leaked.Next()
	require.ErrorIs(t, err, ErrConnectionClosed)
	assert.True(t, leaked.Pending())

	count, err := countUsers(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestCancelledQueryKeepsFailing(t *testing.T) {
	db := openTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn, err := db.Connection(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	collection, err := conn.Query(ctx,
		`WITH RECURSIVE n(x) AS (SELECT 1 UNION ALL SELECT x + 1 FROM n WHERE x < 100000) SELECT x FROM n`, nil)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err := collection.Next()
		require.NoError(t, err)
	}

	cancel()
	time.Sleep(50 * time.Millisecond)

	var pullErr error
	for i := 0; i < 200000 && pullErr == nil; i++ {
		_, pullErr = collection.Next()
	}
	require.Error(t, pullErr)
	require.NotErrorIs(t, pullErr, ErrExhausted)

	// The failure latches: repeated pulls and All keep reporting it instead
	// of downgrading to exhaustion over a truncated buffer.
	_, err = collection.Next()
	assert.Equal(t, pullErr, err)
	_, err = collection.All()
	assert.Equal(t, pullErr, err)
	assert.True(t, collection.Pending())
}

func TestDatabaseClosed(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Close())
	assert.False(t, db.Open())
	// Closing is idempotent.
	require.NoError(t, db.Close())

	_, err := db.Connection(ctx)
	require.ErrorIs(t, err, ErrDatabaseClosed)
	_, err = db.Query(ctx, `SELECT 1`, nil)
	require.ErrorIs(t, err, ErrDatabaseClosed)
	_, err = db.TableNames(ctx)
	require.ErrorIs(t, err, ErrDatabaseClosed)
}

func TestTableNames(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.Exec(ctx, `CREATE TABLE alpha (id INTEGER)`, nil)
	require.NoError(t, err)
	_, err = db.Exec(ctx, `CREATE TABLE beta (id INTEGER)`, nil)
	require.NoError(t, err)

	names, err := db.TableNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, names)
}

func TestOpenMissingURL(t *testing.T) {
	_, err := OpenPool("", testPoolConfig())
	require.ErrorIs(t, err, ErrMissingURL)
}
