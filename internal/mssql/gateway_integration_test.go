package mssql_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbchat/dbchat/internal/mssql"
	"github.com/dbchat/dbchat/internal/testutil"
)

// TestGatewayIntegration exercises the gateway against a real SQL Server
// container. Requires Docker; skipped in -short mode.
func TestGatewayIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	_, err := tdb.DB.ExecContext(ctx, `
		CREATE TABLE customers (
			id INT PRIMARY KEY,
			name NVARCHAR(100) NOT NULL,
			city NVARCHAR(100) NULL
		)`)
	require.NoError(t, err)
	_, err = tdb.DB.ExecContext(ctx, `
		INSERT INTO customers (id, name, city) VALUES
		(1, 'Ada', 'London'),
		(2, 'Grace', 'New York'),
		(3, 'Linus', NULL)`)
	require.NoError(t, err)
	_, err = tdb.DB.ExecContext(ctx, `CREATE VIEW customer_names AS SELECT name FROM customers`)
	require.NoError(t, err)

	g := mssql.NewGateway(tdb.DB, 1000, testutil.DiscardLogger())

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, g.Ping(ctx))
	})

	t.Run("ListTables", func(t *testing.T) {
		tables, err := g.ListTables(ctx)
		require.NoError(t, err)

		assert.Contains(t, tables, "customers")
		assert.NotContains(t, tables, "customer_names", "views are not base tables")
	})

	t.Run("ReadTable", func(t *testing.T) {
		rows, err := g.ReadTable(ctx, "customers")
		require.NoError(t, err)
		require.Len(t, rows, 3)

		byID := make(map[int64]mssql.Row)
		for _, row := range rows {
			id, ok := row["id"].(int64)
			require.True(t, ok, "id column should scan as int64, got %T", row["id"])
			byID[id] = row
		}
		assert.Equal(t, "Ada", byID[1]["name"])
		assert.Nil(t, byID[3]["city"], "NULL columns come back as nil")
	})

	t.Run("ReadTable row cap", func(t *testing.T) {
		_, err := tdb.DB.ExecContext(ctx, `CREATE TABLE big (n INT)`)
		require.NoError(t, err)
		for i := range 120 {
			_, err = tdb.DB.ExecContext(ctx, "INSERT INTO big (n) VALUES (@p1)", i)
			require.NoError(t, err)
		}

		rows, err := g.ReadTable(ctx, "big")
		require.NoError(t, err)
		assert.Len(t, rows, mssql.ReadTableRowCap)
	})

	t.Run("ReadTable invalid name", func(t *testing.T) {
		_, err := g.ReadTable(ctx, "customers; DROP TABLE customers")
		assert.ErrorIs(t, err, mssql.ErrInvalidTableName)
	})

	t.Run("ReadTable missing table is opaque", func(t *testing.T) {
		_, err := g.ReadTable(ctx, "no_such_table")
		assert.ErrorIs(t, err, mssql.ErrOperationFailed)
	})

	t.Run("Query select", func(t *testing.T) {
		rows, err := g.Query(ctx, "SELECT COUNT(*) AS total FROM customers WHERE city IS NOT NULL")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.EqualValues(t, 2, rows[0]["total"])
	})

	t.Run("Query non-select rejected", func(t *testing.T) {
		_, err := g.Query(ctx, "DELETE FROM customers")
		assert.ErrorIs(t, err, mssql.ErrQueryNotAllowed)

		// The guard rejected before execution: data is intact.
		rows, err := g.Query(ctx, "SELECT COUNT(*) AS total FROM customers")
		require.NoError(t, err)
		assert.EqualValues(t, 3, rows[0]["total"])
	})

	t.Run("Query syntax error is opaque", func(t *testing.T) {
		_, err := g.Query(ctx, "SELECT FROM WHERE")
		assert.ErrorIs(t, err, mssql.ErrOperationFailed)
	})

	t.Run("Query row cap", func(t *testing.T) {
		capped := mssql.NewGateway(tdb.DB, 2, testutil.DiscardLogger())
		rows, err := capped.Query(ctx, "SELECT id FROM customers ORDER BY id")
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})
}
