package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/microsoft/go-mssqldb" // registers the "sqlserver" driver
	"github.com/testcontainers/testcontainers-go/modules/mssql"
)

// testDBPassword satisfies SQL Server's complexity requirements; the
// container refuses to start with a weak SA password.
const testDBPassword = "Str0ng_Passw0rd!"

// TestDB wraps a SQL Server test container with an open connection.
type TestDB struct {
	Container *mssql.MSSQLServerContainer
	DB        *sql.DB
	ConnStr   string
}

// SetupTestDB starts a SQL Server container and opens a connection to it.
//
// Returns the container wrapper and a cleanup function that must be
// called to terminate the container. Callers should skip in -short mode;
// container startup takes tens of seconds.
//
// Example:
//
//	func TestGateway(t *testing.T) {
//	    if testing.Short() {
//	        t.Skip("skipping container test in short mode")
//	    }
//	    db, cleanup := testutil.SetupTestDB(t)
//	    defer cleanup()
//	    // use db.DB
//	}
func SetupTestDB(t *testing.T) (*TestDB, func()) {
	t.Helper()

	ctx := context.Background()

	ctr, err := mssql.Run(ctx,
		"mcr.microsoft.com/mssql/server:2022-latest",
		mssql.WithAcceptEULA(),
		mssql.WithPassword(testDBPassword),
	)
	if err != nil {
		t.Fatalf("Failed to start SQL Server container: %v", err)
	}

	connStr, err := ctr.ConnectionString(ctx)
	if err != nil {
		_ = ctr.Terminate(ctx)
		t.Fatalf("Failed to get connection string: %v", err)
	}

	db, err := sql.Open("sqlserver", connStr)
	if err != nil {
		_ = ctr.Terminate(ctx)
		t.Fatalf("Failed to open database: %v", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		_ = ctr.Terminate(ctx)
		t.Fatalf("Failed to ping database: %v", err)
	}

	cleanup := func() {
		_ = db.Close()
		if err := ctr.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return &TestDB{Container: ctr, DB: db, ConnStr: connStr}, cleanup
}
