// Package mssql provides the guarded SQL Server gateway for the chat agent.
//
// The gateway exposes exactly three operations — enumerate base tables,
// preview a table, run a validated read-only query — and nothing else.
// All identifier and query validation happens here, before any SQL text
// reaches the connection.
//
// Failure semantics: connection and execution errors are logged with full
// detail server-side and re-raised as ErrOperationFailed so driver
// internals (connection strings, schema errors) never cross the
// agent/user boundary.
package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/microsoft/go-mssqldb" // registers the "sqlserver" driver

	"github.com/dbchat/dbchat/internal/config"
)

// ErrOperationFailed is the opaque error returned for any connection or
// execution failure. The underlying cause is logged, not surfaced.
var ErrOperationFailed = errors.New("operation failed")

// ReadTableRowCap bounds the table preview operation. This is a bounded
// preview, not a full scan.
const ReadTableRowCap = 100

// Row is a single result row keyed by column name.
type Row = map[string]any

// Gateway executes the three whitelisted database operations over a
// pooled SQL Server connection.
//
// Gateway is safe for concurrent use by multiple goroutines.
type Gateway struct {
	db           *sql.DB
	logger       *slog.Logger
	maxQueryRows int
}

// Open creates a Gateway from the resolved configuration.
// The configuration must have passed Validate(); Open additionally fails
// fast on an unreachable database so misconfiguration surfaces at startup
// rather than on the first tool call.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlserver", cfg.DatabaseURL())
	if err != nil {
		logger.Error("opening database", "error", err)
		return nil, ErrOperationFailed
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		logger.Error("pinging database", "server", cfg.DatabaseServer, "database", cfg.DatabaseName, "error", err)
		return nil, ErrOperationFailed
	}

	return &Gateway{
		db:           db,
		logger:       logger,
		maxQueryRows: cfg.MaxQueryRows,
	}, nil
}

// NewGateway wraps an existing database handle. Used by tests.
func NewGateway(db *sql.DB, maxQueryRows int, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{db: db, logger: logger, maxQueryRows: maxQueryRows}
}

// Close releases the connection pool.
func (g *Gateway) Close() error {
	if err := g.db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Ping reports whether the database is reachable. Used by the readiness probe.
func (g *Gateway) Ping(ctx context.Context) error {
	if err := g.db.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	return nil
}

// ListTables returns the names of all base tables in the configured
// database, in catalog order (no ordering is imposed).
func (g *Gateway) ListTables(ctx context.Context) ([]string, error) {
	rows, err := g.db.QueryContext(ctx,
		`SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_TYPE = 'BASE TABLE'`)
	if err != nil {
		g.logger.Error("listing tables", "error", err)
		return nil, ErrOperationFailed
	}
	defer func() { _ = rows.Close() }()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			g.logger.Error("scanning table name", "error", err)
			return nil, ErrOperationFailed
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		g.logger.Error("iterating tables", "error", err)
		return nil, ErrOperationFailed
	}

	return tables, nil
}

// ReadTable returns up to ReadTableRowCap rows from the named table, all
// columns, in the engine's natural order. The identifier is validated and
// bracket-quoted before interpolation; invalid names are rejected before
// any SQL text is built.
func (g *Gateway) ReadTable(ctx context.Context, table string) ([]Row, error) {
	quoted, err := QuoteTableName(table)
	if err != nil {
		return nil, err
	}

	// quoted is bracket-delimited output of QuoteTableName; the identifier
	// itself matched [A-Za-z0-9_]+ so interpolation is safe here.
	rows, err := g.db.QueryContext(ctx, fmt.Sprintf("SELECT TOP %d * FROM %s", ReadTableRowCap, quoted))
	if err != nil {
		g.logger.Error("reading table", "table", table, "error", err)
		return nil, ErrOperationFailed
	}
	defer func() { _ = rows.Close() }()

	result, err := collectRows(rows, ReadTableRowCap)
	if err != nil {
		g.logger.Error("scanning table rows", "table", table, "error", err)
		return nil, ErrOperationFailed
	}
	return result, nil
}

// Query executes a guarded free-form SELECT statement verbatim and returns
// at most the configured row cap. Non-SELECT text is rejected before the
// query reaches the connection.
func (g *Gateway) Query(ctx context.Context, query string) ([]Row, error) {
	if err := CheckReadOnly(query); err != nil {
		return nil, err
	}

	rows, err := g.db.QueryContext(ctx, query)
	if err != nil {
		g.logger.Error("executing query", "error", err)
		return nil, ErrOperationFailed
	}
	defer func() { _ = rows.Close() }()

	result, err := collectRows(rows, g.maxQueryRows)
	if err != nil {
		g.logger.Error("scanning query rows", "error", err)
		return nil, ErrOperationFailed
	}
	return result, nil
}

// collectRows scans up to limit rows into column-keyed maps.
// []byte values are converted to string so results serialize as text
// rather than base64.
func collectRows(rows *sql.Rows, limit int) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	var result []Row
	for rows.Next() {
		if limit > 0 && len(result) >= limit {
			break
		}

		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[col] = v
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return result, nil
}
