// Package tools registers the database tools the agent may call.
//
// Exactly three tools are exposed: list_tables, read_table, and
// execute_sql. Each handler returns a Result so business failures reach
// the model as structured tool output instead of aborting the turn;
// only infrastructure failures (context cancellation) surface as Go
// errors.
package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/dbchat/dbchat/internal/mssql"
)

// Tool name constants registered with Genkit.
const (
	// ListTablesName is the Genkit tool name for enumerating base tables.
	ListTablesName = "list_tables"
	// ReadTableName is the Genkit tool name for previewing a table.
	ReadTableName = "read_table"
	// ExecuteSQLName is the Genkit tool name for running a SELECT query.
	ExecuteSQLName = "execute_sql"
)

// toolNames is the single source of truth for tool names.
var toolNames = []string{
	ListTablesName,
	ReadTableName,
	ExecuteSQLName,
}

// ToolNames returns all registered tool names.
func ToolNames() []string {
	return toolNames
}

// Database defines the guarded operations the tools need.
// The mssql.Gateway satisfies it; tests substitute fakes.
type Database interface {
	// ListTables returns the names of all base tables.
	ListTables(ctx context.Context) ([]string, error)

	// ReadTable returns a bounded preview of the named table.
	// Returns mssql.ErrInvalidTableName for names that fail validation.
	ReadTable(ctx context.Context, table string) ([]mssql.Row, error)

	// Query executes a validated read-only query.
	// Returns mssql.ErrQueryNotAllowed for non-SELECT text.
	Query(ctx context.Context, query string) ([]mssql.Row, error)
}

// Kit holds the database tool handlers.
// Use NewKit to create an instance, then either call methods directly
// (for MCP) or use Register to register with Genkit.
type Kit struct {
	db     Database
	logger *slog.Logger
}

// NewKit creates a Kit bound to a database.
func NewKit(db Database, logger *slog.Logger) (*Kit, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Kit{db: db, logger: logger}, nil
}

// Register registers all database tools with Genkit.
func Register(g *genkit.Genkit, k *Kit) ([]ai.Tool, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if k == nil {
		return nil, fmt.Errorf("Kit is required")
	}

	return []ai.Tool{
		genkit.DefineTool(g, ListTablesName,
			"List the tables in the database. "+
				"Returns the name of every base table the connection can see. "+
				"Use this first to discover what data is available before reading tables or writing queries.",
			k.ListTables),
		genkit.DefineTool(g, ReadTableName,
			"Read the contents of a table in the database. "+
				"Returns up to 100 rows with all columns. "+
				"Table names may contain only letters, digits, and underscores. "+
				"Use this to inspect a table's shape and sample data before writing a targeted query.",
			k.ReadTable),
		genkit.DefineTool(g, ExecuteSQLName,
			"Execute a SQL query against the database. "+
				"Only SELECT statements are permitted; anything else is rejected before execution. "+
				"Use this for targeted reads: filtering, joining, aggregating. "+
				"Results are capped, so aggregate or filter rather than selecting entire large tables.",
			k.ExecuteSQL),
	}, nil
}

// ListTables enumerates the base tables in the database.
func (k *Kit) ListTables(ctx *ai.ToolContext, _ ListTablesInput) (Result, error) {
	k.logger.Debug("ListTables called")

	tables, err := k.db.ListTables(toolCtx(ctx))
	if err != nil {
		return k.executionError(ctx, "ListTables", err)
	}

	k.logger.Debug("ListTables succeeded", "count", len(tables))
	return Result{
		Status: StatusSuccess,
		Data: map[string]any{
			"tables": tables,
			"count":  len(tables),
		},
	}, nil
}

// ReadTable returns a bounded preview of a table.
// An invalid table name is a business error the model can correct.
func (k *Kit) ReadTable(ctx *ai.ToolContext, input ReadTableInput) (Result, error) {
	k.logger.Debug("ReadTable called", "table", input.Table)

	rows, err := k.db.ReadTable(toolCtx(ctx), input.Table)
	if err != nil {
		if errors.Is(err, mssql.ErrInvalidTableName) {
			k.logger.Warn("ReadTable invalid table name rejected", "table", input.Table)
			return Result{
				Status: StatusError,
				Error: &Error{
					Code:    ErrCodeValidation,
					Message: "invalid table name: only letters, digits, and underscores are allowed",
				},
			}, nil
		}
		return k.executionError(ctx, "ReadTable", err)
	}

	k.logger.Debug("ReadTable succeeded", "table", input.Table, "rows", len(rows))
	return Result{
		Status: StatusSuccess,
		Data: map[string]any{
			"table": input.Table,
			"rows":  rows,
			"count": len(rows),
		},
	}, nil
}

// ExecuteSQL runs a guarded read-only query.
// Non-SELECT text is a business error the model can correct.
func (k *Kit) ExecuteSQL(ctx *ai.ToolContext, input ExecuteSQLInput) (Result, error) {
	k.logger.Debug("ExecuteSQL called", "query", input.Query)

	rows, err := k.db.Query(toolCtx(ctx), input.Query)
	if err != nil {
		if errors.Is(err, mssql.ErrQueryNotAllowed) {
			k.logger.Warn("ExecuteSQL non-SELECT query rejected", "query", input.Query)
			return Result{
				Status: StatusError,
				Error: &Error{
					Code:    ErrCodeValidation,
					Message: "only SELECT queries are allowed",
				},
			}, nil
		}
		return k.executionError(ctx, "ExecuteSQL", err)
	}

	k.logger.Debug("ExecuteSQL succeeded", "rows", len(rows))
	return Result{
		Status: StatusSuccess,
		Data: map[string]any{
			"rows":  rows,
			"count": len(rows),
		},
	}, nil
}

// executionError converts a gateway failure into a Result, preserving the
// opaque failure contract. Context cancellation is the one infrastructure
// case that aborts the turn instead.
func (k *Kit) executionError(ctx *ai.ToolContext, op string, err error) (Result, error) {
	if c := toolCtx(ctx); c.Err() != nil {
		return Result{}, fmt.Errorf("%s canceled: %w", op, c.Err())
	}
	k.logger.Error("tool execution failed", "op", op, "error", err)
	return Result{
		Status: StatusError,
		Error: &Error{
			Code:    ErrCodeExecution,
			Message: "operation failed",
		},
	}, nil
}

// toolCtx extracts the request context from a tool invocation, tolerating
// the nil contexts that direct handler calls in tests produce.
func toolCtx(ctx *ai.ToolContext) context.Context {
	if ctx == nil || ctx.Context == nil {
		return context.Background()
	}
	return ctx.Context
}
