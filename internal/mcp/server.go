// Package mcp exposes the database tools over the Model Context Protocol,
// so external MCP clients get the same guarded surface the chat agent has.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dbchat/dbchat/internal/tools"
)

// Server wraps the MCP SDK server around the tool Kit.
type Server struct {
	mcpServer *mcp.Server
	kit       *tools.Kit
}

// Config holds MCP server configuration.
type Config struct {
	Name    string
	Version string
	Kit     *tools.Kit
}

// NewServer creates an MCP server with all three database tools registered.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("server name is required")
	}
	if cfg.Version == "" {
		return nil, fmt.Errorf("server version is required")
	}
	if cfg.Kit == nil {
		return nil, fmt.Errorf("tool kit is required")
	}

	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		kit: cfg.Kit,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("registering tools: %w", err)
	}
	return s, nil
}

// Run starts the MCP server on the given transport.
// This is a blocking call that handles all MCP protocol communication.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.mcpServer.Run(ctx, transport)
}

// registerTools registers the database tools with the MCP server.
// Schemas come from the same input structs Genkit registration uses.
func (s *Server) registerTools() error {
	listTablesSchema, err := jsonschema.For[tools.ListTablesInput](nil)
	if err != nil {
		return fmt.Errorf("schema for %s: %w", tools.ListTablesName, err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        tools.ListTablesName,
		Description: "List the tables in the database.",
		InputSchema: listTablesSchema,
	}, s.ListTables)

	readTableSchema, err := jsonschema.For[tools.ReadTableInput](nil)
	if err != nil {
		return fmt.Errorf("schema for %s: %w", tools.ReadTableName, err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        tools.ReadTableName,
		Description: "Read the contents of a table in the database (up to 100 rows).",
		InputSchema: readTableSchema,
	}, s.ReadTable)

	executeSQLSchema, err := jsonschema.For[tools.ExecuteSQLInput](nil)
	if err != nil {
		return fmt.Errorf("schema for %s: %w", tools.ExecuteSQLName, err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        tools.ExecuteSQLName,
		Description: "Execute a SQL query against the database. Only SELECT statements are permitted.",
		InputSchema: executeSQLSchema,
	}, s.ExecuteSQL)

	return nil
}

// ListTables handles the list_tables MCP tool call.
func (s *Server) ListTables(ctx context.Context, _ *mcp.CallToolRequest, input tools.ListTablesInput) (*mcp.CallToolResult, any, error) {
	result, err := s.kit.ListTables(&ai.ToolContext{Context: ctx}, input)
	if err != nil {
		return nil, nil, fmt.Errorf("%s failed: %w", tools.ListTablesName, err)
	}
	return toCallToolResult(result)
}

// ReadTable handles the read_table MCP tool call.
func (s *Server) ReadTable(ctx context.Context, _ *mcp.CallToolRequest, input tools.ReadTableInput) (*mcp.CallToolResult, any, error) {
	result, err := s.kit.ReadTable(&ai.ToolContext{Context: ctx}, input)
	if err != nil {
		return nil, nil, fmt.Errorf("%s failed: %w", tools.ReadTableName, err)
	}
	return toCallToolResult(result)
}

// ExecuteSQL handles the execute_sql MCP tool call.
func (s *Server) ExecuteSQL(ctx context.Context, _ *mcp.CallToolRequest, input tools.ExecuteSQLInput) (*mcp.CallToolResult, any, error) {
	result, err := s.kit.ExecuteSQL(&ai.ToolContext{Context: ctx}, input)
	if err != nil {
		return nil, nil, fmt.Errorf("%s failed: %w", tools.ExecuteSQLName, err)
	}
	return toCallToolResult(result)
}

// toCallToolResult renders a tool Result as MCP content: business errors
// become IsError text results, successes become JSON-encoded data.
func toCallToolResult(result tools.Result) (*mcp.CallToolResult, any, error) {
	if result.Status == tools.StatusError {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{
				Text: fmt.Sprintf("Error [%s]: %s", result.Error.Code, result.Error.Message),
			}},
			IsError: true,
		}, nil, nil
	}

	data, err := json.Marshal(result.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}
