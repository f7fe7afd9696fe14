package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	mcpSdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dbchat/dbchat/internal/config"
	"github.com/dbchat/dbchat/internal/mcp"
	"github.com/dbchat/dbchat/internal/mssql"
	"github.com/dbchat/dbchat/internal/tools"
)

// runMCP starts the MCP server on stdio. Clients such as Claude Desktop
// spawn the process and speak the protocol over stdin/stdout, so all
// logging must stay on stderr.
func runMCP() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()

	gateway, err := mssql.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if err := gateway.Close(); err != nil {
			logger.Warn("closing database", "error", err)
		}
	}()

	kit, err := tools.NewKit(gateway, logger)
	if err != nil {
		return fmt.Errorf("creating tool kit: %w", err)
	}

	srv, err := mcp.NewServer(mcp.Config{
		Name:    "dbchat",
		Version: Version,
		Kit:     kit,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	logger.Info("starting MCP server on stdio", "version", Version)

	if err := srv.Run(ctx, &mcpSdk.StdioTransport{}); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("running MCP server: %w", err)
	}
	return nil
}
