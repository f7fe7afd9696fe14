// Package cmd provides CLI commands for dbchat.
//
// Commands:
//   - serve: HTTP API server (chat, sessions, tools, health)
//   - mcp: Model Context Protocol server exposing the database tools
//
// Signal handling and graceful shutdown are implemented for all commands
// via context cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dbchat/dbchat/internal/log"
)

// Execute is the main entry point for the dbchat CLI application.
func Execute() error {
	// Initialize logger once at entry point
	cfg := log.Config{Level: slog.LevelInfo}
	if os.Getenv("DEBUG") != "" {
		cfg.Level = slog.LevelDebug
		cfg.AddSource = true
	}
	slog.SetDefault(log.New(cfg))

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe()
	case "mcp":
		return runMCP()
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("dbchat - chat with your SQL Server database")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  dbchat serve [addr] Start the HTTP API server (default: 127.0.0.1:3500)")
	fmt.Println("  dbchat mcp          Start the MCP server (stdio transport)")
	fmt.Println("  dbchat --version    Show version information")
	fmt.Println("  dbchat --help       Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DB_USER             Required: database login user")
	fmt.Println("  DB_PASSWORD         Required: database login password")
	fmt.Println("  DB_SERVER           Required: database host")
	fmt.Println("  DB_DATABASE         Required: database name")
	fmt.Println("  DB_PORT             Optional: database port (default 1433)")
	fmt.Println("  DB_ENCRYPT          Optional: \"true\" enables connection encryption")
	fmt.Println("  GEMINI_API_KEY      Required for the default gemini provider")
	fmt.Println("  DEBUG               Optional: enable debug logging")
}
