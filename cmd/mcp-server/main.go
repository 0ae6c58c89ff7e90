// Package main implements the MCP server for the task history service.
//
// The server exposes list, get, create, update, and delete tools over the
// same orchestrator the HTTP service uses, configured from the TASKS_*
// environment variables. Communicates via stdio JSON-RPC (Model Context
// Protocol), so all logging goes to stderr.
package main

import (
	"context"
	"log"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/JamesPrial/task-history/internal/config"
	"github.com/JamesPrial/task-history/internal/logger"
	"github.com/JamesPrial/task-history/internal/mcpserver"
	"github.com/JamesPrial/task-history/internal/service"
	"github.com/JamesPrial/task-history/internal/storage"
)

func run() int {
	errLogger := log.New(os.Stderr, "[mcp-server] ", log.LstdFlags)

	cfg, err := config.FromEnv()
	if err != nil {
		errLogger.Printf("Failed to load configuration: %v", err)
		return 1
	}
	slogger := logger.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	store, closeStore, err := storage.Open(context.Background(), cfg.StorageOptions(slogger))
	if err != nil {
		errLogger.Printf("Failed to open storage: %v", err)
		return 1
	}
	defer func() {
		if err := closeStore(); err != nil {
			errLogger.Printf("Failed to close storage: %v", err)
		}
	}()

	svc := service.New(store, service.WithLogger(slogger))
	srv, err := mcpserver.NewServer(svc, mcpserver.WithLogger(slogger))
	if err != nil {
		errLogger.Printf("Failed to create MCP server: %v", err)
		return 1
	}

	if err := server.ServeStdio(srv, server.WithErrorLogger(errLogger)); err != nil {
		errLogger.Printf("Server error: %v", err)
		return 1
	}

	return 0
}

func main() {
	os.Exit(run())
}
