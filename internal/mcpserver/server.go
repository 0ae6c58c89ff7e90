package mcpserver

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/JamesPrial/task-history/internal/service"
	"github.com/JamesPrial/task-history/internal/task"
)

// Service is the subset of the orchestrator the tools call.
type Service interface {
	CreateTask(ctx context.Context, input task.Input) (task.Task, error)
	UpdateTask(ctx context.Context, id string, input task.Input) (task.Task, error)
	GetTask(ctx context.Context, id string) (task.Task, error)
	ListTasks(ctx context.Context, filter service.ListFilter) ([]task.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

type Option func(t *Tools)

func WithLogger(logger *slog.Logger) Option {
	return func(t *Tools) {
		t.logger = logger
	}
}

// NewServer creates and configures a new MCP server with all task tools
// registered against svc.
func NewServer(svc Service, opts ...Option) (*server.MCPServer, error) {
	if svc == nil {
		return nil, errors.New("mcpserver: service is required")
	}
	tools := NewTools(svc, opts...)

	s := server.NewMCPServer(
		"task-history",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.AddTool(listTasksTool(), tools.HandleListTasks)
	s.AddTool(getTaskTool(), tools.HandleGetTask)
	s.AddTool(createTaskTool(), tools.HandleCreateTask)
	s.AddTool(updateTaskTool(), tools.HandleUpdateTask)
	s.AddTool(deleteTaskTool(), tools.HandleDeleteTask)

	return s, nil
}
