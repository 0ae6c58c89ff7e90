package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/JamesPrial/task-history/internal/payload"
	"github.com/JamesPrial/task-history/internal/service"
	"github.com/JamesPrial/task-history/internal/task"
)

// Tools holds the tool handlers. Failures are returned as tool errors so the
// client sees them; the Go error is reserved for protocol problems.
type Tools struct {
	svc    Service
	logger *slog.Logger
}

func NewTools(svc Service, opts ...Option) *Tools {
	t := &Tools{svc: svc}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = slog.New(slog.DiscardHandler)
	}
	return t
}

// HandleListTasks lists tasks, optionally narrowed to one status.
func (t *Tools) HandleListTasks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var filter service.ListFilter
	if status, ok := request.GetArguments()["status"].(string); ok {
		filter.Status = task.Status(status)
	}
	tasks, err := t.svc.ListTasks(ctx, filter)
	if err != nil {
		return t.toolError(ctx, "list", err), nil
	}
	return jsonResult(tasks)
}

// HandleGetTask returns one task by id.
func (t *Tools) HandleGetTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, ok := request.GetArguments()["id"].(string)
	if !ok || id == "" {
		return mcp.NewToolResultError("Missing required parameter: id"), nil
	}
	found, err := t.svc.GetTask(ctx, id)
	if err != nil {
		return t.toolError(ctx, "get", err), nil
	}
	return jsonResult(found)
}

// HandleCreateTask creates a task from the call arguments.
func (t *Tools) HandleCreateTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	if args == nil {
		return mcp.NewToolResultError("Missing required parameters"), nil
	}
	created, err := t.svc.CreateTask(ctx, payload.FromMap(args))
	if err != nil {
		return t.toolError(ctx, "create", err), nil
	}
	return jsonResult(created)
}

// HandleUpdateTask applies every argument other than id as a field update.
func (t *Tools) HandleUpdateTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := maps.Clone(request.GetArguments())
	id, ok := args["id"].(string)
	if !ok || id == "" {
		return mcp.NewToolResultError("Missing required parameter: id"), nil
	}
	delete(args, "id")

	updated, err := t.svc.UpdateTask(ctx, id, payload.FromMap(args))
	if err != nil {
		return t.toolError(ctx, "update", err), nil
	}
	return jsonResult(updated)
}

// HandleDeleteTask removes a task by id.
func (t *Tools) HandleDeleteTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, ok := request.GetArguments()["id"].(string)
	if !ok || id == "" {
		return mcp.NewToolResultError("Missing required parameter: id"), nil
	}
	if err := t.svc.DeleteTask(ctx, id); err != nil {
		return t.toolError(ctx, "delete", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted task %s", id)), nil
}

func (t *Tools) toolError(ctx context.Context, operation string, err error) *mcp.CallToolResult {
	switch task.KindOf(err) {
	case task.KindValidation:
		return mcp.NewToolResultError(fmt.Sprintf("Invalid input: %v", err))
	case task.KindNotFound:
		return mcp.NewToolResultError(fmt.Sprintf("Not found: %v", err))
	case task.KindInvariant:
		return mcp.NewToolResultError(fmt.Sprintf("Invalid state transition: %v", err))
	default:
		t.logger.ErrorContext(ctx, "task tool failed", "operation", operation, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Failed to %s task: %v", operation, err))
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
