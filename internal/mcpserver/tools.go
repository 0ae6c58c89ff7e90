// Package mcpserver exposes the task orchestrator as MCP tools.
package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/JamesPrial/task-history/internal/task"
)

func statusNames() []string {
	names := make([]string, len(task.Statuses))
	for i, s := range task.Statuses {
		names[i] = string(s)
	}
	return names
}

func priorityNames() []string {
	names := make([]string, len(task.Priorities))
	for i, p := range task.Priorities {
		names[i] = string(p)
	}
	return names
}

// listTasksTool returns a tool definition for listing tasks.
func listTasksTool() mcp.Tool {
	return mcp.NewTool("list_tasks",
		mcp.WithDescription("List every task in creation order, including its change history. Optionally filter by status."),
		mcp.WithString("status",
			mcp.Enum(statusNames()...),
			mcp.Description("Only return tasks in this status")),
	)
}

// getTaskTool returns a tool definition for fetching one task.
func getTaskTool() mcp.Tool {
	return mcp.NewTool("get_task",
		mcp.WithDescription("Fetch a single task and its change history by ID."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Task ID (UUID)")),
	)
}

// createTaskTool returns a tool definition for creating a task.
func createTaskTool() mcp.Tool {
	return mcp.NewTool("create_task",
		mcp.WithDescription("Create a task. The history starts with a single creation entry."),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Task title, at least 3 characters")),
		mcp.WithString("status",
			mcp.Required(),
			mcp.Enum(statusNames()...),
			mcp.Description("Initial status")),
		mcp.WithString("dueDate",
			mcp.Required(),
			mcp.Description("Due date, today or later (YYYY-MM-DD or RFC 3339)")),
		mcp.WithString("description",
			mcp.Description("Optional description, at most 500 characters")),
		mcp.WithString("priority",
			mcp.Enum(priorityNames()...),
			mcp.Description("Priority; defaults to Medium")),
		mcp.WithArray("tags",
			mcp.WithStringItems(),
			mcp.Description("Tags; duplicates and blanks are dropped")),
	)
}

// updateTaskTool returns a tool definition for updating a task.
func updateTaskTool() mcp.Tool {
	return mcp.NewTool("update_task",
		mcp.WithDescription("Update the given fields of a task. Each changed field is recorded in the history; unchanged fields are ignored. A completed task cannot be moved back to another status."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Task ID (UUID)")),
		mcp.WithString("title",
			mcp.Description("New title, at least 3 characters")),
		mcp.WithString("status",
			mcp.Enum(statusNames()...),
			mcp.Description("New status")),
		mcp.WithString("dueDate",
			mcp.Description("New due date, today or later")),
		mcp.WithString("description",
			mcp.Description("New description, at most 500 characters")),
		mcp.WithString("priority",
			mcp.Enum(priorityNames()...),
			mcp.Description("New priority")),
		mcp.WithArray("tags",
			mcp.WithStringItems(),
			mcp.Description("Replacement tag list")),
	)
}

// deleteTaskTool returns a tool definition for deleting a task.
func deleteTaskTool() mcp.Tool {
	return mcp.NewTool("delete_task",
		mcp.WithDescription("Delete a task and its history."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Task ID (UUID)")),
	)
}
