package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/JamesPrial/task-history/internal/payload"
	"github.com/JamesPrial/task-history/internal/service"
	"github.com/JamesPrial/task-history/internal/task"
)

func newListCommand(a *app) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks in creation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := a.svc.ListTasks(cmd.Context(), service.ListFilter{Status: task.Status(status)})
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), a.format, tasks)
		},
	}

	cmd.Flags().StringVar(&status, "status", "", `only list tasks in this status ("Pending", "In Progress", "Completed")`)

	return cmd
}

func newGetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one task and its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.svc.GetTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), a.format, t)
		},
	}
}

// fieldFlags binds one flag per mutable task field. Only flags the user sets
// end up in the input, so update can tell "leave alone" from "clear".
type fieldFlags struct {
	file        string
	title       string
	status      string
	dueDate     string
	description string
	priority    string
	tags        string
}

func (f *fieldFlags) bind(flags *pflag.FlagSet) {
	flags.StringVarP(&f.file, "file", "f", "", `read fields from a JSON object in this file ("-" for stdin)`)
	flags.StringVar(&f.title, "title", "", "task title")
	flags.StringVar(&f.status, "status", "", `status ("Pending", "In Progress", "Completed")`)
	flags.StringVar(&f.dueDate, "due", "", "due date (YYYY-MM-DD or RFC 3339)")
	flags.StringVar(&f.description, "description", "", "task description")
	flags.StringVar(&f.priority, "priority", "", `priority ("Low", "Medium", "High")`)
	flags.StringVar(&f.tags, "tags", "", "comma-separated tags")
}

// input merges the --file document with explicitly set flags; flags win.
func (f *fieldFlags) input(cmd *cobra.Command, a *app) (task.Input, error) {
	in := task.Input{}
	if f.file != "" {
		decoded, err := f.readFile(a)
		if err != nil {
			return nil, err
		}
		in = decoded
	}

	flags := cmd.Flags()
	set := func(name string, field task.Field, value any) {
		if flags.Changed(name) {
			in[field] = value
		}
	}
	set("title", task.FieldTitle, f.title)
	set("status", task.FieldStatus, f.status)
	set("due", task.FieldDueDate, f.dueDate)
	set("description", task.FieldDescription, f.description)
	set("priority", task.FieldPriority, f.priority)
	set("tags", task.FieldTags, payload.SplitTags(f.tags))
	return in, nil
}

func (f *fieldFlags) readFile(a *app) (task.Input, error) {
	if f.file == "-" {
		return payload.Decode(a.stdin)
	}
	file, err := os.Open(f.file)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f.file, err)
	}
	defer func() { _ = file.Close() }()
	return payload.Decode(file)
}

func newCreateCommand(a *app) *cobra.Command {
	var f fieldFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		Long: `Create a task. title, status, and due date are required.

Example:
  taskctl create --title "Write report" --status Pending --due 2031-01-01 --tags work,docs`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := f.input(cmd, a)
			if err != nil {
				return err
			}
			created, err := a.svc.CreateTask(cmd.Context(), in)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), a.format, created)
		},
	}
	f.bind(cmd.Flags())

	return cmd
}

func newUpdateCommand(a *app) *cobra.Command {
	var f fieldFlags

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update fields of a task",
		Long: `Update fields of a task. Each changed field is appended to the task's
history; fields that are not given, or are given with their current value,
are left alone.

Example:
  taskctl update 3f6c... --status "In Progress" --priority High`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := f.input(cmd, a)
			if err != nil {
				return err
			}
			updated, err := a.svc.UpdateTask(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), a.format, updated)
		},
	}
	f.bind(cmd.Flags())

	return cmd
}

func newDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.svc.DeleteTask(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s\n", args[0])
			return nil
		},
	}
}
