// Package main implements taskctl, a command-line client that manages tasks
// directly against the configured store.
//
// Storage is selected with the same TASKS_* environment variables the HTTP
// service reads, so both can share a JSON file, SQLite database, or
// PostgreSQL instance.
//
// Exit codes:
//   - 0: success
//   - 1: invalid input, unknown task, illegal transition, or storage failure
package main

import (
	"context"
	"fmt"
	"io"
	"os"
)

// run executes taskctl with args and returns the exit code. Streams are
// injected so tests do not touch process state.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{stdin: stdin, stderr: stderr}
	defer a.close()

	cmd := newRootCommand(a)
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
