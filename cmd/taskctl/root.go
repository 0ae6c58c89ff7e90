package main

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/JamesPrial/task-history/internal/config"
	"github.com/JamesPrial/task-history/internal/logger"
	"github.com/JamesPrial/task-history/internal/service"
	"github.com/JamesPrial/task-history/internal/storage"
)

// Output formats.
const (
	formatJSON = "json"
	formatYAML = "yaml"
)

var validFormats = []string{formatJSON, formatYAML}

// app carries state shared by every subcommand.
type app struct {
	format  string
	verbose bool

	stdin  io.Reader
	stderr io.Writer

	svc        *service.Service
	closeStore func() error
}

// open connects to the configured store. It is called from the root
// command's PersistentPreRunE so help and usage errors never touch storage.
func (a *app) open(cmd *cobra.Command) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	level := "warn"
	if a.verbose {
		level = "debug"
	}
	log := logger.New(level, logger.FormatText, a.stderr)

	store, closeStore, err := storage.Open(cmd.Context(), cfg.StorageOptions(log))
	if err != nil {
		return err
	}
	a.svc = service.New(store, service.WithLogger(log))
	a.closeStore = closeStore
	return nil
}

func (a *app) close() {
	if a.closeStore == nil {
		return
	}
	if err := a.closeStore(); err != nil {
		fmt.Fprintf(a.stderr, "Error closing storage: %v\n", err)
	}
}

func newRootCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "taskctl",
		Short:         "Manage tasks and their change history",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validFormats, a.format) {
				return fmt.Errorf("invalid format %q: must be one of %v", a.format, validFormats)
			}
			return a.open(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&a.format, "format", formatJSON, "output format (json|yaml)")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log store and orchestrator activity to stderr")

	cmd.AddCommand(newListCommand(a))
	cmd.AddCommand(newGetCommand(a))
	cmd.AddCommand(newCreateCommand(a))
	cmd.AddCommand(newUpdateCommand(a))
	cmd.AddCommand(newDeleteCommand(a))

	return cmd
}
