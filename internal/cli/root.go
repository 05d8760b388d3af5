// Package cli wires the scheduling engine, bundle loader, and run store
// into a cobra command tree, the way the teacher's internal/cli wires its
// services into a shell: an App struct carrying the dependencies, one
// constructor per subcommand taking *App.
package cli

import (
	"os"

	"github.com/kestrel-labs/rcpsched/internal/observability"
	"github.com/kestrel-labs/rcpsched/internal/runstore"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// App carries the dependencies every subcommand needs.
type App struct {
	Store    *runstore.Store
	Observer observability.Observer

	// IsInteractive reports whether stdout is an interactive terminal,
	// used to decide between the bubbletea gantt viewer and plain table
	// output. Defaults to a real isatty check; tests may override it.
	IsInteractive func() bool
}

func defaultIsInteractive() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// NewRootCmd builds the "rcps" command tree.
func NewRootCmd(app *App) *cobra.Command {
	if app.IsInteractive == nil {
		app.IsInteractive = defaultIsInteractive
	}

	root := &cobra.Command{
		Use:   "rcps",
		Short: "Resource-constrained project scheduler",
		Long:  "rcps schedules tasks against constrained resources from a YAML bundle file.",
	}

	root.AddCommand(
		newScheduleCmd(app),
		newHistoryCmd(app),
		newShowCmd(app),
		newInitCmd(app),
	)

	return root
}
