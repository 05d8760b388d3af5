package cli

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kestrel-labs/rcpsched/internal/cli/formatter"
	"github.com/kestrel-labs/rcpsched/internal/domain"
	"github.com/kestrel-labs/rcpsched/internal/tui"
)

// renderResult shows result either as the interactive gantt viewer (when
// out is a terminal and the caller hasn't forced table mode) or as a
// plain styled table.
func renderResult(out io.Writer, app *App, result domain.AlgorithmResult, forceTable bool) error {
	if forceTable || !app.IsInteractive() {
		fmt.Fprint(out, formatter.FormatResult(result))
		return nil
	}

	program := tea.NewProgram(tui.New(result))
	_, err := program.Run()
	return err
}
