package cli

import (
	"github.com/spf13/cobra"
)

func newShowCmd(app *App) *cobra.Command {
	var noTUI bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the full detail of one recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := app.Store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return renderResult(cmd.OutOrStdout(), app, result, noTUI)
		},
	}

	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "always print a plain table, even on an interactive terminal")

	return cmd
}
