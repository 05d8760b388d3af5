package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

func newInitCmd(app *App) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Draft a starter bundle file through a short interactive form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resourceNames, taskName, taskDuration string

			form := huh.NewForm(
				huh.NewGroup(
					huh.NewInput().
						Title("Resource names (comma-separated)").
						Placeholder("alice,bob").
						Value(&resourceNames).
						Validate(func(s string) error {
							if strings.TrimSpace(s) == "" {
								return fmt.Errorf("at least one resource is required")
							}
							return nil
						}),
					huh.NewInput().
						Title("First task name").
						Placeholder("draft").
						Value(&taskName).
						Validate(func(s string) error {
							if strings.TrimSpace(s) == "" {
								return fmt.Errorf("task name is required")
							}
							return nil
						}),
					huh.NewInput().
						Title("First task duration (days)").
						Placeholder("2").
						Value(&taskDuration).
						Validate(func(s string) error {
							v, err := strconv.Atoi(s)
							if err != nil || v <= 0 {
								return fmt.Errorf("enter a positive number of days")
							}
							return nil
						}),
				),
			).WithTheme(rcpsHuhTheme())

			if err := form.Run(); err != nil {
				return fmt.Errorf("running init wizard: %w", err)
			}

			names := strings.Split(resourceNames, ",")
			for i, n := range names {
				names[i] = strings.TrimSpace(n)
			}

			duration, _ := strconv.Atoi(taskDuration)
			bundle := draftBundle(names, taskName, duration)

			if outPath == "" {
				outPath = "bundle.yaml"
			}
			if err := os.WriteFile(outPath, []byte(bundle), 0644); err != nil {
				return fmt.Errorf("writing %s: %w", outPath, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output path (default bundle.yaml)")

	return cmd
}

func draftBundle(resourceNames []string, taskName string, durationDays int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "current_date: %q\n", time.Now().Format("2006-01-02"))
	b.WriteString("resources:\n")
	for _, r := range resourceNames {
		fmt.Fprintf(&b, "  - id: %s\n", r)
	}
	b.WriteString("config:\n")
	b.WriteString("  algorithm: parallel_sgs\n")
	b.WriteString("tasks:\n")
	fmt.Fprintf(&b, "  - id: %s\n", taskName)
	fmt.Fprintf(&b, "    duration_days: %d\n", durationDays)
	b.WriteString("    resources:\n")
	fmt.Fprintf(&b, "      explicit:\n        - {resource_id: %s, allocation: 1}\n", resourceNames[0])
	return b.String()
}
