package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/medistore/medistore/internal/service"
)

var themeCmd = &cobra.Command{
	Use:       "theme [light|dark|system|toggle]",
	Short:     "Show or change the theme preference",
	ValidArgs: []string{"light", "dark", "system", "toggle"},
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	RunE:      runWithApp(runTheme),
}

func init() {
	rootCmd.AddCommand(themeCmd)
}

func runTheme(_ context.Context, a *app, cmd *cobra.Command, args []string) error {
	mode := a.prefs.Theme()
	switch {
	case len(args) == 0:
	case args[0] == "toggle":
		var err error
		if mode, err = a.prefs.ToggleTheme(); err != nil {
			return err
		}
	default:
		mode = service.ThemeMode(args[0])
		if err := a.prefs.SetTheme(mode); err != nil {
			return err
		}
	}

	effective := "light"
	if a.prefs.IsDark() {
		effective = "dark"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Theme: %s (%s)\n", mode, effective)
	return nil
}
