package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/medistore/medistore/internal/domain/storage"
)

var (
	resetKeepPreferences bool
	resetForce           bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove all locally stored data",
	Long: `Reset MediStore by clearing the local store.

This signs you out locally (without contacting the server), drops the
catalog cache and, unless --keep-preferences is set, the theme and
onboarding preferences.

Optional flags:
  --keep-preferences  Keep theme and onboarding preferences
  --force             Skip confirmation prompt`,
	RunE: runWithApp(runReset),
}

func init() {
	resetCmd.Flags().BoolVar(&resetKeepPreferences, "keep-preferences", false, "Keep theme and onboarding preferences")
	resetCmd.Flags().BoolVar(&resetForce, "force", false, "Skip confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}

func runReset(_ context.Context, a *app, cmd *cobra.Command, _ []string) error {
	keys, err := a.store.Keys()
	if err != nil {
		return err
	}
	errOut := cmd.ErrOrStderr()
	if len(keys) == 0 {
		fmt.Fprintln(errOut, "Nothing to reset, the local store is empty.")
		return nil
	}

	fmt.Fprintf(errOut, "The local %s store holds %d key(s).\n", a.cfg.Storage.Backend, len(keys))
	if !resetForce {
		if !confirm(cmd, "Proceed?") {
			fmt.Fprintln(errOut, "Aborted.")
			return nil
		}
	}

	if resetKeepPreferences {
		var drop []string
		for _, k := range keys {
			if k != storage.KeyTheme && k != storage.KeyOnboardingComplete {
				drop = append(drop, k)
			}
		}
		err = storage.RemoveAll(a.store, drop...)
	} else {
		err = a.store.ClearAll()
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(errOut, "Reset complete.")
	return nil
}
