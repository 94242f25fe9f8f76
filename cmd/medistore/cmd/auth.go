package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/medistore/medistore/internal/domain/auth"
	"github.com/medistore/medistore/internal/domain/session"
	"github.com/medistore/medistore/internal/service"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to your store account",
	Long: `Sign in and keep the session on this machine.

The password is read from --password, MEDISTORE_PASSWORD, or prompted for.`,
	RunE: runWithApp(runLogin),
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and remove stored credentials",
	RunE:  runWithApp(runLogout),
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE:  runWithApp(runWhoami),
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session status and verify it with the server",
	Long: `Show the locally restored session, then fetch the profile to confirm
the token is still accepted. An expired token is refreshed when a refresh
token is stored; otherwise the session ends.`,
	RunE: runWithApp(runStatus),
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "account password")
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd, statusCmd)
}

func runLogin(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
	email, err := readValue(cmd, loginEmail, "Email")
	if err != nil {
		return err
	}
	password, err := readValue(cmd, firstNonEmpty(loginPassword, os.Getenv("MEDISTORE_PASSWORD")), "Password")
	if err != nil {
		return err
	}

	if !a.sessions.Login(ctx, auth.Credentials{Email: email, Password: password}) {
		return sessionError(a.sessions, "sign-in failed")
	}
	s := a.sessions.Snapshot()
	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", s.User.Name, s.User.Email)
	return nil
}

func runLogout(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
	// A stored token without a user leaves the session unauthenticated but
	// still needs clearing.
	if a.sessions.Status() != session.StatusAuthenticated && !a.api.IsAuthenticated() {
		fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
		return nil
	}
	a.sessions.Logout(ctx)
	fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
	return nil
}

func runWhoami(_ context.Context, a *app, cmd *cobra.Command, _ []string) error {
	s := a.sessions.Snapshot()
	if !s.IsAuthenticated {
		return errors.New("not signed in")
	}
	printUser(cmd, s)
	return nil
}

func runStatus(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	before := a.sessions.Snapshot()
	fmt.Fprintf(out, "Session:   %s\n", before.Status())
	fmt.Fprintf(out, "API:       %s\n", a.client.BaseURL())
	if !before.IsAuthenticated {
		return nil
	}
	if !before.TokenExpiresAt.IsZero() {
		fmt.Fprintf(out, "Expires:   %s\n", before.TokenExpiresAt.Local().Format(time.RFC1123))
	}

	env, err := a.api.GetProfile(ctx)
	switch {
	case err != nil:
		fmt.Fprintf(out, "Server:    %s\n", err)
	case env.Success && env.Data != nil:
		a.sessions.UpdateUser(env.Data.Patch())
		fmt.Fprintln(out, "Server:    token accepted")
	default:
		fmt.Fprintf(out, "Server:    %s\n", env.Message)
	}
	if after := a.sessions.Snapshot(); after.Status() != before.Status() {
		fmt.Fprintf(out, "Session:   %s (%s)\n", after.Status(), after.LastError)
	}
	return nil
}

func printUser(cmd *cobra.Command, s session.Session) {
	out := cmd.OutOrStdout()
	u := s.User
	fmt.Fprintf(out, "Name:      %s\n", u.Name)
	fmt.Fprintf(out, "Email:     %s\n", u.Email)
	if u.Phone != "" {
		fmt.Fprintf(out, "Phone:     %s\n", u.Phone)
	}
	if u.Role != "" {
		fmt.Fprintf(out, "Role:      %s\n", u.Role)
	}
	if u.StoreName != "" {
		fmt.Fprintf(out, "Store:     %s\n", u.StoreName)
	}
	if s.TokenExpired(time.Now()) {
		fmt.Fprintln(out, "Token:     expired, will refresh on next request")
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// sessionError reports the session's last error, or fallback.
func sessionError(s *service.SessionStore, fallback string) error {
	if msg := s.Snapshot().LastError; msg != "" {
		return errors.New(msg)
	}
	return errors.New(fallback)
}
