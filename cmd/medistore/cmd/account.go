package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/medistore/medistore/internal/domain/auth"
)

var (
	profileName  string
	profileEmail string
	profilePhone string

	passwordEmail string
	passwordOTP   string
	passwordNew   string
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage the signed-in user's profile",
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update name, email or phone",
	RunE:  runWithApp(runProfileUpdate),
}

var passwordCmd = &cobra.Command{
	Use:   "password",
	Short: "Recover a forgotten password",
}

var passwordForgotCmd = &cobra.Command{
	Use:   "forgot",
	Short: "Send a password reset OTP to your email",
	RunE:  runWithApp(runPasswordForgot),
}

var passwordResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Set a new password using the emailed OTP",
	RunE:  runWithApp(runPasswordReset),
}

var otpCmd = &cobra.Command{
	Use:   "otp",
	Short: "One-time password operations",
}

var otpVerifyCmd = &cobra.Command{
	Use:   "verify <code>",
	Short: "Check an OTP without using it",
	Args:  cobra.ExactArgs(1),
	RunE:  runWithApp(runOTPVerify),
}

var pushTokenCmd = &cobra.Command{
	Use:   "push-token <token>",
	Short: "Register this device's push notification token",
	Args:  cobra.ExactArgs(1),
	RunE:  runWithApp(runPushToken),
}

func init() {
	profileUpdateCmd.Flags().StringVar(&profileName, "name", "", "new display name")
	profileUpdateCmd.Flags().StringVar(&profileEmail, "email", "", "new email")
	profileUpdateCmd.Flags().StringVar(&profilePhone, "phone", "", "new 10-digit phone number")
	profileCmd.AddCommand(profileUpdateCmd)

	for _, c := range []*cobra.Command{passwordForgotCmd, passwordResetCmd, otpVerifyCmd} {
		c.Flags().StringVar(&passwordEmail, "email", "", "account email")
	}
	passwordResetCmd.Flags().StringVar(&passwordOTP, "otp", "", "6-digit code from the email")
	passwordResetCmd.Flags().StringVar(&passwordNew, "new-password", "", "new password")
	passwordCmd.AddCommand(passwordForgotCmd, passwordResetCmd)
	otpCmd.AddCommand(otpVerifyCmd)

	rootCmd.AddCommand(profileCmd, passwordCmd, otpCmd, pushTokenCmd)
}

func runProfileUpdate(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
	req := auth.UpdateProfileRequest{Name: profileName, Email: profileEmail, Phone: profilePhone}
	if req == (auth.UpdateProfileRequest{}) {
		return errors.New("nothing to update: pass --name, --email or --phone")
	}
	env, err := a.api.UpdateProfile(ctx, req)
	if err != nil {
		return err
	}
	if !env.Success || env.Data == nil {
		return errors.New(env.Message)
	}
	a.sessions.UpdateUser(env.Data.Patch())
	printUser(cmd, a.sessions.Snapshot())
	return nil
}

func runPasswordForgot(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
	email, err := readValue(cmd, passwordEmail, "Email")
	if err != nil {
		return err
	}
	env, err := a.api.ForgotPassword(ctx, auth.ForgotPasswordRequest{Email: email})
	if err != nil {
		return err
	}
	return printMessage(cmd, env.Success, env.Message, "Check your email for the reset code.")
}

func runPasswordReset(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
	email, err := readValue(cmd, passwordEmail, "Email")
	if err != nil {
		return err
	}
	otp, err := readValue(cmd, passwordOTP, "Code")
	if err != nil {
		return err
	}
	pw, err := readValue(cmd, firstNonEmpty(passwordNew, os.Getenv("MEDISTORE_PASSWORD")), "New password")
	if err != nil {
		return err
	}
	env, err := a.api.ResetPassword(ctx, auth.ResetPasswordRequest{Email: email, OTP: otp, NewPassword: pw})
	if err != nil {
		return err
	}
	return printMessage(cmd, env.Success, env.Message, "Password updated. Sign in with the new password.")
}

func runOTPVerify(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
	email, err := readValue(cmd, passwordEmail, "Email")
	if err != nil {
		return err
	}
	env, err := a.api.VerifyOTP(ctx, email, args[0])
	if err != nil {
		return err
	}
	if !env.Success || env.Data == nil || !env.Data.Verified {
		return errors.New(firstNonEmpty(env.Message, "code not verified"))
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Code verified.")
	return nil
}

func runPushToken(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
	env, err := a.api.UpdatePushToken(ctx, args[0])
	if err != nil {
		return err
	}
	return printMessage(cmd, env.Success, env.Message, "Push token registered.")
}

// printMessage prints ok on success and returns the server message as an
// error otherwise.
func printMessage(cmd *cobra.Command, success bool, msg, ok string) error {
	if !success {
		return errors.New(firstNonEmpty(msg, "request failed"))
	}
	fmt.Fprintln(cmd.OutOrStdout(), ok)
	return nil
}
