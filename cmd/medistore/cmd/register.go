package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/medistore/medistore/internal/domain/auth"
	"github.com/medistore/medistore/internal/service"
)

// registerField binds one wizard field to a flag and its prompt.
type registerField struct {
	field    auth.Field
	flag     string
	prompt   string
	optional bool
	value    string
}

var registerFields = []*registerField{
	{field: auth.FieldFullName, flag: "full-name", prompt: "Full name"},
	{field: auth.FieldMobile, flag: "mobile", prompt: "Mobile number"},
	{field: auth.FieldEmail, flag: "email", prompt: "Email"},
	{field: auth.FieldStoreName, flag: "store-name", prompt: "Store name"},
	{field: auth.FieldStoreType, flag: "store-type", prompt: "Store type", optional: true},
	{field: auth.FieldGSTNumber, flag: "gst", prompt: "GST number", optional: true},
	{field: auth.FieldPharmacistRegNumber, flag: "reg-number", prompt: "Pharmacist registration number"},
	{field: auth.FieldAddress, flag: "address", prompt: "Address"},
	{field: auth.FieldCity, flag: "city", prompt: "City"},
	{field: auth.FieldState, flag: "state", prompt: "State"},
	{field: auth.FieldPincode, flag: "pincode", prompt: "Pincode"},
}

var registerPassword string

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a new pharmacy store account",
	Long: `Register a store owner account.

Fields not given as flags are prompted for in wizard order: owner details,
store information, license, then address. Store type is one of Retail,
Wholesale or Both (default Retail).`,
	RunE: runWithApp(runRegister),
}

func init() {
	for _, f := range registerFields {
		registerCmd.Flags().StringVar(&f.value, f.flag, "", f.prompt)
	}
	registerCmd.Flags().StringVar(&registerPassword, "password", "", "account password")
	rootCmd.AddCommand(registerCmd)
}

func runRegister(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
	wizard := service.NewRegistration(a.sessions)
	for _, f := range registerFields {
		v := f.value
		if v == "" && !f.optional {
			var err error
			if v, err = readValue(cmd, "", f.prompt); err != nil {
				return err
			}
		}
		if v == "" {
			continue
		}
		if err := wizard.Set(f.field, v); err != nil {
			return err
		}
	}
	password, err := readValue(cmd, firstNonEmpty(registerPassword, os.Getenv("MEDISTORE_PASSWORD")), "Password")
	if err != nil {
		return err
	}

	if !wizard.Submit(ctx, password) {
		return fmt.Errorf("step %d: %s", wizard.Step(), wizard.Error())
	}
	s := a.sessions.Snapshot()
	fmt.Fprintf(cmd.OutOrStdout(), "Registered %s. Signed in as %s.\n", s.User.StoreName, s.User.Email)
	return nil
}
