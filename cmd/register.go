package cmd

import (
	"errors"
	"fmt"

	"github.com/chrisdamba/homeservices/internal/api"
	"github.com/chrisdamba/homeservices/internal/models"
	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Start a customer sign-up by texting a verification code to --phone",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		phone, _ := cmd.Flags().GetString("phone")
		if err := a.client.SendVerificationCode(ctx, phone); err != nil {
			return errors.New(api.UserMessage(err, "An error occurred while sending the verification code. Please try again."))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Verification code sent to %s\n", phone)
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Finish a sign-up with the code received by text",
	Long: `verify creates the customer account for --phone once --code matches the
code sent by register. The customer location from the configuration is
stored with the account. The printed token can be set as api.token.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		loc := cfg.CustomerLocation()
		reg := models.Registration{Location: &loc, Role: models.RoleCustomer}
		reg.Name, _ = cmd.Flags().GetString("name")
		reg.Phone, _ = cmd.Flags().GetString("phone")
		reg.Password, _ = cmd.Flags().GetString("password")
		reg.Code, _ = cmd.Flags().GetString("code")

		creds, err := a.client.VerifyCodeAndCreateUser(ctx, reg)
		if err != nil {
			return errors.New(api.UserMessage(err, "Verification failed"))
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Welcome, %s (%s)\n", creds.User.Name, creds.User.ID)
		fmt.Fprintf(out, "Token: %s\n", creds.Token)
		return nil
	},
}

func init() {
	registerCmd.Flags().String("phone", "", "Phone number receiving the code")
	cobra.CheckErr(registerCmd.MarkFlagRequired("phone"))

	verifyCmd.Flags().String("name", "", "Customer name")
	verifyCmd.Flags().String("phone", "", "Phone number the code was sent to")
	verifyCmd.Flags().String("password", "", "Account password")
	verifyCmd.Flags().String("code", "", "4-digit verification code")
	for _, name := range []string{"name", "phone", "password", "code"} {
		cobra.CheckErr(verifyCmd.MarkFlagRequired(name))
	}

	rootCmd.AddCommand(registerCmd, verifyCmd)
}
