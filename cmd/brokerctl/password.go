package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/estate-link/estate_link/internal/session"
)

func newPasswordCmd(a *app) *cobra.Command {
	password := &cobra.Command{
		Use:   "password",
		Short: "Recover or check a password",
	}

	var email string
	forgot := &cobra.Command{
		Use:   "forgot",
		Short: "Email a password reset link",
		Args:  cobra.NoArgs,
		RunE: a.session(func(cmd *cobra.Command, _ []string) error {
			return a.report(cmd, a.manager.ForgotPassword(cmd.Context(), email))
		}),
	}
	forgot.Flags().StringVar(&email, "email", "", "account email")

	var token, newPassword, confirm string
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Set a new password with a reset token",
		Args:  cobra.NoArgs,
		RunE: a.session(func(cmd *cobra.Command, _ []string) error {
			pw, err := secret(cmd, newPassword, "New password")
			if err != nil {
				return err
			}
			if confirm == "" {
				confirm = pw
			}
			return a.report(cmd, a.manager.ResetPassword(cmd.Context(), token, pw, confirm))
		}),
	}
	reset.Flags().StringVar(&token, "token", "", "token from the reset link")
	reset.Flags().StringVar(&newPassword, "password", "", "new password (read from stdin when omitted)")
	reset.Flags().StringVar(&confirm, "confirm", "", "password confirmation (defaults to --password)")

	var candidate string
	check := &cobra.Command{
		Use:   "check",
		Short: "Show which password rules a candidate passes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := secret(cmd, candidate, "Password")
			if err != nil {
				return err
			}
			checks := session.CheckPassword(pw)
			out := cmd.OutOrStdout()
			rules := []struct {
				label string
				ok    bool
			}{
				{"at least 8 characters", checks.MinLength},
				{"a lowercase letter", checks.Lowercase},
				{"an uppercase letter", checks.Uppercase},
				{"a number", checks.Digit},
				{"a special character", checks.Special},
			}
			for _, r := range rules {
				mark := " "
				if r.ok {
					mark = "x"
				}
				fmt.Fprintf(out, "[%s] %s\n", mark, r.label)
			}
			if !checks.OK() {
				return errFailed
			}
			return nil
		},
	}
	check.Flags().StringVar(&candidate, "password", "", "candidate password (read from stdin when omitted)")

	password.AddCommand(forgot, reset, check)
	return password
}
