package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/estate-link/estate_link/internal/apiclient"
)

// secret returns value when set. Otherwise it prompts without echo on a
// terminal, or reads one line of piped input.
func secret(cmd *cobra.Command, value, prompt string) (string, error) {
	if value != "" {
		return value, nil
	}
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: ", prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read %s: %w", strings.ToLower(prompt), err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(prompt), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: a.session(func(cmd *cobra.Command, _ []string) error {
			snap := a.manager.Snapshot()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "status: %s\n", snap.Status)
			if snap.User != nil {
				fmt.Fprintf(out, "user: %s <%s>\n", snap.User.Name, snap.User.Email)
				fmt.Fprintf(out, "profile: %.0f%% complete\n", snap.User.ProfileCompletion()*100)
			}
			if snap.Registration != nil {
				fmt.Fprintf(out, "registration: %s (verified: %t)\n", snap.Registration.Email, snap.Registration.OtpVerified)
			}
			return nil
		}),
	}
}

func newLoginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: a.session(func(cmd *cobra.Command, _ []string) error {
			pw, err := secret(cmd, password, "Password")
			if err != nil {
				return err
			}
			return a.report(cmd, a.manager.Login(cmd.Context(), email, pw))
		}),
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "password (read from stdin when omitted)")
	return cmd
}

func newOtpCmd(a *app) *cobra.Command {
	otp := &cobra.Command{
		Use:   "otp",
		Short: "Sign in with a one-time code",
	}

	var email string
	request := &cobra.Command{
		Use:   "request",
		Short: "Email a login code",
		Args:  cobra.NoArgs,
		RunE: a.session(func(cmd *cobra.Command, _ []string) error {
			return a.report(cmd, a.manager.RequestOtp(cmd.Context(), email))
		}),
	}
	request.Flags().StringVar(&email, "email", "", "account email")

	var verifyEmail, code string
	verify := &cobra.Command{
		Use:   "verify",
		Short: "Exchange a login code for a session",
		Args:  cobra.NoArgs,
		RunE: a.session(func(cmd *cobra.Command, _ []string) error {
			return a.report(cmd, a.manager.VerifyOtp(cmd.Context(), verifyEmail, code))
		}),
	}
	verify.Flags().StringVar(&verifyEmail, "email", "", "account email")
	verify.Flags().StringVar(&code, "code", "", "code from the email")

	var resendEmail, purpose string
	resend := &cobra.Command{
		Use:   "resend",
		Short: "Send a new login or registration code",
		Args:  cobra.NoArgs,
		RunE: a.session(func(cmd *cobra.Command, _ []string) error {
			return a.report(cmd, a.manager.ResendOtp(cmd.Context(), resendEmail, apiclient.Purpose(purpose)))
		}),
	}
	resend.Flags().StringVar(&resendEmail, "email", "", "account email")
	resend.Flags().StringVar(&purpose, "purpose", string(apiclient.PurposeLogin), "login or registration")

	otp.AddCommand(request, verify, resend)
	return otp
}

func newRegisterCmd(a *app) *cobra.Command {
	register := &cobra.Command{
		Use:   "register",
		Short: "Create a broker account",
	}

	var name, email, phone string
	start := &cobra.Command{
		Use:   "start",
		Short: "Submit name, email and phone and receive a code",
		Args:  cobra.NoArgs,
		RunE: a.session(func(cmd *cobra.Command, _ []string) error {
			return a.report(cmd, a.manager.RegisterStep1(cmd.Context(), name, email, phone))
		}),
	}
	start.Flags().StringVar(&name, "name", "", "full name")
	start.Flags().StringVar(&email, "email", "", "email")
	start.Flags().StringVar(&phone, "phone", "", "10 digit mobile number")

	var verifyEmail, code string
	verify := &cobra.Command{
		Use:   "verify",
		Short: "Confirm the registration code",
		Args:  cobra.NoArgs,
		RunE: a.session(func(cmd *cobra.Command, _ []string) error {
			if verifyEmail == "" {
				if snap := a.manager.Snapshot(); snap.Registration != nil {
					verifyEmail = snap.Registration.Email
				}
			}
			return a.report(cmd, a.manager.VerifyRegistrationOtp(cmd.Context(), verifyEmail, code, "complete"))
		}),
	}
	verify.Flags().StringVar(&verifyEmail, "email", "", "email (defaults to the pending registration)")
	verify.Flags().StringVar(&code, "code", "", "6 digit code from the email")

	var completeEmail, password, confirm string
	complete := &cobra.Command{
		Use:   "complete",
		Short: "Set a password and sign in",
		Args:  cobra.NoArgs,
		RunE: a.session(func(cmd *cobra.Command, _ []string) error {
			if completeEmail == "" {
				if snap := a.manager.Snapshot(); snap.Registration != nil {
					completeEmail = snap.Registration.Email
				}
			}
			pw, err := secret(cmd, password, "Password")
			if err != nil {
				return err
			}
			if confirm == "" {
				confirm = pw
			}
			return a.report(cmd, a.manager.CompleteRegistration(cmd.Context(), completeEmail, pw, confirm))
		}),
	}
	complete.Flags().StringVar(&completeEmail, "email", "", "email (defaults to the pending registration)")
	complete.Flags().StringVar(&password, "password", "", "new password (read from stdin when omitted)")
	complete.Flags().StringVar(&confirm, "confirm", "", "password confirmation (defaults to --password)")

	abandon := &cobra.Command{
		Use:   "abandon",
		Short: "Discard the pending registration",
		Args:  cobra.NoArgs,
		RunE: a.session(func(cmd *cobra.Command, _ []string) error {
			return a.report(cmd, a.manager.AbandonRegistration(cmd.Context()))
		}),
	}

	var legacyName, legacyEmail, legacyPhone string
	legacy := &cobra.Command{
		Use:   "legacy",
		Short: "Register in one step and sign in with a login code",
		Args:  cobra.NoArgs,
		RunE: a.session(func(cmd *cobra.Command, _ []string) error {
			return a.report(cmd, a.manager.RegisterLegacy(cmd.Context(), legacyName, legacyEmail, legacyPhone))
		}),
	}
	legacy.Flags().StringVar(&legacyName, "name", "", "full name")
	legacy.Flags().StringVar(&legacyEmail, "email", "", "email")
	legacy.Flags().StringVar(&legacyPhone, "phone", "", "10 digit mobile number")

	register.AddCommand(start, verify, complete, abandon, legacy)
	return register
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the saved session",
		Args:  cobra.NoArgs,
		RunE: a.session(func(cmd *cobra.Command, _ []string) error {
			return a.report(cmd, a.manager.Logout(cmd.Context()))
		}),
	}
}
