package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/estate-link/estate_link/internal/apiclient"
)

func newProfileCmd(a *app) *cobra.Command {
	profile := &cobra.Command{
		Use:   "profile",
		Short: "Show or update the broker profile",
	}

	var refresh bool
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the profile as JSON",
		Args:  cobra.NoArgs,
		RunE: a.session(func(cmd *cobra.Command, _ []string) error {
			if err := a.requireSession(cmd); err != nil {
				return err
			}
			if refresh {
				if res := a.manager.RefreshProfile(cmd.Context()); !res.Success {
					return a.report(cmd, res)
				}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(a.manager.Snapshot().User)
		}),
	}
	show.Flags().BoolVar(&refresh, "refresh", false, "fetch the profile again before printing")

	fields := map[string]*string{}
	update := &cobra.Command{
		Use:   "update",
		Short: "Change profile fields; only the flags given are sent",
		Args:  cobra.NoArgs,
		RunE: a.session(func(cmd *cobra.Command, _ []string) error {
			if err := a.requireSession(cmd); err != nil {
				return err
			}
			patch := buildPatch(cmd.Flags(), fields)
			return a.report(cmd, a.manager.UpdateUserProfile(cmd.Context(), patch))
		}),
	}
	for _, f := range profileFlags {
		fields[f.name] = update.Flags().String(f.name, "", f.usage)
	}

	profile.AddCommand(show, update)
	return profile
}

type profileFlag struct {
	name  string
	usage string
	field func(p *apiclient.ProfilePatch) **string
}

var profileFlags = []profileFlag{
	{"name", "full name", func(p *apiclient.ProfilePatch) **string { return &p.Name }},
	{"phone", "10 digit mobile number", func(p *apiclient.ProfilePatch) **string { return &p.Phone }},
	{"address", "office address", func(p *apiclient.ProfilePatch) **string { return &p.Address }},
	{"image", "profile image URL", func(p *apiclient.ProfilePatch) **string { return &p.Image }},
	{"rera-number", "RERA registration number", func(p *apiclient.ProfilePatch) **string { return &p.ReraNumber }},
	{"bank-name", "bank name", func(p *apiclient.ProfilePatch) **string { return &p.BankName }},
	{"account-number", "bank account number", func(p *apiclient.ProfilePatch) **string { return &p.AccountNumber }},
	{"confirm-account-number", "bank account number again", func(p *apiclient.ProfilePatch) **string { return &p.ConfirmAccountNumber }},
	{"ifsc", "IFSC code", func(p *apiclient.ProfilePatch) **string { return &p.IFSCCode }},
	{"recipient-name", "account holder name", func(p *apiclient.ProfilePatch) **string { return &p.RecipientName }},
}

// buildPatch sets only the fields whose flags were given, so an explicit
// empty value still clears a field.
func buildPatch(flags *pflag.FlagSet, values map[string]*string) apiclient.ProfilePatch {
	var patch apiclient.ProfilePatch
	for _, f := range profileFlags {
		if !flags.Changed(f.name) {
			continue
		}
		v := *values[f.name]
		*f.field(&patch) = &v
	}
	return patch
}
