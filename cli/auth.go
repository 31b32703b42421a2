package cli

import (
	"context"
	"errors"
	"fmt"

	"convokit/core"
	"convokit/factories"
	"convokit/orchestrator"
	"convokit/persist"
	"convokit/services/backend"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
)

var errPasswordMismatch = errors.New("passwords do not match")

// withIdentities opens the identity file for the duration of fn.
func (a *app) withIdentities(fn func(*persist.IdentityStore) error) error {
	identities, err := factories.OpenIdentities(a.settings.IdentityDB)
	if err != nil {
		return err
	}
	defer identities.Close()
	return fn(identities)
}

func newLoginCmd(a *app) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withIdentities(func(identities *persist.IdentityStore) error {
				ctx := cmd.Context()
				if err := ensureSignedOut(ctx, identities); err != nil {
					return err
				}
				var password string
				if err := askCredentials(&email, &password); err != nil {
					return err
				}
				client := backend.NewClient(a.settings.Backend, a.logger)
				identity, err := client.Login(ctx, email, password)
				if err != nil {
					return err
				}
				return remember(ctx, cmd, identities, identity)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

func newSignupCmd(a *app) *cobra.Command {
	var username, email string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withIdentities(func(identities *persist.IdentityStore) error {
				ctx := cmd.Context()
				if err := ensureSignedOut(ctx, identities); err != nil {
					return err
				}
				if username == "" {
					if err := survey.AskOne(&survey.Input{Message: "Username:"}, &username, survey.WithValidator(survey.Required)); err != nil {
						return err
					}
				}
				var password, confirm string
				if err := askCredentials(&email, &password); err != nil {
					return err
				}
				if err := survey.AskOne(&survey.Password{Message: "Confirm password:"}, &confirm); err != nil {
					return err
				}
				if password != confirm {
					return errPasswordMismatch
				}
				client := backend.NewClient(a.settings.Backend, a.logger)
				identity, err := client.Signup(ctx, username, email, password)
				if err != nil {
					return err
				}
				return remember(ctx, cmd, identities, identity)
			})
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the remembered user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withIdentities(func(identities *persist.IdentityStore) error {
				if err := identities.Clear(cmd.Context()); err != nil {
					return err
				}
				status(cmd.OutOrStdout(), "signed out")
				return nil
			})
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the remembered user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withIdentities(func(identities *persist.IdentityStore) error {
				identity, err := identities.Load(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), describeIdentity(identity))
				return nil
			})
		},
	}
}

func ensureSignedOut(ctx context.Context, identities orchestrator.IIdentityStore) error {
	identity, err := identities.Load(ctx)
	if err != nil {
		return err
	}
	if identity != nil {
		return fmt.Errorf("%w as %s, run logout first", orchestrator.ErrAlreadySignedIn, identity.Email)
	}
	return nil
}

func askCredentials(email, password *string) error {
	if *email == "" {
		if err := survey.AskOne(&survey.Input{Message: "Email:"}, email, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}
	return survey.AskOne(&survey.Password{Message: "Password:"}, password, survey.WithValidator(survey.Required))
}

func remember(ctx context.Context, cmd *cobra.Command, identities orchestrator.IIdentityStore, identity core.Identity) error {
	if err := identities.Save(ctx, identity); err != nil {
		return err
	}
	status(cmd.OutOrStdout(), "signed in as %s", describeIdentity(&identity))
	return nil
}

func describeIdentity(identity *core.Identity) string {
	if identity == nil {
		return "not signed in"
	}
	return fmt.Sprintf("%s <%s>", identity.DisplayName, identity.Email)
}
