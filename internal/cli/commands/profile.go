package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/carrent-dev/carrent/internal/client"
)

// NewProfileCmd creates the profile command and its subcommands
func NewProfileCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "View or change your account",
	}

	cmd.AddCommand(withRoute(&cobra.Command{
		Use:   "show",
		Short: "Show your profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := env.API.Me(cmd.Context())
			if err != nil {
				return err
			}
			out := env.stdout()
			fmt.Fprintf(out, "Name:      %s\n", u.Name)
			fmt.Fprintf(out, "Email:     %s\n", u.Email)
			fmt.Fprintf(out, "Telephone: %s\n", u.Telephone)
			fmt.Fprintf(out, "Role:      %s\n", u.Role)
			return nil
		},
	}, "/profile"))

	cmd.AddCommand(newProfileUpdateCmd(env))
	cmd.AddCommand(newProfileDeleteCmd(env))
	return cmd
}

func newProfileUpdateCmd(env *Env) *cobra.Command {
	var req client.ProfileUpdate

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update your name, email or telephone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := env.API.Me(cmd.Context())
			if err != nil {
				return err
			}
			if req.Name == "" {
				req.Name = current.Name
			}
			if req.Email == "" {
				req.Email = current.Email
			}
			if req.Telephone == "" {
				req.Telephone = current.Telephone
			}

			u, err := env.API.UpdateMe(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("failed to update profile: %w", err)
			}
			fmt.Fprintf(env.stdout(), "✓ Profile updated for %s\n", u.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "New name")
	cmd.Flags().StringVar(&req.Email, "email", "", "New email address")
	cmd.Flags().StringVar(&req.Telephone, "telephone", "", "New telephone number (10 digits)")

	return withRoute(cmd, "/profile")
}

func newProfileDeleteCmd(env *Env) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete your account and its bookings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				answer, err := env.Prompt.Input("Delete your account? Type 'yes' to confirm")
				if err != nil {
					return err
				}
				if strings.ToLower(strings.TrimSpace(answer)) != "yes" {
					fmt.Fprintln(env.stdout(), "Cancelled.")
					return nil
				}
			}

			if err := env.API.DeleteMe(cmd.Context()); err != nil {
				return fmt.Errorf("failed to delete account: %w", err)
			}
			env.Session.Logout()
			fmt.Fprintln(env.stdout(), "✓ Account deleted")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")

	return withRoute(cmd, "/profile")
}
