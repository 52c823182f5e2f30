package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/carrent-dev/carrent/internal/client"
	"github.com/carrent-dev/carrent/internal/guard"
	"github.com/carrent-dev/carrent/internal/session"
)

// failure carries the user-facing message of a failed session operation
// while keeping the underlying error for errors.Is/As.
type failure struct {
	msg string
	err error
}

func (f *failure) Error() string { return f.msg }
func (f *failure) Unwrap() error { return f.err }

// settle reports the manager's outcome for an operation and clears the
// outcome flags, the way a notice is dismissed once shown.
func (e *Env) settle(err error) error {
	st := e.Session.State()
	defer e.Session.Reset()

	if errors.Is(err, session.ErrSuperseded) {
		return err
	}
	if err != nil {
		msg := st.Message
		if msg == "" {
			msg = err.Error()
		}
		return &failure{msg: msg, err: err}
	}
	fmt.Fprintf(e.stdout(), "✓ %s\n", st.Message)
	return nil
}

// NewLoginCmd creates the login command
func NewLoginCmd(env *Env) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the rental service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context(), env, email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set CARRENT_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set CARRENT_PASSWORD, will prompt if not provided)")

	return withRoute(cmd, guard.PathLogin)
}

func runLogin(ctx context.Context, env *Env, email, password string) error {
	// Check for environment variables (useful for CI/CD)
	if email == "" {
		email = os.Getenv("CARRENT_EMAIL")
	}
	if password == "" {
		password = os.Getenv("CARRENT_PASSWORD")
	}

	email, err := ask(env.Prompt, email, "Email")
	if err != nil {
		return err
	}
	password, err = askPassword(env.Prompt, password, "Password")
	if err != nil {
		return err
	}

	fmt.Fprintf(env.stdout(), "Logging in to %s...\n", env.API.BaseURL())
	err = env.Session.Login(ctx, session.Credentials{Email: email, Password: password})
	if err := env.settle(err); err != nil {
		return err
	}

	if sess := env.Session.Current(); sess != nil {
		fmt.Fprintf(env.stdout(), "  User: %s (%s)\n", sess.DisplayName(), sess.Email)
		if sess.IsAdmin() {
			fmt.Fprintln(env.stdout(), "  Role: Admin")
		}
	}
	return nil
}

// NewRegisterCmd creates the register command
func NewRegisterCmd(env *Env) *cobra.Command {
	var reg session.Registration

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(cmd.Context(), env, reg)
		},
	}

	cmd.Flags().StringVar(&reg.Name, "name", "", "Full name")
	cmd.Flags().StringVar(&reg.Telephone, "telephone", "", "Telephone number (10 digits)")
	cmd.Flags().StringVar(&reg.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&reg.Password, "password", "", "Password, at least 6 characters (will prompt if not provided)")

	return withRoute(cmd, "/register")
}

func runRegister(ctx context.Context, env *Env, reg session.Registration) error {
	var err error
	if reg.Name, err = ask(env.Prompt, reg.Name, "Name"); err != nil {
		return err
	}
	if reg.Telephone, err = ask(env.Prompt, reg.Telephone, "Telephone"); err != nil {
		return err
	}
	if reg.Email, err = ask(env.Prompt, reg.Email, "Email"); err != nil {
		return err
	}

	if reg.Password == "" {
		if reg.Password, err = env.Prompt.Password("Password"); err != nil {
			return err
		}
		if reg.ConfirmPassword, err = env.Prompt.Password("Confirm password"); err != nil {
			return err
		}
	} else {
		reg.ConfirmPassword = reg.Password
	}
	reg.Role = session.RoleUser

	return env.settle(env.Session.Register(ctx, reg))
}

// NewLogoutCmd creates the logout command
func NewLogoutCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env.Session.Logout()
			fmt.Fprintln(env.stdout(), "✓ Logged out")
			return nil
		},
	}
}

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess := env.Session.Current()
			if sess == nil {
				fmt.Fprintln(env.stdout(), "Not logged in.")
				return nil
			}

			out := env.stdout()
			fmt.Fprintf(out, "User:  %s\n", sess.DisplayName())
			if sess.Email != "" {
				fmt.Fprintf(out, "Email: %s\n", sess.Email)
			}
			fmt.Fprintf(out, "Role:  %s\n", sess.Role)
			if exp, err := session.ExpiresAt(sess.Token); err == nil {
				fmt.Fprintf(out, "Token expires: %s\n", exp.Local().Format(time.RFC1123))
			}
			return nil
		},
	}
}

// NewForgotPasswordCmd creates the forgot-password command
func NewForgotPasswordCmd(env *Env) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Email a password reset link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := ask(env.Prompt, email, "Email")
			if err != nil {
				return err
			}
			msg, err := env.API.ForgotPassword(cmd.Context(), email)
			if err != nil {
				return &failure{msg: session.FailureMessage(err, "Failed to send reset link"), err: err}
			}
			if msg == "" {
				msg = "Password reset link sent"
			}
			fmt.Fprintf(env.stdout(), "✓ %s\n", msg)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address of the account")

	return withRoute(cmd, "/forgot-password")
}

// NewResetPasswordCmd creates the reset-password command
func NewResetPasswordCmd(env *Env) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "reset-password <token>",
		Short: "Set a new password with the token from a reset link",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return env.Navigate("/resetpassword/" + args[0])
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			form := client.PasswordReset{Password: password, ConfirmPassword: password}
			if password == "" {
				var err error
				if form.Password, err = env.Prompt.Password("New password"); err != nil {
					return err
				}
				if form.ConfirmPassword, err = env.Prompt.Password("Confirm password"); err != nil {
					return err
				}
			}

			msg, err := env.API.ResetPassword(cmd.Context(), args[0], form)
			if err != nil {
				return &failure{msg: session.FailureMessage(err, "Password reset failed"), err: err}
			}
			if msg == "" {
				msg = "Password reset successful"
			}
			fmt.Fprintf(env.stdout(), "✓ %s\n", msg)
			fmt.Fprintln(env.stdout(), "Run 'carrent login' with your new password.")
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "New password (will prompt if not provided)")

	return cmd
}
