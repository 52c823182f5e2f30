package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/carrent-dev/carrent/internal/cli/commands"
	"github.com/carrent-dev/carrent/internal/config"
	"github.com/carrent-dev/carrent/internal/logger"
)

type options struct {
	env   *commands.Env
	ready bool
}

// Option configures the root command.
type Option func(*options)

// WithEnv runs commands against an already wired environment instead of
// loading configuration on first use.
func WithEnv(env *commands.Env) Option {
	return func(o *options) {
		o.env = env
		o.ready = true
	}
}

// NewRootCmd builds the carrent command tree.
func NewRootCmd(version string, opts ...Option) *cobra.Command {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.env == nil {
		o.env = &commands.Env{}
	}
	env := o.env

	rootCmd := &cobra.Command{
		Use:   "carrent",
		Short: "carrent - book rental cars from the command line",
		Long: `carrent is the command line client of the car rental service.

Browse providers and cars, book a car and manage your bookings. Admins can
manage the catalog and view the dashboard.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip setup for the version and help commands
			if cmd.Name() == "version" || cmd.Name() == "help" {
				return nil
			}
			if !o.ready {
				if err := bootstrap(env); err != nil {
					return err
				}
				o.ready = true
			}
			return env.GuardCommand(cmd)
		},
	}
	if env.Out != nil {
		rootCmd.SetOut(env.Out)
	}
	if env.Err != nil {
		rootCmd.SetErr(env.Err)
	}

	// Add version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "carrent version %s\n", version)
		},
	})

	// Add all subcommands
	rootCmd.AddCommand(commands.NewLoginCmd(env))
	rootCmd.AddCommand(commands.NewRegisterCmd(env))
	rootCmd.AddCommand(commands.NewLogoutCmd(env))
	rootCmd.AddCommand(commands.NewWhoamiCmd(env))
	rootCmd.AddCommand(commands.NewForgotPasswordCmd(env))
	rootCmd.AddCommand(commands.NewResetPasswordCmd(env))
	rootCmd.AddCommand(commands.NewProvidersCmd(env))
	rootCmd.AddCommand(commands.NewCarsCmd(env))
	rootCmd.AddCommand(commands.NewBookCmd(env))
	rootCmd.AddCommand(commands.NewBookingsCmd(env))
	rootCmd.AddCommand(commands.NewProfileCmd(env))
	rootCmd.AddCommand(commands.NewDashboardCmd(env))
	rootCmd.AddCommand(commands.NewManageCmd(env))
	rootCmd.AddCommand(commands.NewShellCmd(env, func() *cobra.Command {
		return NewRootCmd(version, WithEnv(env))
	}))

	return rootCmd
}

// bootstrap loads configuration and wires env in place.
func bootstrap(env *commands.Env) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.Init(cfg.Logging.Level, cfg.Logging.Format, nil)

	wired, err := commands.NewEnv(cfg, log)
	if err != nil {
		return err
	}
	*env = *wired
	return nil
}

// Execute runs the root command
func Execute(version string) error {
	return execute(version, os.Args[1:], os.Stderr)
}

func execute(version string, args []string, stderr io.Writer) error {
	env := &commands.Env{}
	rootCmd := NewRootCmd(version, func(o *options) { o.env = env })
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	if cerr := env.Close(); cerr != nil {
		log := logger.GetLogger()
		log.Warn().Err(cerr).Msg("Failed to close credential store")
	}
	if err == nil {
		return nil
	}

	var redirect *commands.RedirectError
	if errors.As(err, &redirect) {
		// the guard already printed its notice
		if hint := redirect.Hint(); hint != "" {
			fmt.Fprintln(stderr, hint)
		}
		return err
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)
	return err
}
