// Command carrent-devapi runs an in-memory rental API for local development
// of the carrent client.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/carrent-dev/carrent/internal/apitest"
	"github.com/carrent-dev/carrent/internal/logger"
)

func main() {
	var (
		addr            string
		password        string
		logLevel        string
		noRegisterToken bool
	)
	tokenTTL := apitest.DefaultTokenTTL

	rootCmd := &cobra.Command{
		Use:           "carrent-devapi",
		Short:         "Run an in-memory rental API with demo data",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Initialize logger
			log := logger.Init(logLevel, "console", os.Stderr)

			opts := []apitest.Option{
				apitest.WithLogger(log),
				apitest.WithTokenTTL(tokenTTL),
			}
			if noRegisterToken {
				opts = append(opts, apitest.WithoutRegistrationToken())
			}
			srv := apitest.New(opts...)

			admin, user := srv.SeedDemo(password)
			log.Info().
				Str("admin", admin.Email).
				Str("user", user.Email).
				Dur("token_ttl", tokenTTL).
				Msg("Seeded demo accounts")

			return srv.Start(addr)
		},
	}

	rootCmd.Flags().StringVar(&addr, "addr", ":5000", "Listen address")
	rootCmd.Flags().StringVar(&password, "password", "password123", "Password of the seeded demo accounts")
	rootCmd.Flags().DurationVar(&tokenTTL, "token-ttl", tokenTTL, "Lifetime of issued tokens")
	rootCmd.Flags().BoolVar(&noRegisterToken, "no-register-token", false, "Answer registrations without a token")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
