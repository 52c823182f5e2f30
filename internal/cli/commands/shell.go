package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/carrent-dev/carrent/internal/guard"
	"github.com/carrent-dev/carrent/internal/session"
)

// NewShellCmd creates the interactive shell. newRoot builds a fresh command
// tree for each line so flag values never leak between commands.
func NewShellCmd(env *Env, newRoot func() *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive session",
		Long: `Start an interactive session.

Every line is run as a carrent command. The session is re-checked before
each command and periodically in the background (CARRENT_EXPIRY_CHECK), so
an expired login ends the session without waiting for the server to reject
it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd.Context(), env, newRoot)
		},
	}
}

func runShell(ctx context.Context, env *Env, newRoot func() *cobra.Command) error {
	schedule := session.DefaultExpiryCheck
	if env.Config != nil && env.Config.Session.ExpiryCheck != "" {
		schedule = env.Config.Session.ExpiryCheck
	}
	watcher, err := session.NewWatcher(env.Session, schedule, env.Logger)
	if err != nil {
		return err
	}
	watcher.Start()
	defer watcher.Stop()

	// The watcher and the transport change the session from other
	// goroutines; the prompt follows.
	var label atomic.Value
	label.Store(promptLabel(env.Session.Current()))
	unsubscribe := env.Session.Subscribe(func(st session.State) {
		label.Store(promptLabel(st.Session))
	})
	defer unsubscribe()

	fmt.Fprintln(env.stdout(), "carrent interactive shell. Type 'help' for commands, 'exit' to quit.")

	for ctx.Err() == nil {
		line, err := env.Prompt.Input(label.Load().(string))
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "exit", "quit":
			return nil
		case "shell":
			fmt.Fprintln(env.stdout(), "Already in the shell.")
			continue
		}

		err = runLine(ctx, newRoot, args)

		var redirect *RedirectError
		switch {
		case errors.As(err, &redirect) && redirect.To == guard.PathLogin:
			// follow the redirect, then retry the command
			if err := runLine(ctx, newRoot, []string{"login"}); err != nil {
				fmt.Fprintf(env.stderr(), "Error: %v\n", err)
				continue
			}
			if err := runLine(ctx, newRoot, args); err != nil && !errors.Is(err, ErrRedirect) {
				fmt.Fprintf(env.stderr(), "Error: %v\n", err)
			}
		case errors.Is(err, ErrRedirect):
			// the guard's notice is all the user needs
		case err != nil:
			fmt.Fprintf(env.stderr(), "Error: %v\n", err)
		}
	}
	return nil
}

func runLine(ctx context.Context, newRoot func() *cobra.Command, args []string) error {
	root := newRoot()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func promptLabel(sess *session.Session) string {
	if sess == nil {
		return "carrent"
	}
	return fmt.Sprintf("carrent (%s)", sess.DisplayName())
}
