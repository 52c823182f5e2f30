package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/carrent-dev/carrent/internal/guard"
)

// routeAnnotation names the route a command opens. Commands without one
// are not guarded.
const routeAnnotation = "carrent/route"

// ErrRedirect is matched by every RedirectError.
var ErrRedirect = errors.New("redirected")

// RedirectError reports that the guard refused a route and where it sent
// the user instead.
type RedirectError struct {
	Route  string
	To     string
	Notice string
}

func (e *RedirectError) Error() string {
	if e.Notice != "" {
		return e.Notice
	}
	return fmt.Sprintf("redirected from %s to %s", e.Route, e.To)
}

func (e *RedirectError) Is(target error) bool {
	return target == ErrRedirect
}

// Hint tells the user how to get past the redirect.
func (e *RedirectError) Hint() string {
	if e.To == guard.PathLogin {
		return "Run 'carrent login' to sign in."
	}
	return ""
}

// withRoute marks cmd as opening route.
func withRoute(cmd *cobra.Command, route string) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[routeAnnotation] = route
	return cmd
}

// Navigate checks route against the live session. A denial becomes a
// *RedirectError; the guard has already shown its notice.
func (e *Env) Navigate(route string) error {
	d := e.Guard.CheckPath(route)
	if d.Allowed {
		return nil
	}

	redirect := &RedirectError{Route: route, To: d.Redirect}
	if d.Notice != nil {
		redirect.Notice = d.Notice.Message
	}
	e.Logger.Debug().Str("route", route).Str("redirect", d.Redirect).Msg("Route denied")
	return redirect
}

// GuardCommand runs the guard for cmd's route, if it has one.
func (e *Env) GuardCommand(cmd *cobra.Command) error {
	route, ok := cmd.Annotations[routeAnnotation]
	if !ok {
		return nil
	}
	return e.Navigate(route)
}
