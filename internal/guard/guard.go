// Package guard decides whether the current session may open a route.
package guard

import (
	"strings"

	"github.com/carrent-dev/carrent/internal/session"
)

const (
	PathHome  = "/"
	PathLogin = "/login"
)

// Notice is a user-facing message emitted when access is denied. ID is
// stable so repeated denials can be collapsed.
type Notice struct {
	ID      string
	Message string
}

var (
	NoticeLoginRequired = Notice{ID: "auth-check", Message: "Please login to continue"}
	NoticeAdminOnly     = Notice{ID: "admin-check", Message: "Access denied: Admin only"}
)

// Decision is the outcome of a route check. Redirect and Notice are set
// only when Allowed is false.
type Decision struct {
	Allowed  bool
	Redirect string
	Notice   *Notice
}

// Decide evaluates the access table for sess. It is pure: the same inputs
// always give the same decision.
func Decide(sess *session.Session, requiresAdmin bool) Decision {
	switch {
	case sess == nil:
		n := NoticeLoginRequired
		return Decision{Redirect: PathLogin, Notice: &n}
	case requiresAdmin && !sess.IsAdmin():
		n := NoticeAdminOnly
		return Decision{Redirect: PathHome, Notice: &n}
	default:
		return Decision{Allowed: true}
	}
}

// Access is the protection level of a route.
type Access int

const (
	Public Access = iota
	Private
	Admin
)

func (a Access) String() string {
	switch a {
	case Private:
		return "private"
	case Admin:
		return "admin"
	default:
		return "public"
	}
}

// Route is a path pattern such as "/book/:carId" and its protection level.
type Route struct {
	Pattern string
	Access  Access
}

// Routes is the application's route table.
var Routes = []Route{
	{Pattern: "/", Access: Public},
	{Pattern: "/login", Access: Public},
	{Pattern: "/register", Access: Public},
	{Pattern: "/forgot-password", Access: Public},
	{Pattern: "/resetpassword/:token", Access: Public},
	{Pattern: "/book-car", Access: Private},
	{Pattern: "/book/:carId", Access: Private},
	{Pattern: "/my-bookings", Access: Private},
	{Pattern: "/profile", Access: Private},
	{Pattern: "/dashboard", Access: Admin},
	{Pattern: "/manage-cars", Access: Admin},
	{Pattern: "/all-bookings", Access: Admin},
}

// Lookup finds the route matching path and its ":name" parameters.
func Lookup(path string) (Route, map[string]string, bool) {
	for _, r := range Routes {
		if params, ok := r.Match(path); ok {
			return r, params, true
		}
	}
	return Route{}, nil, false
}

// Match reports whether path fits the pattern, returning the captured parameters.
func (r Route) Match(path string) (map[string]string, bool) {
	want := splitPath(r.Pattern)
	got := splitPath(path)
	if len(want) != len(got) {
		return nil, false
	}

	params := map[string]string{}
	for i, seg := range want {
		if name, ok := strings.CutPrefix(seg, ":"); ok {
			if got[i] == "" {
				return nil, false
			}
			params[name] = got[i]
			continue
		}
		if seg != got[i] {
			return nil, false
		}
	}
	return params, true
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
