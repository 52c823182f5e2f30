package guard

import (
	"sync"
	"time"

	"github.com/carrent-dev/carrent/internal/session"
)

// DefaultNoticeWindow is how long a notice stays on screen.
const DefaultNoticeWindow = 3 * time.Second

// SessionSource returns the live session. session.Manager implements it.
type SessionSource interface {
	Current() *session.Session
}

// Notifier shows notices to the user.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// Guard evaluates routes against the live session.
type Guard struct {
	source   SessionSource
	notifier Notifier
}

func New(source SessionSource, notifier Notifier) *Guard {
	return &Guard{source: source, notifier: notifier}
}

// Check decides access to route, re-reading the session each time. Public
// routes are always allowed. A denial's notice goes to the notifier.
func (g *Guard) Check(route Route) Decision {
	if route.Access == Public {
		return Decision{Allowed: true}
	}

	d := Decide(g.source.Current(), route.Access == Admin)
	if d.Notice != nil && g.notifier != nil {
		g.notifier.Notify(*d.Notice)
	}
	return d
}

// CheckPath looks path up in Routes and checks it. Unknown paths are public.
func (g *Guard) CheckPath(path string) Decision {
	route, _, ok := Lookup(path)
	if !ok {
		return Decision{Allowed: true}
	}
	return g.Check(route)
}

// DedupNotifier drops a notice while another with the same ID is still
// displayed.
type DedupNotifier struct {
	next   Notifier
	window time.Duration
	now    func() time.Time

	mu    sync.Mutex
	shown map[string]time.Time
}

// NewDedupNotifier forwards to next, suppressing repeats within window
// (DefaultNoticeWindow when zero).
func NewDedupNotifier(next Notifier, window time.Duration) *DedupNotifier {
	if window <= 0 {
		window = DefaultNoticeWindow
	}
	return &DedupNotifier{
		next:   next,
		window: window,
		now:    time.Now,
		shown:  make(map[string]time.Time),
	}
}

func (d *DedupNotifier) Notify(n Notice) {
	d.mu.Lock()
	now := d.now()
	if at, ok := d.shown[n.ID]; ok && now.Sub(at) < d.window {
		d.mu.Unlock()
		return
	}
	d.shown[n.ID] = now
	d.mu.Unlock()

	d.next.Notify(n)
}
