package session

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultExpiryCheck is how often a long-running client re-checks its token.
const DefaultExpiryCheck = "@every 30s"

// Watcher periodically evicts the manager's session once its token expires.
type Watcher struct {
	cron    *cron.Cron
	manager *Manager
	logger  zerolog.Logger
}

// NewWatcher schedules expiry checks for m using a cron spec such as
// "@every 30s". The watcher does nothing until Start is called.
func NewWatcher(m *Manager, spec string, logger zerolog.Logger) (*Watcher, error) {
	if spec == "" {
		spec = DefaultExpiryCheck
	}

	w := &Watcher{
		cron:    cron.New(),
		manager: m,
		logger:  logger,
	}
	if _, err := w.cron.AddFunc(spec, w.check); err != nil {
		return nil, fmt.Errorf("invalid expiry check schedule %q: %w", spec, err)
	}
	return w, nil
}

// Start runs the schedule in the background. It also checks once immediately.
func (w *Watcher) Start() {
	w.check()
	w.cron.Start()
}

// Stop halts the schedule and waits for a running check to finish.
func (w *Watcher) Stop() {
	<-w.cron.Stop().Done()
}

func (w *Watcher) check() {
	if w.manager.EvictExpired() {
		w.logger.Warn().Msg("Session expired, please login again")
	}
}
