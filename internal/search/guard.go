package search

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// errRemoteSuspended is reported when a gazetteer is in cooldown.
var errRemoteSuspended = eris.New("search: remote source suspended after repeated failures")

const (
	guardThreshold = 5
	guardCooldown  = 2 * time.Minute
)

// guard suspends a remote gazetteer after consecutive failures, so a
// dead upstream is not hammered on every incoming search. After the
// cooldown one probe request is let through; its outcome decides
// whether the source reopens.
type guard struct {
	name string

	mu        sync.Mutex
	failures  int
	suspended time.Time
	probing   bool
}

func newGuard(name string) *guard {
	return &guard{name: name}
}

// allow reports whether a request may go out right now.
func (g *guard) allow() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.suspended.IsZero() {
		return true
	}
	if time.Since(g.suspended) < guardCooldown {
		return false
	}
	// One probe at a time once the cooldown has elapsed.
	if g.probing {
		return false
	}
	g.probing = true
	return true
}

// record feeds a request outcome back into the guard.
func (g *guard) record(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.probing = false

	if err == nil {
		if !g.suspended.IsZero() {
			zap.L().Info("remote source recovered", zap.String("source", g.name))
		}
		g.failures = 0
		g.suspended = time.Time{}
		return
	}

	g.failures++
	if g.failures >= guardThreshold || !g.suspended.IsZero() {
		if g.suspended.IsZero() {
			zap.L().Warn("remote source suspended",
				zap.String("source", g.name), zap.Int("failures", g.failures))
		}
		g.suspended = time.Now()
	}
}
