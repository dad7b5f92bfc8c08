package verify

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-lawcast/core"
)

const (
	DefaultBurstWindow     = 10 * time.Second
	DefaultBurstMaxEntries = 4096
)

type BurstOptions struct {
	Window     time.Duration
	MaxEntries int
	Now        func() time.Time
}

// BurstGuard rejects a registration when the same client registered less
// than Window ago. Requests without a remote address always pass. Verify only
// reads; a client is stamped by RecordRegistration, so a request rejected
// later in the registration flow does not lock its address out.
type BurstGuard struct {
	window     time.Duration
	maxEntries int
	now        func() time.Time

	mu      sync.Mutex
	entries map[string]time.Time
}

func NewBurstGuard(opts BurstOptions) *BurstGuard {
	window := opts.Window
	if window <= 0 {
		window = DefaultBurstWindow
	}
	maxEntries := opts.MaxEntries
	if maxEntries <= 0 {
		maxEntries = DefaultBurstMaxEntries
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &BurstGuard{
		window:     window,
		maxEntries: maxEntries,
		now:        now,
		entries:    map[string]time.Time{},
	}
}

func (g *BurstGuard) Verify(_ context.Context, _ string, remoteIP string) (bool, error) {
	if g == nil {
		return true, nil
	}
	key := strings.ToLower(strings.TrimSpace(remoteIP))
	if key == "" {
		return true, nil
	}

	now := g.now().UTC()
	g.mu.Lock()
	defer g.mu.Unlock()

	lastSeen, exists := g.entries[key]
	if !exists {
		return true, nil
	}
	return now.Sub(lastSeen) >= g.window, nil
}

func (g *BurstGuard) RecordRegistration(_ context.Context, remoteIP string) {
	if g == nil {
		return
	}
	key := strings.ToLower(strings.TrimSpace(remoteIP))
	if key == "" {
		return
	}

	now := g.now().UTC()
	g.mu.Lock()
	defer g.mu.Unlock()

	g.entries[key] = now
	g.cleanup(now)
}

// Size reports how many clients are tracked.
func (g *BurstGuard) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

func (g *BurstGuard) cleanup(now time.Time) {
	if len(g.entries) <= g.maxEntries {
		for key, seenAt := range g.entries {
			if now.Sub(seenAt) > g.window*4 {
				delete(g.entries, key)
			}
		}
		return
	}
	for key, seenAt := range g.entries {
		if now.Sub(seenAt) > g.window {
			delete(g.entries, key)
		}
		if len(g.entries) <= g.maxEntries {
			break
		}
	}
}

var (
	_ core.RegistrationVerifier = (*BurstGuard)(nil)
	_ core.RegistrationRecorder = (*BurstGuard)(nil)
)
