package bot

// session.go keeps one conversation per user in memory.
//
// Every event for a user runs while holding that user's slot, so a
// conversation sees its events one at a time. Different users never share
// a slot and proceed in parallel. Nothing survives a restart.

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/partbot/internal/core"
)

// DefaultIdleTTL is how long an untouched conversation is kept.
const DefaultIdleTTL = 30 * time.Minute

type flow int

const (
	flowMovement flow = iota + 1
	flowSearch
)

// conversation is the state of one entry command until it ends.
type conversation struct {
	id   string
	flow flow

	tx *core.Transaction // flowMovement

	results []core.PartRecord // flowSearch, capped at core.MaxSearchCache
}

func newConversation(f flow) *conversation {
	return &conversation{id: uuid.NewString(), flow: f}
}

type slot struct {
	mu      sync.Mutex
	conv    *conversation
	touched time.Time
	gone    bool // removed by Sweep; acquire must fetch a fresh slot
}

// Sessions is the per-user conversation table.
type Sessions struct {
	mu    sync.Mutex
	slots map[string]*slot
	ttl   time.Duration
	now   func() time.Time
}

// NewSessions creates a table that forgets conversations idle for ttl.
func NewSessions(ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	return &Sessions{
		slots: make(map[string]*slot),
		ttl:   ttl,
		now:   time.Now,
	}
}

// acquire returns the user's slot locked. Call release when done.
func (s *Sessions) acquire(userID string) *slot {
	for {
		s.mu.Lock()
		sl, ok := s.slots[userID]
		if !ok {
			sl = &slot{}
			s.slots[userID] = sl
		}
		s.mu.Unlock()

		sl.mu.Lock()
		if !sl.gone {
			return sl
		}
		sl.mu.Unlock()
	}
}

func (s *Sessions) release(sl *slot) {
	sl.touched = s.now()
	sl.mu.Unlock()
}

// Describe reports the user's conversation as "movement:<state>" or
// "search", or "" when there is none.
func (s *Sessions) Describe(userID string) string {
	sl := s.acquire(userID)
	defer sl.mu.Unlock()

	switch {
	case sl.conv == nil:
		return ""
	case sl.conv.flow == flowSearch:
		return "search"
	default:
		return "movement:" + sl.conv.tx.State().String()
	}
}

// Active counts users with a live conversation. Busy slots are counted as
// live.
func (s *Sessions) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, sl := range s.slots {
		if !sl.mu.TryLock() {
			n++
			continue
		}
		if sl.conv != nil {
			n++
		}
		sl.mu.Unlock()
	}
	return n
}

// Sweep drops every slot idle for longer than the TTL and returns how many
// live conversations were discarded. Slots in use are skipped.
func (s *Sessions) Sweep() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := 0
	for userID, sl := range s.slots {
		if !sl.mu.TryLock() {
			continue
		}
		if sl.touched.Before(cutoff) {
			if sl.conv != nil {
				dropped++
			}
			sl.conv = nil
			sl.gone = true
			delete(s.slots, userID)
		}
		sl.mu.Unlock()
	}
	return dropped
}

// StartSweeper runs Sweep every interval until ctx is cancelled.
func (s *Sessions) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	slog.Info("session sweeper started", "idle_ttl", s.ttl, "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped")
			return
		case <-ticker.C:
			start := time.Now()
			if n := s.Sweep(); n > 0 {
				slog.Info("expired idle conversations",
					"conversations_dropped", n,
					"duration_ms", time.Since(start).Milliseconds(),
				)
			}
		}
	}
}
