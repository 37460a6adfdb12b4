package status

import (
	"sync"
	"time"

	"github.com/MrSnakeDoc/checkvpn/internal/engine"
)

// Snapshot is the last finished cycle as shown on /status.
type Snapshot struct {
	Outcome    string    `json:"outcome"`
	Reachable  bool      `json:"reachable"`
	ISP        string    `json:"isp,omitempty"`
	Provider   string    `json:"provider,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMS int64     `json:"duration_ms"`
	Cycles     uint64    `json:"cycles"`
	DryRun     bool      `json:"dry_run"`
	WatchedISP string    `json:"watched_isp"`
}

// Tracker keeps only the most recent cycle. Reads and writes may come from
// different goroutines.
type Tracker struct {
	mu      sync.RWMutex
	last    Snapshot
	cycles  uint64
	started time.Time
}

func NewTracker() *Tracker {
	return &Tracker{started: time.Now()}
}

// Record replaces the snapshot with the given cycle result.
func (t *Tracker) Record(res engine.Result, err error, finished time.Time, policy engine.Policy) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cycles++
	snap := Snapshot{
		Outcome:    res.Outcome.String(),
		Reachable:  res.Reachable,
		ISP:        res.Identity.ISP,
		Provider:   res.Identity.Provider,
		StartedAt:  finished.Add(-res.Duration),
		FinishedAt: finished,
		DurationMS: res.Duration.Milliseconds(),
		Cycles:     t.cycles,
		DryRun:     policy.DryRun,
		WatchedISP: policy.WatchedISP,
	}
	if err != nil {
		snap.Error = err.Error()
	}
	t.last = snap
}

// Last returns the latest snapshot, and false before the first cycle.
func (t *Tracker) Last() (Snapshot, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last, t.cycles > 0
}

func (t *Tracker) Cycles() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cycles
}

// Uptime is the time since the tracker, and so the daemon, was created.
func (t *Tracker) Uptime() time.Duration {
	return time.Since(t.started)
}
