// Package report implements the Reporter of spec.md §4.11: atomic
// structured counters updated by the enumeration goroutine, read (not
// mutated) by an optional tick emitter running on its own goroutine,
// flushed through a pluggable Sink.
//
// Grounded on smilemakc/mbflow's rs/zerolog/log usage for the ambient
// structured-logging idiom; the sink abstraction itself (so a caller
// can swap in a no-op or custom sink) follows the teacher's preference
// for small interfaces at integration points.
package report

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Snapshot is one formatted line's worth of structured fields
// (spec.md §4.11).
type Snapshot struct {
	Active             int
	Killed             int
	Defined            int
	Edges              int
	PercentComplete    float64
	Cursor             int
	LastIntervalKilled int
	HLTTime            time.Duration
	FelschTime         time.Duration
	LookaheadTime      time.Duration
}

// Sink accepts a formatted report line. Implementations must not block
// the caller for long, since Reporter's tick goroutine calls it
// synchronously on the tick interval.
type Sink interface {
	Report(Snapshot)
}

// ZerologSink formats a Snapshot as one structured zerolog line.
type ZerologSink struct {
	Logger zerolog.Logger
}

// Report writes one info-level line with every Snapshot field.
func (s ZerologSink) Report(snap Snapshot) {
	s.Logger.Info().
		Int("active", snap.Active).
		Int("killed", snap.Killed).
		Int("defined", snap.Defined).
		Int("edges", snap.Edges).
		Float64("percent_complete", snap.PercentComplete).
		Int("cursor", snap.Cursor).
		Int("last_interval_killed", snap.LastIntervalKilled).
		Dur("hlt_time", snap.HLTTime).
		Dur("felsch_time", snap.FelschTime).
		Dur("lookahead_time", snap.LookaheadTime).
		Msg("coset enumeration progress")
}

// NoopSink discards every Snapshot; used for silent runs.
type NoopSink struct{}

// Report does nothing.
func (NoopSink) Report(Snapshot) {}

// Phase names used with AddPhaseTime.
const (
	PhaseHLT       = "hlt"
	PhaseFelsch    = "felsch"
	PhaseLookahead = "lookahead"
)

// Reporter owns the atomic counters of spec.md §4.11 and an optional
// background goroutine that emits a Snapshot to Sink every interval
// once a run has been active for more than one second.
type Reporter struct {
	sink     Sink
	interval time.Duration

	active  atomic.Int64
	killed  atomic.Int64
	defined atomic.Int64
	edges   atomic.Int64
	cursor  atomic.Int64
	percent atomic.Uint64 // math.Float64bits
	lastInterval atomic.Int64

	phaseMu sync.Mutex
	phase   map[string]time.Duration

	suppressMu sync.Mutex
	suppressed map[string]bool

	// lifecycleMu guards stopCh/done/startedAt below, letting Start and
	// Stop bracket each Run/RunFor/RunUntil call independently: Stop
	// clears stopCh/done back to nil so a later Start always sees a
	// fresh pair, rather than ever touching an already-closed channel
	// (spec.md §7 "re-entrant run resumes").
	lifecycleMu sync.Mutex
	startedAt   time.Time
	stopCh      chan struct{}
	done        chan struct{}
}

// New constructs a Reporter. A nil sink is treated as NoopSink.
func New(sink Sink, interval time.Duration) *Reporter {
	if sink == nil {
		sink = NoopSink{}
	}
	return &Reporter{
		sink:       sink,
		interval:   interval,
		phase:      make(map[string]time.Duration),
		suppressed: make(map[string]bool),
	}
}

// SetActive records the current active-node count.
func (r *Reporter) SetActive(n int) { r.active.Store(int64(n)) }

// AddKilled accumulates the running killed-node total and the count
// attributed to the current reporting interval.
func (r *Reporter) AddKilled(n int) {
	r.killed.Add(int64(n))
	r.lastInterval.Add(int64(n))
}

// SetDefined records the current defined-node count (active nodes all
// of whose edges are defined).
func (r *Reporter) SetDefined(n int) { r.defined.Store(int64(n)) }

// SetEdges records the current active-edge count.
func (r *Reporter) SetEdges(n int) { r.edges.Store(int64(n)) }

// SetCursor records the current enumeration cursor position.
func (r *Reporter) SetCursor(n int) { r.cursor.Store(int64(n)) }

// SetPercentComplete records the current completion ratio.
func (r *Reporter) SetPercentComplete(p float64) {
	r.percent.Store(math.Float64bits(p))
}

// AddPhaseTime accumulates time spent in the named phase
// (PhaseHLT/PhaseFelsch/PhaseLookahead).
func (r *Reporter) AddPhaseTime(phase string, d time.Duration) {
	r.phaseMu.Lock()
	r.phase[phase] += d
	r.phaseMu.Unlock()
}

// Suppress disables ticking for every report whose phase/scope name
// has prefix as a prefix (spec.md §4.11 "suppression is namespaced by
// a string prefix").
func (r *Reporter) Suppress(prefix string) {
	r.suppressMu.Lock()
	r.suppressed[prefix] = true
	r.suppressMu.Unlock()
}

// Unsuppress reverses a prior Suppress call for the same prefix.
func (r *Reporter) Unsuppress(prefix string) {
	r.suppressMu.Lock()
	delete(r.suppressed, prefix)
	r.suppressMu.Unlock()
}

func (r *Reporter) isSuppressed(scope string) bool {
	r.suppressMu.Lock()
	defer r.suppressMu.Unlock()
	for prefix := range r.suppressed {
		if len(scope) >= len(prefix) && scope[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

// Snapshot reads every counter into a single consistent-enough
// struct (individual fields may interleave with concurrent writers by
// at most one update, which is acceptable for a progress line).
func (r *Reporter) Snapshot() Snapshot {
	r.phaseMu.Lock()
	hlt := r.phase[PhaseHLT]
	felsch := r.phase[PhaseFelsch]
	lookahead := r.phase[PhaseLookahead]
	r.phaseMu.Unlock()

	return Snapshot{
		Active:             int(r.active.Load()),
		Killed:             int(r.killed.Load()),
		Defined:            int(r.defined.Load()),
		Edges:              int(r.edges.Load()),
		PercentComplete:    math.Float64frombits(r.percent.Load()),
		Cursor:             int(r.cursor.Load()),
		LastIntervalKilled: int(r.lastInterval.Swap(0)),
		HLTTime:            hlt,
		FelschTime:         felsch,
		LookaheadTime:      lookahead,
	}
}

// Start begins the tick goroutine if interval > 0 and no tick
// goroutine is currently running for this Reporter. Safe to call again
// after a matching Stop — each Run/RunFor/RunUntil call brackets its
// own Start/Stop pair, and a re-entrant run after cancellation gets a
// fresh tick goroutine rather than a panic on a stale channel.
func (r *Reporter) Start(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	r.lifecycleMu.Lock()
	if r.stopCh != nil {
		r.lifecycleMu.Unlock()
		return
	}
	r.startedAt = time.Now()
	stopCh := make(chan struct{})
	done := make(chan struct{})
	r.stopCh = stopCh
	r.done = done
	r.lifecycleMu.Unlock()

	go r.tick(ctx, stopCh, done)
}

func (r *Reporter) tick(ctx context.Context, stopCh, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.flush("run")
			return
		case <-stopCh:
			r.flush("run")
			return
		case <-ticker.C:
			if time.Since(r.startedAt) > time.Second {
				r.flush("run")
			}
		}
	}
}

func (r *Reporter) flush(scope string) {
	if r.isSuppressed(scope) {
		return
	}
	r.sink.Report(r.Snapshot())
}

// Stop ends the tick goroutine if one is running, blocking until it has
// exited, then re-arms the Reporter so a later Start begins a fresh
// goroutine. Idempotent: calling Stop when nothing is running (or
// calling it twice in a row, as a deferred Stop after an already-
// cancelled tick goroutine would) is a no-op.
func (r *Reporter) Stop() {
	r.lifecycleMu.Lock()
	stopCh, done := r.stopCh, r.done
	r.stopCh, r.done = nil, nil
	r.lifecycleMu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-done
}
