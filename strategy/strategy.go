// Package strategy implements the Strategy state machine of spec.md
// §4.8: composite enumeration scripts over HLT, Felsch, and Lookahead,
// plus the initial-run seeding policy.
//
// Each composite script is grounded on the same engine calls as the
// plain hlt/felsch strategies, budgeted by g.EdgeCount() deltas (the
// closest observable proxy for spec.md's "+N new nodes"/"+N defs" cut
// points, since Felsch alone never allocates a node but always defines
// an edge — see DESIGN.md for this Open Question's resolution).
package strategy

import (
	"context"
	"time"

	"github.com/latticeforge/coset/coincidence"
	"github.com/latticeforge/coset/definition"
	"github.com/latticeforge/coset/felsch"
	"github.com/latticeforge/coset/hlt"
	"github.com/latticeforge/coset/lookahead"
	"github.com/latticeforge/coset/node"
	"github.com/latticeforge/coset/presentation"
	"github.com/latticeforge/coset/report"
	"github.com/latticeforge/coset/wordgraph"
)

// Kind selects the enumeration script (spec.md §4.8, §6 `strategy`).
type Kind int

const (
	HLT Kind = iota
	Felsch
	CR
	Rc
	Cr
	ROverC
)

// Params bundles every strategy-affecting tuning knob of spec.md §6
// not already owned by another package's Options.
type Params struct {
	Kind Kind
	Save bool

	HLTDefs int // §6 hlt_defs: budget cut for composite HLT phases
	FDefs   int // §6 f_defs: budget cut for composite Felsch phases

	LookaheadExtent Extent
	LookaheadStyle  lookahead.Style
	Tuning          lookahead.Tuning

	UseRelationsInExtra bool
}

// Extent is a local alias so callers configuring Params don't need to
// import lookahead just for the enum value.
type Extent = lookahead.Extent

const (
	PartialExtent = lookahead.PartialExtent
	FullExtent    = lookahead.FullExtent
)

// Engine runs one Params script against a shared graph/queue/buffer.
type Engine struct {
	g        *wordgraph.Graph
	nodes    *node.Manager
	q        *coincidence.Queue
	pres     *presentation.Presentation
	kind     presentation.Kind
	genPairs presentation.GeneratingPairs
	buf      *definition.Buffer
	params   Params

	cursor        int
	lookaheadNext int

	rep        *report.Reporter
	killedSeen int
}

// SetReporter attaches rep so every phase run updates its counters and
// per-phase timings as it goes, rather than only once Run returns
// (spec.md §4.11). A nil rep (the default) disables reporting; this
// method is a no-op-safe hook, not a constructor argument, so existing
// callers that never report need no changes.
func (e *Engine) SetReporter(rep *report.Reporter) { e.rep = rep }

// recordProgress refreshes every Reporter counter from current engine
// state. Safe to call when e.rep is nil.
func (e *Engine) recordProgress() {
	if e.rep == nil {
		return
	}
	e.rep.SetActive(e.nodes.ActiveCount())
	e.rep.SetEdges(e.g.EdgeCount())
	e.rep.SetDefined(e.g.ClosedCount())
	e.rep.SetCursor(e.cursor)
	e.rep.SetPercentComplete(e.g.CompleteRatio())
	if killed := e.q.KilledCount(); killed > e.killedSeen {
		e.rep.AddKilled(killed - e.killedSeen)
		e.killedSeen = killed
	}
}

// timePhase runs fn, attributing its wall-clock duration to phase and
// refreshing the progress counters afterward (spec.md §4.11). Safe to
// call when e.rep is nil (duration is simply discarded).
func (e *Engine) timePhase(phase string, fn func() error) error {
	start := time.Now()
	err := fn()
	if e.rep != nil {
		e.rep.AddPhaseTime(phase, time.Since(start))
	}
	e.recordProgress()
	return err
}

// New constructs an Engine. kind is the presentation's twosided/
// onesided kind (distinct from Params.Kind, the strategy script).
func New(g *wordgraph.Graph, nodes *node.Manager, q *coincidence.Queue, pres *presentation.Presentation, kind presentation.Kind, genPairs presentation.GeneratingPairs, buf *definition.Buffer, params Params) *Engine {
	return &Engine{
		g: g, nodes: nodes, q: q, pres: pres, kind: kind, genPairs: genPairs, buf: buf,
		params:        params,
		cursor:        node.UNDEFINED,
		lookaheadNext: params.Tuning.Next,
	}
}

// InitialRun pushes every generating pair and every relation through
// HLT at node 0 (hlt.Engine.TraceAt on the root, for either kind)
// before the main loop, with definition registration enabled iff save
// or the strategy is felsch (spec.md §4.8 "Initial-run policy").
func (e *Engine) InitialRun() error {
	save := e.params.Save || e.params.Kind == Felsch
	h := hlt.New(e.g, e.nodes, e.q, e.pres, hlt.Options{
		Kind: e.kind, GeneratingPairs: e.genPairs, Save: save, Buf: e.buf,
	})
	return e.timePhase(report.PhaseHLT, func() error {
		return h.TraceAt(node.Root)
	})
}

// Run executes the configured script until it naturally finishes
// (every engine exhausted, no pending work) or ctx is cancelled.
func (e *Engine) Run(ctx context.Context) (finished bool, err error) {
	switch e.params.Kind {
	case Felsch:
		return e.runFelschScript(ctx)
	case CR:
		return e.runCR(ctx)
	case Rc:
		return e.runRc(ctx)
	case Cr:
		return e.runCr(ctx)
	case ROverC:
		return e.runROverC(ctx)
	default:
		return e.runHLTScript(ctx)
	}
}

func (e *Engine) shouldInterrupt() bool {
	return hlt.InterruptCheck(e.nodes, e.lookaheadNext, e.buf.AnySkipped())
}

// runLookahead runs one lookahead pass and folds the result back into
// the adaptive lookaheadNext threshold (spec.md §4.7).
func (e *Engine) runLookahead(ctx context.Context, extent Extent) error {
	return e.timePhase(report.PhaseLookahead, func() error {
		res, err := lookahead.Run(ctx, e.g, e.nodes, e.q, e.pres, e.cursor, lookahead.Options{
			Style:           e.params.LookaheadStyle,
			Extent:          extent,
			Kind:            e.kind,
			GeneratingPairs: e.genPairs,
			Tuning:          lookahead.Tuning{Next: e.lookaheadNext, Min: e.params.Tuning.Min, GrowthFactor: e.params.Tuning.GrowthFactor, GrowthThreshold: e.params.Tuning.GrowthThreshold, StopEarlyRatio: e.params.Tuning.StopEarlyRatio, StopEarlyInterval: e.params.Tuning.StopEarlyInterval},
		})
		if err != nil {
			return err
		}
		e.lookaheadNext = res.NextThreshold
		e.buf.ResetSkipped()
		return nil
	})
}

// runHLTScript loops HLT until the cursor exhausts the active nodes,
// interrupting for lookaheads on growth signals (spec.md §4.8 "hlt").
func (e *Engine) runHLTScript(ctx context.Context) (bool, error) {
	h := hlt.New(e.g, e.nodes, e.q, e.pres, hlt.Options{
		Kind: e.kind, GeneratingPairs: e.genPairs, Save: e.params.Save, Buf: e.buf,
	})
	for {
		var cursor int
		var exhausted bool
		err := e.timePhase(report.PhaseHLT, func() error {
			var innerErr error
			cursor, exhausted, innerErr = h.Run(ctx, e.cursor, e.shouldInterrupt)
			return innerErr
		})
		e.cursor = cursor
		if err != nil {
			return false, err
		}
		if exhausted {
			return true, nil
		}
		if err := e.runLookahead(ctx, e.params.LookaheadExtent); err != nil {
			return false, err
		}
	}
}

// runFelschScript drains the DefinitionBuffer to exhaustion via the
// Felsch engine (spec.md §4.8 "felsch"); Felsch never allocates nodes,
// so there is no cursor to exhaust beyond the buffer/queue pair.
func (e *Engine) runFelschScript(ctx context.Context) (bool, error) {
	if e.params.UseRelationsInExtra {
		for _, u := range e.nodes.ActiveIDs() {
			for gen := 0; gen < e.g.Alphabet(); gen++ {
				e.buf.Emplace(definition.Definition{Source: u, Label: gen})
			}
		}
	}
	err := e.timePhase(report.PhaseFelsch, func() error {
		return felsch.Drain(e.g, e.nodes, e.q, e.pres, e.buf, felsch.Options{
			Kind: e.kind, GeneratingPairs: e.genPairs, AllowPreferredDefinitions: true,
		})
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// runHLTBudgeted runs HLT until edgesBudget new edges have been
// defined or the active set is exhausted.
func (e *Engine) runHLTBudgeted(ctx context.Context, edgesBudget int) error {
	if edgesBudget <= 0 {
		return nil
	}
	start := e.g.EdgeCount()
	h := hlt.New(e.g, e.nodes, e.q, e.pres, hlt.Options{
		Kind: e.kind, GeneratingPairs: e.genPairs, Save: e.params.Save, Buf: e.buf,
	})
	return e.timePhase(report.PhaseHLT, func() error {
		cursor, _, err := h.Run(ctx, e.cursor, func() bool {
			return e.g.EdgeCount()-start >= edgesBudget
		})
		e.cursor = cursor
		return err
	})
}

// runFelschBudgeted runs Felsch until edgesBudget new edges have been
// defined or buf/q are exhausted.
func (e *Engine) runFelschBudgeted(ctx context.Context, edgesBudget int) error {
	if edgesBudget <= 0 {
		return nil
	}
	start := e.g.EdgeCount()
	return e.timePhase(report.PhaseFelsch, func() error {
		return felsch.DrainInterruptible(e.g, e.nodes, e.q, e.pres, e.buf, felsch.Options{
			Kind: e.kind, GeneratingPairs: e.genPairs, AllowPreferredDefinitions: true,
		}, func() bool {
			return e.g.EdgeCount()-start >= edgesBudget
		})
	})
}

func (e *Engine) ruleCount() int {
	n := len(e.pres.Rules)
	if n == 0 {
		n = 1
	}
	return n
}

// runCR alternates budgeted Felsch and HLT phases until both report no
// further progress, then concludes with a full HLT lookahead
// (spec.md §4.8 "CR").
func (e *Engine) runCR(ctx context.Context) (bool, error) {
	for {
		before := e.g.EdgeCount()
		if err := e.runFelschBudgeted(ctx, e.params.FDefs); err != nil {
			return false, err
		}
		if err := e.runHLTBudgeted(ctx, e.params.HLTDefs/e.ruleCount()); err != nil {
			return false, err
		}
		if e.g.EdgeCount() == before {
			break
		}
	}
	if err := e.runLookahead(ctx, FullExtent); err != nil {
		return false, err
	}
	return true, nil
}

// runROverC runs HLT until active >= lookahead_next, a full HLT
// lookahead with early-stop, then CR (spec.md §4.8 "R_over_C").
func (e *Engine) runROverC(ctx context.Context) (bool, error) {
	h := hlt.New(e.g, e.nodes, e.q, e.pres, hlt.Options{
		Kind: e.kind, GeneratingPairs: e.genPairs, Save: e.params.Save, Buf: e.buf,
	})
	err := e.timePhase(report.PhaseHLT, func() error {
		cursor, _, innerErr := h.Run(ctx, e.cursor, func() bool {
			return e.nodes.ActiveCount() >= e.lookaheadNext
		})
		e.cursor = cursor
		return innerErr
	})
	if err != nil {
		return false, err
	}
	if err := e.runLookahead(ctx, FullExtent); err != nil {
		return false, err
	}
	return e.runCR(ctx)
}

// runCr runs Felsch(+f_defs), HLT(+hlt_defs/|R|), Felsch to
// completion, then a full HLT lookahead (spec.md §4.8 "Cr").
func (e *Engine) runCr(ctx context.Context) (bool, error) {
	if err := e.runFelschBudgeted(ctx, e.params.FDefs); err != nil {
		return false, err
	}
	if err := e.runHLTBudgeted(ctx, e.params.HLTDefs/e.ruleCount()); err != nil {
		return false, err
	}
	err := e.timePhase(report.PhaseFelsch, func() error {
		return felsch.Drain(e.g, e.nodes, e.q, e.pres, e.buf, felsch.Options{
			Kind: e.kind, GeneratingPairs: e.genPairs, AllowPreferredDefinitions: true,
		})
	})
	if err != nil {
		return false, err
	}
	if err := e.runLookahead(ctx, FullExtent); err != nil {
		return false, err
	}
	return true, nil
}

// runRc runs HLT(+hlt_defs/(|R|+1)), Felsch(+f_defs), HLT to
// completion, then a full HLT lookahead (spec.md §4.8 "Rc").
func (e *Engine) runRc(ctx context.Context) (bool, error) {
	if err := e.runHLTBudgeted(ctx, e.params.HLTDefs/(e.ruleCount()+1)); err != nil {
		return false, err
	}
	if err := e.runFelschBudgeted(ctx, e.params.FDefs); err != nil {
		return false, err
	}
	finished, err := e.runHLTScript(ctx)
	if err != nil {
		return false, err
	}
	if !finished {
		return false, nil
	}
	if err := e.runLookahead(ctx, FullExtent); err != nil {
		return false, err
	}
	return true, nil
}

// Cursor returns the current HLT run cursor, for callers that want to
// inspect enumeration progress between Run calls.
func (e *Engine) Cursor() int { return e.cursor }
