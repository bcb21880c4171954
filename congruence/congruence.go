// Package congruence exposes the Controller of spec.md §4.10: the
// single public facade over the whole coset enumeration engine.
//
// Policy (grounded on core/api.go's thin-facade convention):
//   - No algorithms live here; every method delegates to node/
//     wordgraph/coincidence/definition/felsch/hlt/lookahead/strategy/
//     standardize/report.
//   - Every exported method documents its complexity and its error
//     taxonomy membership (spec.md §7).
package congruence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/latticeforge/coset/coincidence"
	"github.com/latticeforge/coset/definition"
	"github.com/latticeforge/coset/lookahead"
	"github.com/latticeforge/coset/node"
	"github.com/latticeforge/coset/presentation"
	"github.com/latticeforge/coset/report"
	"github.com/latticeforge/coset/standardize"
	"github.com/latticeforge/coset/strategy"
	"github.com/latticeforge/coset/wordgraph"
)

// Infinite is the positive-infinity sentinel NumberOfClasses returns
// for an obviously infinite presentation (spec.md §4.10).
const Infinite = -1

// ErrorKind taxonomizes Controller failures (spec.md §7).
type ErrorKind int

const (
	InvalidInput ErrorKind = iota
	StrategyInapplicable
	WouldNotTerminate
	IncompatibleKind
	CapacityExceeded
	NotReconfigurable
)

// String renders the ErrorKind for diagnostics and log fields.
func (k ErrorKind) String() string {
	switch k {
	case InvalidInput:
		return "invalid_input"
	case StrategyInapplicable:
		return "strategy_inapplicable"
	case WouldNotTerminate:
		return "would_not_terminate"
	case IncompatibleKind:
		return "incompatible_kind"
	case CapacityExceeded:
		return "capacity_exceeded"
	case NotReconfigurable:
		return "not_reconfigurable"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error wraps an underlying cause with its taxonomy kind (spec.md §7).
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("congruence: %s: %v", e.Kind, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Settings bundles every tuning knob of spec.md §6.
type Settings struct {
	Strategy strategy.Kind
	Save     bool

	DefPolicy definition.Policy
	DefMax    int

	HLTDefs int
	FDefs   int

	LookaheadExtent Extent
	LookaheadStyle  lookahead.Style
	LookaheadNext   int
	LookaheadMin    int
	GrowthFactor    float64
	GrowthThreshold int
	StopEarlyRatio  float64
	StopEarlyWindow time.Duration

	LowerBound          int
	UseRelationsInExtra bool
	LargeCollapse       int

	ReportInterval time.Duration
	Sink           report.Sink
}

// Extent re-exports lookahead.Extent for callers configuring Settings
// without importing lookahead directly.
type Extent = lookahead.Extent

const (
	PartialExtent = lookahead.PartialExtent
	FullExtent    = lookahead.FullExtent
)

// DefaultSettings returns the conservative defaults used when an
// Option does not override them.
func DefaultSettings() Settings {
	return Settings{
		Strategy:        strategy.HLT,
		DefPolicy:       definition.Unlimited,
		LookaheadExtent: PartialExtent,
		LookaheadStyle:  lookahead.HLT,
		LookaheadNext:   2000,
		LookaheadMin:    1000,
		GrowthFactor:    2.0,
		GrowthThreshold: 4,
		StopEarlyRatio:  0,
		ReportInterval:  0,
		Sink:            report.NoopSink{},
	}
}

// Option mutates a Settings value under construction (the teacher's
// functional-options idiom: core.GraphOption, dijkstra.Option,
// tsp.Options).
type Option func(*Settings)

func WithStrategy(k strategy.Kind) Option    { return func(s *Settings) { s.Strategy = k } }
func WithSave(save bool) Option               { return func(s *Settings) { s.Save = save } }
func WithDefPolicy(p definition.Policy, max int) Option {
	return func(s *Settings) { s.DefPolicy = p; s.DefMax = max }
}
func WithBudgets(hltDefs, fDefs int) Option {
	return func(s *Settings) { s.HLTDefs = hltDefs; s.FDefs = fDefs }
}
func WithLookahead(extent Extent, style lookahead.Style, next, min int, factor float64, threshold int) Option {
	return func(s *Settings) {
		s.LookaheadExtent = extent
		s.LookaheadStyle = style
		s.LookaheadNext = next
		s.LookaheadMin = min
		s.GrowthFactor = factor
		s.GrowthThreshold = threshold
	}
}
func WithEarlyStop(ratio float64, window time.Duration) Option {
	return func(s *Settings) { s.StopEarlyRatio = ratio; s.StopEarlyWindow = window }
}
func WithLowerBound(n int) Option              { return func(s *Settings) { s.LowerBound = n } }
func WithUseRelationsInExtra(b bool) Option    { return func(s *Settings) { s.UseRelationsInExtra = b } }
func WithLargeCollapse(n int) Option           { return func(s *Settings) { s.LargeCollapse = n } }
func WithReporting(sink report.Sink, interval time.Duration) Option {
	return func(s *Settings) { s.Sink = sink; s.ReportInterval = interval }
}

// Controller is the public facade over one coset enumeration.
//
// Concurrency: Run/RunFor/RunUntil are not safe to call concurrently
// with each other or with settings mutation; read-only accessors
// (NumberOfClasses, WordToClass, ClassToNormalForm) are safe to call
// from another goroutine while a run is cancelled/paused, matching the
// "single-threaded cooperative within one enumeration" model of
// spec.md §5.
type Controller struct {
	kind     presentation.Kind
	pres     *presentation.Presentation
	genPairs presentation.GeneratingPairs
	settings Settings

	nodes *node.Manager
	graph *wordgraph.Graph
	queue *coincidence.Queue
	buf   *definition.Buffer
	eng   *strategy.Engine
	rep   *report.Reporter
	std   *standardize.Standardiser

	started  bool
	finished bool
}

// New validates pres and genPairs and constructs a Controller ready to
// Run. Returns an *Error with Kind InvalidInput on any structural
// violation (spec.md §7).
//
// Complexity: O(len(pres.Rules) + len(genPairs)) for validation,
// O(1) for the rest.
func New(kind presentation.Kind, pres *presentation.Presentation, genPairs presentation.GeneratingPairs, opts ...Option) (*Controller, error) {
	if err := pres.Validate(); err != nil {
		return nil, &Error{Kind: InvalidInput, Err: err}
	}
	if err := genPairs.Validate(pres); err != nil {
		return nil, &Error{Kind: InvalidInput, Err: err}
	}

	settings := DefaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}

	nodes := node.NewManager()
	graph := wordgraph.New(pres.Alphabet, nodes)
	queue := coincidence.New()
	queue.LargeCollapseThreshold = settings.LargeCollapse
	graph.SetOnCoincidence(queue.Push)
	buf := definition.New(settings.DefPolicy, settings.DefMax, nodes.IsActive)
	rep := report.New(settings.Sink, settings.ReportInterval)

	eng := strategy.New(graph, nodes, queue, pres, kind, genPairs, buf, strategy.Params{
		Kind:    settings.Strategy,
		Save:    settings.Save,
		HLTDefs: settings.HLTDefs,
		FDefs:   settings.FDefs,
		LookaheadExtent: settings.LookaheadExtent,
		LookaheadStyle:  settings.LookaheadStyle,
		Tuning: lookahead.Tuning{
			Next: settings.LookaheadNext, Min: settings.LookaheadMin,
			GrowthFactor: settings.GrowthFactor, GrowthThreshold: settings.GrowthThreshold,
			StopEarlyRatio: settings.StopEarlyRatio, StopEarlyInterval: settings.StopEarlyWindow,
		},
		UseRelationsInExtra: settings.UseRelationsInExtra,
	})
	eng.SetReporter(rep)

	return &Controller{
		kind: kind, pres: pres, genPairs: genPairs, settings: settings,
		nodes: nodes, graph: graph, queue: queue, buf: buf, eng: eng, rep: rep,
		std: standardize.New(),
	}, nil
}

// SetOption applies additional Options, rebuilding the not-yet-started
// engine so that they take effect. Fails with NotReconfigurable once
// Run has been called at least once (spec.md §4.10).
func (c *Controller) SetOption(opts ...Option) error {
	if c.started {
		return &Error{Kind: NotReconfigurable, Err: fmt.Errorf("cannot reconfigure after run has started")}
	}
	settings := c.settings
	for _, opt := range opts {
		opt(&settings)
	}
	fresh, err := New(c.kind, c.pres, c.genPairs, func(s *Settings) { *s = settings })
	if err != nil {
		return err
	}
	*c = *fresh
	return nil
}

// Run enumerates until finished or ctx is cancelled. Returns
// finished=false with a nil error on cancellation or deadline expiry —
// never the raw ctx.Err() — since cancellation is a normal return, not
// a failure; a re-entrant call resumes from where it left off (spec.md
// §7 cancellation policy, §8.5 "run_for(1ms) returns with
// finished=false").
//
// Fails with WouldNotTerminate if the presentation is obviously
// infinite and ctx carries no deadline; with a deadline, an obviously
// infinite presentation always yields finished=false. The
// StrategyInapplicable check (a pure hlt script with no rules, no
// generating pairs and no edges, so nothing for HLT to trace) is made
// only for presentations that are not obviously infinite; since every
// such empty presentation is obviously infinite, it gets the
// WouldNotTerminate / finished=false handling instead.
func (c *Controller) Run(ctx context.Context) (bool, error) {
	if c.pres.ObviouslyInfinite(c.genPairs) {
		if _, hasDeadline := ctx.Deadline(); !hasDeadline {
			return false, &Error{Kind: WouldNotTerminate, Err: fmt.Errorf("presentation is obviously infinite")}
		}
	} else if c.settings.Strategy == strategy.HLT && len(c.pres.Rules) == 0 && len(c.genPairs) == 0 && c.graph.EdgeCount() == 0 {
		return false, &Error{Kind: StrategyInapplicable, Err: fmt.Errorf("hlt strategy has nothing to trace")}
	}

	if !c.started {
		c.started = true
		if err := c.eng.InitialRun(); err != nil {
			return false, err
		}
	}

	c.rep.Start(ctx)
	defer c.rep.Stop()

	finished, err := c.eng.Run(ctx)
	c.rep.SetActive(c.nodes.ActiveCount())
	c.rep.SetEdges(c.graph.EdgeCount())
	c.rep.SetCursor(c.eng.Cursor())
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// Partial progress (the graph, node set, and cursor built so
			// far) is preserved on the Controller for a re-entrant Run.
			return false, nil
		}
		return false, err
	}
	if c.pres.ObviouslyInfinite(c.genPairs) {
		// The engine may exhaust the little graph it can build, but an
		// obviously infinite presentation is never completely enumerated.
		finished = false
	}
	c.finished = finished
	return finished, nil
}

// RunFor runs with a deadline of d from now, otherwise identical to
// Run (spec.md §4.10 "run_for").
func (c *Controller) RunFor(ctx context.Context, d time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return c.Run(ctx)
}

// RunUntil runs until pred reports true or ctx is cancelled (spec.md
// §4.10 "run_until"). pred is polled about once a millisecond on a
// separate goroutine; once it reports true, the run's context is
// cancelled and the engine stops at its next cancellation check, so
// pred must be safe to call concurrently with the run. Not supported with
// a composite strategy, since composite scripts don't expose a
// single-step cursor to poll between (spec.md §7
// StrategyInapplicable).
func (c *Controller) RunUntil(ctx context.Context, pred func() bool) (bool, error) {
	switch c.settings.Strategy {
	case strategy.HLT, strategy.Felsch:
	default:
		return false, &Error{Kind: StrategyInapplicable, Err: fmt.Errorf("run_until requires a non-composite strategy")}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for !pred() {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Millisecond):
			}
		}
		cancel()
	}()

	finished, err := c.Run(ctx)
	<-done
	if pred() {
		return finished, nil
	}
	return finished, err
}

// Finished reports whether the most recent Run/RunFor/RunUntil call
// completed the enumeration.
func (c *Controller) Finished() bool { return c.finished }

// NumberOfClasses returns active_count - (0 if ContainsEmptyWord else
// 1) once finished, or Infinite if the presentation is obviously
// infinite (spec.md §4.10).
func (c *Controller) NumberOfClasses() int {
	if c.pres.ObviouslyInfinite(c.genPairs) {
		return Infinite
	}
	n := c.nodes.ActiveCount()
	if !c.pres.ContainsEmptyWord {
		n--
	}
	return n
}

// WordToClass traces w from node 0 and returns the class (active node
// id) reached, or an error if w leaves the defined portion of the
// graph (spec.md §4.10 "word -> class id").
//
// Complexity: O(len(w)).
func (c *Controller) WordToClass(w presentation.Word) (int, error) {
	cur := node.Root
	for i, letter := range w {
		nxt := c.graph.Target(cur, letter)
		if nxt == wordgraph.UNDEFINED {
			return 0, fmt.Errorf("congruence: word undefined at letter %d (position %d)", letter, i)
		}
		cur = nxt
	}
	return c.queue.Representative(cur), nil
}

// ClassToNormalForm walks the spanning forest recorded by the most
// recent Standardise call from 0 to class, returning the word read
// along parent edges (spec.md §4.10 "normal form of class id").
// Callers must Standardise before calling this.
func (c *Controller) ClassToNormalForm(class int) (presentation.Word, error) {
	forest := c.std.Forest()
	if forest == nil {
		return nil, fmt.Errorf("congruence: Standardise has not been run yet")
	}
	var letters []int
	cur := class
	for {
		edge, ok := forest[cur]
		if !ok {
			return nil, fmt.Errorf("congruence: class %d not in spanning forest", class)
		}
		if edge.Parent == node.UNDEFINED {
			break
		}
		letters = append(letters, edge.Letter)
		cur = edge.Parent
	}
	// letters were collected leaf-to-root; reverse them into word.
	word := make(presentation.Word, len(letters))
	for i, l := range letters {
		word[len(letters)-1-i] = l
	}
	return word, nil
}

// Standardise relabels the active classes per order (spec.md §4.9),
// returning whether any relabelling took place.
func (c *Controller) Standardise(order standardize.Order) bool {
	return c.std.Apply(c.graph, order)
}

// CloneAs constructs a fresh Controller over the same presentation and
// generating pairs with a different Kind. Cloning a OneSided
// congruence into TwoSided is rejected with IncompatibleKind: a
// one-sided enumeration only ever enforced generating pairs at the
// root, so its partial graph does not satisfy the two-sided invariant
// (every relation holds at every node) and cannot be reused as a
// starting point.
func (c *Controller) CloneAs(kind presentation.Kind) (*Controller, error) {
	if c.kind == presentation.OneSided && kind == presentation.TwoSided {
		return nil, &Error{Kind: IncompatibleKind, Err: fmt.Errorf("cannot widen a onesided congruence to twosided")}
	}
	return New(kind, c.pres, c.genPairs, func(s *Settings) { *s = c.settings })
}
