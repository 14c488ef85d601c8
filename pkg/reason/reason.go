package reason

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/cognicore/reason/pkg/reason/config"
	"github.com/cognicore/reason/pkg/reason/inference"
	"github.com/cognicore/reason/pkg/reason/kb"
	"github.com/cognicore/reason/pkg/reason/metrics"
)

// Reasoner is the facade over a knowledge base and its forward-chaining
// engine. Unlike kb.KnowledgeBase it is safe for concurrent use: every call
// holds the lock for the whole cascade of inference or retraction. Items it
// returns are snapshots taken under the lock and do not track later changes.
type Reasoner struct {
	mu      sync.Mutex
	kb      *kb.KnowledgeBase
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// Options configures a Reasoner
type Options struct {
	Logger *zap.Logger
	// Registerer receives the reasoner's counters; nil skips registration
	Registerer prometheus.Registerer
	// MaxDepth is passed to kb.Options; see there for what happens past it
	MaxDepth int
}

// New creates an empty Reasoner
func New(opts Options) *Reasoner {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := metrics.New(opts.Registerer)
	return &Reasoner{
		kb: kb.New(kb.Options{
			Engine:   inference.New(logger.Named("inference")),
			Logger:   logger.Named("kb"),
			Metrics:  m,
			MaxDepth: opts.MaxDepth,
		}),
		metrics: m,
		logger:  logger,
	}
}

// FromComponents builds a Reasoner and asserts the loaded items.
// The config's max_depth applies unless opts sets one.
func FromComponents(comp *config.Components, opts Options) *Reasoner {
	if opts.MaxDepth == 0 && comp.Config != nil {
		opts.MaxDepth = comp.Config.MaxDepth
	}
	r := New(opts)
	r.Load(comp.Items)
	return r
}

// Load asserts items in order
func (r *Reasoner) Load(items []kb.Item) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range items {
		r.kb.Assert(item)
	}
	r.logger.Info("Loaded knowledge base",
		zap.Int("items", len(items)),
		zap.Int("stored", r.kb.Len()))
}

// Assert adds a user assertion and runs inference to the fixpoint. It returns
// a snapshot of the stored item.
func (r *Reasoner) Assert(item kb.Item) kb.Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	return kb.Snapshot(r.kb.Assert(item))
}

// Retract withdraws an assertion and everything that depended only on it
func (r *Reasoner) Retract(item kb.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.kb.Retract(item)
}

// Ask returns every stored fact matching q. Matched facts are snapshots.
func (r *Reasoner) Ask(q kb.Query) (kb.Answers, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	answers, err := r.kb.Ask(q)
	for i := range answers {
		for j, f := range answers[i].Facts {
			answers[i].Facts[j] = kb.Snapshot(f).(*kb.Fact)
		}
	}
	return answers, err
}

// Explain renders the justification tree of an item
func (r *Reasoner) Explain(item kb.Item) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.kb.Explain(item)
}

// Lookup returns a snapshot of the stored item equal to item
func (r *Reasoner) Lookup(item kb.Item) (kb.Item, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.kb.Lookup(item)
	if !ok {
		return nil, false
	}
	return kb.Snapshot(stored), true
}

// Metrics returns the reasoner's counters
func (r *Reasoner) Metrics() *metrics.Metrics {
	return r.metrics
}

func (r *Reasoner) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.kb.String()
}
