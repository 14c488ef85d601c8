// Package kb is the knowledge store: facts, rules, their support graph, and
// truth-maintaining retraction.
//
// A KnowledgeBase is not safe for concurrent use. Add and Retract both mutate
// the support graph transitively, so callers sharing one across goroutines
// must serialize whole calls.
package kb

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/cognicore/reason/pkg/reason/internalerr"
	"github.com/cognicore/reason/pkg/reason/logic"
	"github.com/cognicore/reason/pkg/reason/metrics"
)

// Inferrer attempts one forward-chaining step from a fact and a rule.
// Anything it derives goes back into store through Add.
type Inferrer interface {
	Infer(fact *Fact, rule *Rule, store *KnowledgeBase)
}

// Options configures a KnowledgeBase
type Options struct {
	Engine  Inferrer
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// MaxDepth bounds nested inference. Zero means unbounded.
	// An item inserted past the limit is stored but never chained against
	// the store, then or on any later call, so results past the limit stay
	// incomplete rather than delayed.
	MaxDepth int
}

// KnowledgeBase owns facts and rules, keyed by ULID
type KnowledgeBase struct {
	engine   Inferrer
	logger   *zap.Logger
	metrics  *metrics.Metrics
	maxDepth int
	depth    int
	entropy  *ulid.MonotonicEntropy

	facts     map[ulid.ULID]*Fact
	rules     map[ulid.ULID]*Rule
	factIndex map[string]ulid.ULID
	ruleIndex map[string]ulid.ULID
	factOrder []ulid.ULID
	ruleOrder []ulid.ULID
}

// New creates an empty knowledge base
func New(opts Options) *KnowledgeBase {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KnowledgeBase{
		engine:    opts.Engine,
		logger:    logger,
		metrics:   opts.Metrics,
		maxDepth:  opts.MaxDepth,
		entropy:   ulid.Monotonic(rand.Reader, 0),
		facts:     make(map[ulid.ULID]*Fact),
		rules:     make(map[ulid.ULID]*Rule),
		factIndex: make(map[string]ulid.ULID),
		ruleIndex: make(map[string]ulid.ULID),
	}
}

// Assert adds an item on behalf of the user
func (kb *KnowledgeBase) Assert(item Item) Item {
	kb.logger.Info("Asserting", zap.Stringer("item", item))
	kb.metrics.IncAsserted(string(item.Kind()))
	return kb.Add(item)
}

// Add inserts item, or merges it into an equal stored item, and returns the
// stored item. A new item is run against every stored item of the opposite
// kind until no more derivations succeed.
func (kb *KnowledgeBase) Add(item Item) Item {
	kb.logger.Debug("Adding", zap.Stringer("item", item))
	switch it := item.(type) {
	case *Fact:
		return kb.addFact(it)
	case *Rule:
		return kb.addRule(it)
	}
	return nil
}

func (kb *KnowledgeBase) addFact(f *Fact) *Fact {
	if id, ok := kb.factIndex[f.Key()]; ok {
		existing := kb.facts[id]
		kb.merge(existing, f)
		return existing
	}

	stored := &Fact{node: f.node.clone(), statement: f.statement}
	stored.id = kb.newID()
	kb.facts[stored.id] = stored
	kb.factIndex[stored.Key()] = stored.id
	kb.factOrder = append(kb.factOrder, stored.id)
	if len(stored.supportedBy) > 0 {
		kb.metrics.IncDerived(string(KindFact))
	}

	if kb.engine != nil && kb.enter(stored) {
		for _, id := range append([]ulid.ULID(nil), kb.ruleOrder...) {
			if r, ok := kb.rules[id]; ok {
				kb.engine.Infer(stored, r, kb)
			}
		}
		kb.leave()
	}
	return stored
}

func (kb *KnowledgeBase) addRule(r *Rule) *Rule {
	if id, ok := kb.ruleIndex[r.Key()]; ok {
		existing := kb.rules[id]
		kb.merge(existing, r)
		return existing
	}

	stored := &Rule{node: r.node.clone(), lhs: r.lhs, rhs: r.rhs}
	stored.id = kb.newID()
	kb.rules[stored.id] = stored
	kb.ruleIndex[stored.Key()] = stored.id
	kb.ruleOrder = append(kb.ruleOrder, stored.id)
	if len(stored.supportedBy) > 0 {
		kb.metrics.IncDerived(string(KindRule))
	}

	if kb.engine != nil && len(stored.lhs) > 0 && kb.enter(stored) {
		for _, id := range append([]ulid.ULID(nil), kb.factOrder...) {
			if f, ok := kb.facts[id]; ok {
				kb.engine.Infer(f, stored, kb)
			}
		}
		kb.leave()
	}
	return stored
}

// merge folds incoming into existing. Statement content is unchanged, so no
// inference is triggered.
func (kb *KnowledgeBase) merge(existing, incoming Item) {
	n, in := existing.base(), incoming.base()
	if len(in.supportedBy) > 0 {
		for _, s := range in.supportedBy {
			n.addSupport(s)
		}
	} else {
		n.asserted = true
	}
	kb.metrics.IncMerged(string(existing.Kind()))
	kb.logger.Debug("Merged into existing item",
		zap.Stringer("item", existing),
		zap.Bool("asserted", n.asserted),
		zap.Int("supports", len(n.supportedBy)))
}

func (kb *KnowledgeBase) enter(item Item) bool {
	if kb.maxDepth > 0 && kb.depth >= kb.maxDepth {
		kb.logger.Warn("Derivation depth limit reached, not chaining further",
			zap.Stringer("item", item),
			zap.Int("max_depth", kb.maxDepth))
		return false
	}
	kb.depth++
	return true
}

func (kb *KnowledgeBase) leave() { kb.depth-- }

func (kb *KnowledgeBase) newID() ulid.ULID {
	return ulid.MustNew(ulid.Now(), kb.entropy)
}

// RecordSupport registers child as supported by rule and fact
func (kb *KnowledgeBase) RecordSupport(rule *Rule, fact *Fact, child Item) {
	switch child.Kind() {
	case KindFact:
		rule.supportsFacts = addID(rule.supportsFacts, child.ID())
		fact.supportsFacts = addID(fact.supportsFacts, child.ID())
	case KindRule:
		rule.supportsRules = addID(rule.supportsRules, child.ID())
		fact.supportsRules = addID(fact.supportsRules, child.ID())
	}
}

// Query is what Ask accepts. Only positive queries are supported.
type Query struct {
	Statement logic.Statement
	Negated   bool
}

// Positive wraps stmt in a non-negated query
func Positive(stmt logic.Statement) Query {
	return Query{Statement: stmt}
}

func (q Query) String() string {
	if q.Negated {
		return "(not " + q.Statement.Key() + ")"
	}
	return q.Statement.Key()
}

// Answer is one successful match of a query
type Answer struct {
	Bindings logic.Substitution
	Facts    []*Fact
}

// Answers is the ordered result of Ask
type Answers []Answer

func (a Answers) String() string {
	lines := make([]string, len(a))
	for i, ans := range a {
		lines[i] = ans.Bindings.String()
	}
	return strings.Join(lines, "\n")
}

// Ask matches q against every stored fact in insertion order
func (kb *KnowledgeBase) Ask(q Query) (Answers, error) {
	kb.logger.Info("Asking", zap.Stringer("query", q))
	if q.Negated {
		kb.logger.Warn("Invalid ask", zap.Stringer("query", q))
		kb.metrics.IncQuery("invalid")
		return Answers{}, fmt.Errorf("ask %s: %w", q, internalerr.ErrInvalidQuery)
	}

	answers := Answers{}
	for _, id := range kb.factOrder {
		f := kb.facts[id]
		if s, ok := logic.Match(q.Statement, f.statement); ok {
			answers = append(answers, Answer{Bindings: s, Facts: []*Fact{f}})
		}
	}
	if len(answers) == 0 {
		kb.metrics.IncQuery("miss")
	} else {
		kb.metrics.IncQuery("hit")
	}
	return answers, nil
}

// Retract withdraws an assertion.
//
// An item that is asserted and also supported only loses its asserted flag.
// Otherwise the item is removed, and every dependent left with no support and
// no assertion is removed with it. Dependents with other support survive.
func (kb *KnowledgeBase) Retract(item Item) error {
	kb.logger.Info("Retracting", zap.Stringer("item", item))
	stored, ok := kb.Lookup(item)
	if !ok {
		kb.metrics.IncRetracted("missing")
		return fmt.Errorf("retract %s: %w", item, internalerr.ErrNotFound)
	}

	n := stored.base()
	if n.asserted && len(n.supportedBy) > 0 {
		n.asserted = false
		kb.metrics.IncRetracted("unasserted")
		kb.logger.Debug("Cleared assertion, item still supported",
			zap.Stringer("item", stored),
			zap.Int("supports", len(n.supportedBy)))
		return nil
	}

	kb.cascade(stored)
	kb.metrics.IncRetracted("removed")
	return nil
}

// cascade removes root and every item that loses its last justification
// because of it. It uses a worklist so long chains do not recurse.
func (kb *KnowledgeBase) cascade(root Item) {
	queue := []ulid.ULID{root.ID()}
	queued := map[ulid.ULID]bool{root.ID(): true}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		it, ok := kb.byID(id)
		if !ok {
			continue
		}
		n := it.base()
		dependents := append(n.SupportsFacts(), n.SupportsRules()...)
		for _, depID := range dependents {
			dep, ok := kb.byID(depID)
			if !ok {
				continue
			}
			dn := dep.base()
			for _, edge := range dn.dropSupportFrom(id) {
				parentID := edge.other(id)
				if parent, ok := kb.byID(parentID); ok && !dn.supportedVia(parentID) {
					unlink(parent.base(), dep)
				}
			}
			if !dn.IsLive() && !queued[depID] {
				queued[depID] = true
				queue = append(queue, depID)
				kb.logger.Debug("Lost all support, removing", zap.Stringer("item", dep))
			}
		}

		kb.remove(it)
		if id != root.ID() {
			kb.metrics.IncCascaded()
		}
	}
}

func unlink(parent *node, child Item) {
	if child.Kind() == KindFact {
		parent.supportsFacts = removeID(parent.supportsFacts, child.ID())
	} else {
		parent.supportsRules = removeID(parent.supportsRules, child.ID())
	}
}

// remove drops it from the store and from its remaining parents' lists
func (kb *KnowledgeBase) remove(it Item) {
	n := it.base()
	for _, s := range n.supportedBy {
		for _, parentID := range []ulid.ULID{s.Rule, s.Fact} {
			if parent, ok := kb.byID(parentID); ok {
				unlink(parent.base(), it)
			}
		}
	}

	switch v := it.(type) {
	case *Fact:
		delete(kb.facts, v.id)
		delete(kb.factIndex, v.Key())
		kb.factOrder = removeID(kb.factOrder, v.id)
	case *Rule:
		delete(kb.rules, v.id)
		delete(kb.ruleIndex, v.Key())
		kb.ruleOrder = removeID(kb.ruleOrder, v.id)
	}
	kb.logger.Debug("Removed", zap.Stringer("item", it))
}

// Lookup returns the stored item structurally equal to item
func (kb *KnowledgeBase) Lookup(item Item) (Item, bool) {
	switch item.Kind() {
	case KindFact:
		if id, ok := kb.factIndex[item.Key()]; ok {
			return kb.facts[id], true
		}
	case KindRule:
		if id, ok := kb.ruleIndex[item.Key()]; ok {
			return kb.rules[id], true
		}
	}
	return nil, false
}

// Get returns the stored item with the given ID
func (kb *KnowledgeBase) Get(id ulid.ULID) (Item, bool) {
	return kb.byID(id)
}

func (kb *KnowledgeBase) byID(id ulid.ULID) (Item, bool) {
	if f, ok := kb.facts[id]; ok {
		return f, true
	}
	if r, ok := kb.rules[id]; ok {
		return r, true
	}
	return nil, false
}

// Facts returns stored facts in insertion order
func (kb *KnowledgeBase) Facts() []*Fact {
	out := make([]*Fact, 0, len(kb.factOrder))
	for _, id := range kb.factOrder {
		out = append(out, kb.facts[id])
	}
	return out
}

// Rules returns stored rules in insertion order
func (kb *KnowledgeBase) Rules() []*Rule {
	out := make([]*Rule, 0, len(kb.ruleOrder))
	for _, id := range kb.ruleOrder {
		out = append(out, kb.rules[id])
	}
	return out
}

// Len returns the number of stored facts and rules
func (kb *KnowledgeBase) Len() int {
	return len(kb.facts) + len(kb.rules)
}

func (kb *KnowledgeBase) String() string {
	var b strings.Builder
	b.WriteString("Knowledge Base:\n")
	for _, f := range kb.Facts() {
		b.WriteString(f.String())
		b.WriteString("\n")
	}
	for _, r := range kb.Rules() {
		b.WriteString(r.String())
		b.WriteString("\n")
	}
	return b.String()
}
