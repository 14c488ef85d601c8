// Package inference implements single-step forward chaining over a
// knowledge base. Repeated steps up to the fixpoint are driven by kb.Add.
package inference

import (
	"go.uber.org/zap"

	"github.com/cognicore/reason/pkg/reason/kb"
	"github.com/cognicore/reason/pkg/reason/logic"
)

// Engine is a stateless forward-chaining step
type Engine struct {
	logger *zap.Logger
}

// New creates an engine. A nil logger disables logging.
func New(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Infer matches fact against the first LHS conjunct of rule.
// A one-conjunct rule yields a fact from its RHS; a longer rule yields a new
// rule over the remaining conjuncts. Only the head conjunct is ever tried.
//
// Rule variables that also occur in fact are renamed first, so a rule
// variable left unbound by the match cannot be captured by a fact variable.
func (e *Engine) Infer(fact *kb.Fact, rule *kb.Rule, store *kb.KnowledgeBase) {
	lhs := rule.LHS()
	if len(lhs) == 0 {
		return
	}
	rhs := rule.RHS()
	if renames := logic.RenameApart(append(lhs, rhs), fact.Statement()); len(renames) > 0 {
		lhs = logic.InstantiateAll(lhs, renames)
		rhs = logic.Instantiate(rhs, renames)
	}
	e.logger.Debug("Attempting to infer",
		zap.Stringer("fact", fact.Statement()),
		zap.Stringer("rule", rule))

	bindings, ok := logic.Match(lhs[0], fact.Statement())
	if !ok {
		return
	}
	rhs = logic.Instantiate(rhs, bindings)

	if len(lhs) == 1 {
		derived := store.Add(kb.DerivedFact(rhs, rule, fact))
		store.RecordSupport(rule, fact, derived)
		e.logger.Debug("Derived fact", zap.Stringer("fact", derived))
		return
	}

	rest := logic.InstantiateAll(lhs[1:], bindings)
	derived := store.Add(kb.DerivedRule(rest, rhs, rule, fact))
	store.RecordSupport(rule, fact, derived)
	e.logger.Debug("Derived rule", zap.Stringer("rule", derived))
}
