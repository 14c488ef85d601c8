package kb

import (
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/reason/pkg/reason/logic"
)

// Kind distinguishes facts from rules
type Kind string

const (
	KindFact Kind = "fact"
	KindRule Kind = "rule"
)

// Support is one justification for a derived item: the rule and fact that
// produced it.
type Support struct {
	Rule ulid.ULID
	Fact ulid.ULID
}

func (s Support) mentions(id ulid.ULID) bool {
	return s.Rule == id || s.Fact == id
}

// other returns the parent in s that is not id
func (s Support) other(id ulid.ULID) ulid.ULID {
	if s.Rule == id {
		return s.Fact
	}
	return s.Rule
}

// Item is implemented by *Fact and *Rule. Both take part in the support graph
// the same way.
type Item interface {
	ID() ulid.ULID
	Kind() Kind
	Key() string
	Asserted() bool
	SupportedBy() []Support
	SupportsFacts() []ulid.ULID
	SupportsRules() []ulid.ULID
	IsLive() bool
	String() string

	base() *node
}

// node is the support-graph record shared by facts and rules.
// Relations hold IDs, never pointers.
type node struct {
	id            ulid.ULID
	asserted      bool
	supportedBy   []Support
	supportsFacts []ulid.ULID
	supportsRules []ulid.ULID
}

func (n *node) ID() ulid.ULID  { return n.id }
func (n *node) Asserted() bool { return n.asserted }

// IsLive reports whether the item may stay in a knowledge base
func (n *node) IsLive() bool { return n.asserted || len(n.supportedBy) > 0 }

func (n *node) SupportedBy() []Support {
	return append([]Support(nil), n.supportedBy...)
}

func (n *node) SupportsFacts() []ulid.ULID {
	return append([]ulid.ULID(nil), n.supportsFacts...)
}

func (n *node) SupportsRules() []ulid.ULID {
	return append([]ulid.ULID(nil), n.supportsRules...)
}

func (n *node) base() *node { return n }

func (n *node) clone() node {
	return node{
		asserted:    n.asserted,
		supportedBy: append([]Support(nil), n.supportedBy...),
	}
}

func (n *node) snapshot() node {
	c := n.clone()
	c.id = n.id
	c.supportsFacts = append([]ulid.ULID(nil), n.supportsFacts...)
	c.supportsRules = append([]ulid.ULID(nil), n.supportsRules...)
	return c
}

// Snapshot returns a detached copy of item, including its ID and support
// edges. Later changes to the knowledge base do not affect the copy.
func Snapshot(item Item) Item {
	switch it := item.(type) {
	case *Fact:
		return &Fact{node: it.snapshot(), statement: it.statement}
	case *Rule:
		return &Rule{node: it.snapshot(), lhs: it.lhs, rhs: it.rhs}
	}
	return nil
}

func (n *node) addSupport(s Support) bool {
	for _, existing := range n.supportedBy {
		if existing == s {
			return false
		}
	}
	n.supportedBy = append(n.supportedBy, s)
	return true
}

// dropSupportFrom removes every edge naming id and returns the removed edges
func (n *node) dropSupportFrom(id ulid.ULID) []Support {
	var removed []Support
	kept := n.supportedBy[:0]
	for _, s := range n.supportedBy {
		if s.mentions(id) {
			removed = append(removed, s)
			continue
		}
		kept = append(kept, s)
	}
	n.supportedBy = kept
	return removed
}

func (n *node) supportedVia(parent ulid.ULID) bool {
	for _, s := range n.supportedBy {
		if s.mentions(parent) {
			return true
		}
	}
	return false
}

func addID(ids []ulid.ULID, id ulid.ULID) []ulid.ULID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func removeID(ids []ulid.ULID, id ulid.ULID) []ulid.ULID {
	for i, existing := range ids {
		if existing == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// Fact wraps a single statement
type Fact struct {
	node
	statement logic.Statement
}

// NewFact creates an asserted fact with no support
func NewFact(stmt logic.Statement) *Fact {
	return &Fact{node: node{asserted: true}, statement: stmt}
}

// DerivedFact creates a fact justified by rule and fact
func DerivedFact(stmt logic.Statement, rule *Rule, fact *Fact) *Fact {
	return &Fact{
		node:      node{supportedBy: []Support{{Rule: rule.ID(), Fact: fact.ID()}}},
		statement: stmt,
	}
}

func (f *Fact) Statement() logic.Statement { return f.statement }
func (f *Fact) Kind() Kind                 { return KindFact }
func (f *Fact) Key() string                { return f.statement.Key() }
func (f *Fact) String() string             { return "fact: " + f.statement.Key() }

// Rule is a Horn clause: every LHS conjunct implies RHS
type Rule struct {
	node
	lhs []logic.Statement
	rhs logic.Statement
}

// NewRule creates an asserted rule with no support
func NewRule(lhs []logic.Statement, rhs logic.Statement) *Rule {
	return &Rule{
		node: node{asserted: true},
		lhs:  append([]logic.Statement(nil), lhs...),
		rhs:  rhs,
	}
}

// DerivedRule creates a rule justified by rule and fact
func DerivedRule(lhs []logic.Statement, rhs logic.Statement, rule *Rule, fact *Fact) *Rule {
	return &Rule{
		node: node{supportedBy: []Support{{Rule: rule.ID(), Fact: fact.ID()}}},
		lhs:  append([]logic.Statement(nil), lhs...),
		rhs:  rhs,
	}
}

func (r *Rule) LHS() []logic.Statement { return append([]logic.Statement(nil), r.lhs...) }
func (r *Rule) RHS() logic.Statement   { return r.rhs }
func (r *Rule) Kind() Kind             { return KindRule }

func (r *Rule) Key() string {
	var b strings.Builder
	b.WriteString("(")
	for i, s := range r.lhs {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(s.Key())
	}
	b.WriteString(") -> ")
	b.WriteString(r.rhs.Key())
	return b.String()
}

func (r *Rule) String() string { return "rule: " + r.Key() }
