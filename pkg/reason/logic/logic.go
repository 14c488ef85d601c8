// Package logic holds the term language shared by the knowledge base and the
// inference engine: terms, statements, substitutions, and the two pattern
// primitives Match and Instantiate.
package logic

import (
	"fmt"
	"sort"
	"strings"
)

// Term is a constant or a variable
type Term struct {
	Name  string
	IsVar bool
}

// Var returns a variable term
func Var(name string) Term {
	return Term{Name: name, IsVar: true}
}

// Const returns a constant term
func Const(name string) Term {
	return Term{Name: name}
}

func (t Term) String() string {
	if t.IsVar {
		return "?" + t.Name
	}
	return t.Name
}

// Statement is a predicate applied to an ordered list of terms
// Example: (on ?x table)
type Statement struct {
	Predicate string
	Args      []Term
}

// NewStatement builds a statement
func NewStatement(predicate string, args ...Term) Statement {
	return Statement{Predicate: predicate, Args: args}
}

// Key is the canonical rendering used for structural equality.
// Variables compare by name, so (p ?x) and (p ?y) are different keys.
func (s Statement) Key() string {
	var b strings.Builder
	b.WriteString("(")
	b.WriteString(s.Predicate)
	for _, a := range s.Args {
		b.WriteString(" ")
		b.WriteString(a.String())
	}
	b.WriteString(")")
	return b.String()
}

func (s Statement) String() string { return s.Key() }

// Equal reports syntactic equality
func (s Statement) Equal(other Statement) bool {
	if s.Predicate != other.Predicate || len(s.Args) != len(other.Args) {
		return false
	}
	for i := range s.Args {
		if s.Args[i] != other.Args[i] {
			return false
		}
	}
	return true
}

// IsGround reports whether the statement contains no variables
func (s Statement) IsGround() bool {
	for _, a := range s.Args {
		if a.IsVar {
			return false
		}
	}
	return true
}

// Substitution maps variable names to terms
type Substitution map[string]Term

// Copy returns an independent copy
func (s Substitution) Copy() Substitution {
	out := make(Substitution, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Resolve returns the term bound to variable t, or t itself when t is a
// constant or unbound. It substitutes one step: a variable bound to another
// variable resolves to that variable.
func (s Substitution) Resolve(t Term) Term {
	if !t.IsVar {
		return t
	}
	if bound, ok := s[t.Name]; ok {
		return bound
	}
	return t
}

// String renders bindings sorted by variable name: "?x : a, ?y : b"
func (s Substitution) String() string {
	names := make([]string, 0, len(s))
	for k := range s {
		names = append(names, k)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = "?" + n + " : " + s[n].String()
	}
	return strings.Join(parts, ", ")
}

// Match binds the variables of pattern to the terms of candidate.
//
// Matching is one-way. Variables in candidate are opaque terms: a pattern
// constant only matches the identical constant, and a pattern variable binds
// to whatever term sits in candidate, variable or not. Pattern and candidate
// variables that share a name never interfere.
func Match(pattern, candidate Statement) (Substitution, bool) {
	return MatchWith(pattern, candidate, make(Substitution))
}

// MatchWith is Match starting from existing bindings. The input substitution is
// never modified.
func MatchWith(pattern, candidate Statement, s Substitution) (Substitution, bool) {
	if pattern.Predicate != candidate.Predicate || len(pattern.Args) != len(candidate.Args) {
		return nil, false
	}
	current := s
	var ok bool
	for i := range pattern.Args {
		current, ok = bind(pattern.Args[i], candidate.Args[i], current)
		if !ok {
			return nil, false
		}
	}
	if current == nil {
		current = make(Substitution)
	}
	return current, true
}

func bind(p, c Term, s Substitution) (Substitution, bool) {
	if !p.IsVar {
		return s, p == c
	}
	if bound, ok := s[p.Name]; ok {
		return s, bound == c
	}
	out := s.Copy()
	out[p.Name] = c
	return out, true
}

// Instantiate replaces bound variables in stmt with their terms. Unbound
// variables stay as they are.
func Instantiate(stmt Statement, s Substitution) Statement {
	args := make([]Term, len(stmt.Args))
	for i, a := range stmt.Args {
		args[i] = s.Resolve(a)
	}
	return Statement{Predicate: stmt.Predicate, Args: args}
}

// InstantiateAll applies Instantiate to each statement
func InstantiateAll(stmts []Statement, s Substitution) []Statement {
	out := make([]Statement, len(stmts))
	for i, st := range stmts {
		out[i] = Instantiate(st, s)
	}
	return out
}

// Vars returns the variable names of stmt in order of first occurrence
func (s Statement) Vars() []string {
	var names []string
	seen := make(map[string]bool)
	for _, a := range s.Args {
		if a.IsVar && !seen[a.Name] {
			seen[a.Name] = true
			names = append(names, a.Name)
		}
	}
	return names
}

// RenameApart maps every variable of stmts that also occurs in other to a
// fresh variable occurring in neither. Applying the result with
// InstantiateAll standardizes stmts apart from other.
func RenameApart(stmts []Statement, other Statement) Substitution {
	clash := make(map[string]bool)
	for _, v := range other.Vars() {
		clash[v] = true
	}
	used := make(map[string]bool)
	for v := range clash {
		used[v] = true
	}
	for _, st := range stmts {
		for _, v := range st.Vars() {
			used[v] = true
		}
	}

	renames := make(Substitution)
	for _, st := range stmts {
		for _, v := range st.Vars() {
			if !clash[v] {
				continue
			}
			if _, done := renames[v]; done {
				continue
			}
			fresh := v
			for i := 1; used[fresh]; i++ {
				fresh = fmt.Sprintf("%s%d", v, i)
			}
			used[fresh] = true
			renames[v] = Var(fresh)
		}
	}
	return renames
}
