// Package parse reads facts, rules and queries from text.
//
// Syntax:
//
//	fact: (on a b)
//	rule: ((on ?x ?y) (block ?y)) -> (covered ?y)
//	(on ?x b)          query
//	not (on ?x b)      negated query, rejected by Ask
//
// Lines starting with # are comments in KB files.
package parse

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/participle/v2"

	"github.com/cognicore/reason/pkg/reason/internalerr"
	"github.com/cognicore/reason/pkg/reason/kb"
	"github.com/cognicore/reason/pkg/reason/logic"
)

type itemAST struct {
	Fact *statementAST `  "fact" ":" @@`
	Rule *ruleAST      `| "rule" ":" @@`
}

type ruleAST struct {
	LHS []*statementAST `"(" @@+ ")" "-" ">"`
	RHS *statementAST   `@@`
}

type statementAST struct {
	Predicate string     `"(" @Ident`
	Args      []*termAST `@@* ")"`
}

type termAST struct {
	Var   *string `  "?" @Ident`
	Const *string `| @(Ident | Int)`
}

type queryAST struct {
	Negated   bool          `@"not"?`
	Statement *statementAST `@@`
}

var (
	itemParser  = participle.MustBuild(&itemAST{})
	queryParser = participle.MustBuild(&queryAST{})
)

func (s *statementAST) statement() logic.Statement {
	args := make([]logic.Term, len(s.Args))
	for i, a := range s.Args {
		if a.Var != nil {
			args[i] = logic.Var(*a.Var)
		} else {
			args[i] = logic.Const(*a.Const)
		}
	}
	return logic.NewStatement(s.Predicate, args...)
}

// ParseItem parses a "fact:" or "rule:" line into an asserted item
func ParseItem(line string) (kb.Item, error) {
	var ast itemAST
	if err := itemParser.ParseString("", strings.TrimSpace(line), &ast); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", internalerr.ErrParse, line, err)
	}
	if ast.Fact != nil {
		return kb.NewFact(ast.Fact.statement()), nil
	}

	lhs := make([]logic.Statement, len(ast.Rule.LHS))
	for i, s := range ast.Rule.LHS {
		lhs[i] = s.statement()
	}
	return kb.NewRule(lhs, ast.Rule.RHS.statement()), nil
}

// ParseFact parses a "fact:" line
func ParseFact(line string) (*kb.Fact, error) {
	item, err := ParseItem(line)
	if err != nil {
		return nil, err
	}
	f, ok := item.(*kb.Fact)
	if !ok {
		return nil, fmt.Errorf("%w: expected fact, got %q", internalerr.ErrParse, line)
	}
	return f, nil
}

// ParseRule parses a "rule:" line
func ParseRule(line string) (*kb.Rule, error) {
	item, err := ParseItem(line)
	if err != nil {
		return nil, err
	}
	r, ok := item.(*kb.Rule)
	if !ok {
		return nil, fmt.Errorf("%w: expected rule, got %q", internalerr.ErrParse, line)
	}
	return r, nil
}

// ParseQuery parses "(pred args...)" or "not (pred args...)"
func ParseQuery(line string) (kb.Query, error) {
	var ast queryAST
	if err := queryParser.ParseString("", strings.TrimSpace(line), &ast); err != nil {
		return kb.Query{}, fmt.Errorf("%w: %q: %v", internalerr.ErrParse, line, err)
	}
	return kb.Query{Statement: ast.Statement.statement(), Negated: ast.Negated}, nil
}

// ParseStatement parses a bare "(pred args...)"
func ParseStatement(s string) (logic.Statement, error) {
	q, err := ParseQuery(s)
	if err != nil {
		return logic.Statement{}, err
	}
	if q.Negated {
		return logic.Statement{}, fmt.Errorf("%w: unexpected not in %q", internalerr.ErrParse, s)
	}
	return q.Statement, nil
}

// ParseKB reads one item per line, skipping blank lines and # comments.
// Items come back in file order.
func ParseKB(r io.Reader) ([]kb.Item, error) {
	scanner := bufio.NewScanner(r)
	lineNum := 0
	var items []kb.Item

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		item, err := ParseItem(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		items = append(items, item)
	}

	return items, scanner.Err()
}
