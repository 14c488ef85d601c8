package kb

import (
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/reason/pkg/reason/internalerr"
)

// Explain renders the justification tree of a stored item:
//
//	fact: (cleared b)
//	  SUPPORTED BY
//	    fact: (on a b)
//	      ASSERTED
//	    rule: ((on ?x ?y)) -> (cleared ?y)
//	      ASSERTED
func (kb *KnowledgeBase) Explain(item Item) (string, error) {
	stored, ok := kb.Lookup(item)
	if !ok {
		return "", fmt.Errorf("explain %s: %w", item, internalerr.ErrNotFound)
	}

	var b strings.Builder
	kb.explain(&b, stored, 0, make(map[ulid.ULID]bool))
	return b.String(), nil
}

func (kb *KnowledgeBase) explain(b *strings.Builder, it Item, depth int, onPath map[ulid.ULID]bool) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(b, "%s%s\n", indent, it)

	if onPath[it.ID()] {
		return
	}
	onPath[it.ID()] = true
	defer delete(onPath, it.ID())

	n := it.base()
	if n.asserted {
		fmt.Fprintf(b, "%s  ASSERTED\n", indent)
	}
	for _, s := range n.supportedBy {
		fmt.Fprintf(b, "%s  SUPPORTED BY\n", indent)
		for _, id := range []ulid.ULID{s.Fact, s.Rule} {
			if parent, ok := kb.byID(id); ok {
				kb.explain(b, parent, depth+2, onPath)
			}
		}
	}
}
