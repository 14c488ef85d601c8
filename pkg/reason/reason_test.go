package reason

import (
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/cognicore/reason/pkg/reason/config"
	"github.com/cognicore/reason/pkg/reason/kb"
	"github.com/cognicore/reason/pkg/reason/parse"
)

func mustItem(t *testing.T, line string) kb.Item {
	t.Helper()
	item, err := parse.ParseItem(line)
	require.NoError(t, err)
	return item
}

func ask(t *testing.T, r *Reasoner, query string) kb.Answers {
	t.Helper()
	q, err := parse.ParseQuery(query)
	require.NoError(t, err)
	answers, err := r.Ask(q)
	require.NoError(t, err)
	return answers
}

func loadBlocks(t *testing.T) *Reasoner {
	t.Helper()
	comp, err := (&config.Loader{
		ConfigPath: "../../testdata/config.yaml",
		KBPath:     "../../testdata/blocks.kb",
	}).Load()
	require.NoError(t, err)
	return FromComponents(comp, Options{Registerer: prometheus.NewRegistry()})
}

func TestBlocksWorld(t *testing.T) {
	r := loadBlocks(t)

	above := ask(t, r, "(above ?x ?y)")
	got := make([]string, len(above))
	for i, a := range above {
		got[i] = a.Facts[0].Statement().Key()
	}
	assert.ElementsMatch(t, []string{
		"(above cube table)",
		"(above pyramid cube)",
		"(above sphere box)",
		"(above pyramid table)",
	}, got)

	covered := ask(t, r, "(covered ?b)")
	require.Len(t, covered, 1)
	assert.Equal(t, "?b : cube", covered[0].Bindings.String())

	assert.Len(t, ask(t, r, "(support table)"), 1)
	assert.Empty(t, ask(t, r, "(covered box)"))
}

func TestBlocksWorldRetract(t *testing.T) {
	r := loadBlocks(t)

	require.NoError(t, r.Retract(mustItem(t, "fact: (on cube table)")))

	assert.Empty(t, ask(t, r, "(above cube table)"))
	assert.Empty(t, ask(t, r, "(above pyramid table)"))
	// still justified by (on pyramid cube)
	assert.Len(t, ask(t, r, "(above pyramid cube)"), 1)
	assert.Len(t, ask(t, r, "(covered cube)"), 1)

	require.NoError(t, r.Retract(mustItem(t, "fact: (on pyramid cube)")))
	assert.Empty(t, ask(t, r, "(covered ?x)"))
}

func TestFromComponentsUsesConfigDepth(t *testing.T) {
	comp := &config.Components{
		Config: &config.Config{MaxDepth: 1},
		Items: []kb.Item{
			mustItem(t, "rule: ((p0 ?x)) -> (p1 ?x)"),
			mustItem(t, "rule: ((p1 ?x)) -> (p2 ?x)"),
			mustItem(t, "fact: (p0 a)"),
		},
	}
	r := FromComponents(comp, Options{})

	assert.Len(t, ask(t, r, "(p1 a)"), 1)
	assert.Empty(t, ask(t, r, "(p2 a)"))
}

func TestExplainThroughFacade(t *testing.T) {
	r := New(Options{})
	r.Assert(mustItem(t, "rule: ((human ?x)) -> (mortal ?x)"))
	r.Assert(mustItem(t, "fact: (human socrates)"))

	out, err := r.Explain(mustItem(t, "fact: (mortal socrates)"))
	require.NoError(t, err)
	assert.Contains(t, out, "fact: (human socrates)")
	assert.Contains(t, out, "rule: ((human ?x)) -> (mortal ?x)")
}

func TestMetricsRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(Options{Registerer: reg})
	r.Assert(mustItem(t, "fact: (p a)"))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.Metrics().Asserted.WithLabelValues("fact")))
	n, err := testutil.GatherAndCount(reg, "reason_asserted_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestConcurrentCallsAreSerialized(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := New(Options{})
	r.Assert(mustItem(t, "rule: ((p ?x)) -> (q ?x)"))

	items := make([]kb.Item, 20)
	for i := range items {
		items[i] = mustItem(t, fmt.Sprintf("fact: (p n%d)", i))
	}

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item kb.Item) {
			defer wg.Done()
			r.Assert(item)
			if i%2 == 0 {
				_ = r.Retract(item)
			}
		}(i, item)
	}
	wg.Wait()

	assert.Len(t, ask(t, r, "(q ?x)"), 10)
	assert.Len(t, ask(t, r, "(p ?x)"), 10)
}

func TestReturnedItemsAreSnapshots(t *testing.T) {
	r := New(Options{})
	r.Assert(mustItem(t, "rule: ((p ?x)) -> (q ?x)"))
	r.Assert(mustItem(t, "fact: (p a)"))
	r.Assert(mustItem(t, "fact: (q a)"))

	before, ok := r.Lookup(mustItem(t, "fact: (q a)"))
	require.True(t, ok)
	answers := ask(t, r, "(q ?x)")
	require.Len(t, answers, 1)

	require.NoError(t, r.Retract(mustItem(t, "fact: (q a)")))

	// earlier results keep the state they were taken in
	assert.True(t, before.Asserted())
	assert.Len(t, before.SupportedBy(), 1)
	assert.True(t, answers[0].Facts[0].Asserted())

	after, ok := r.Lookup(mustItem(t, "fact: (q a)"))
	require.True(t, ok)
	assert.False(t, after.Asserted())
	assert.Equal(t, before.ID(), after.ID())
}
