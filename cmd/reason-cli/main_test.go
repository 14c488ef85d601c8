package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/cognicore/reason/pkg/reason"
)

func run(t *testing.T, r *reason.Reasoner, line string) string {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, execute(r, line, &out))
	return out.String()
}

func TestExecuteSession(t *testing.T) {
	r := reason.New(reason.Options{})

	assert.Equal(t, "asserted rule: ((on ?x ?y)) -> (above ?x ?y)\n",
		run(t, r, "assert rule: ((on ?x ?y)) -> (above ?x ?y)"))
	run(t, r, "assert fact: (on a b)")

	assert.Equal(t, "?x : a, ?y : b\t<- fact: (above a b)\n", run(t, r, "ask (above ?x ?y)"))
	assert.Equal(t, "yes\t<- fact: (above a b)\n", run(t, r, "ask (above a b)"))

	explained := run(t, r, "explain fact: (above a b)")
	assert.True(t, strings.HasPrefix(explained, "fact: (above a b)\n  SUPPORTED BY\n"))

	run(t, r, "assert fact: (above a b)")
	assert.Equal(t, "unasserted fact: (above a b) (still supported)\n", run(t, r, "retract fact: (above a b)"))
	assert.Equal(t, "retracted fact: (on a b)\n", run(t, r, "retract fact: (on a b)"))
	assert.Equal(t, "No match.\n", run(t, r, "ask (above ?x ?y)"))
}

func TestExecuteErrors(t *testing.T) {
	r := reason.New(reason.Options{})
	var out bytes.Buffer

	assert.Error(t, execute(r, "frobnicate", &out))
	assert.Error(t, execute(r, "assert fact: on a b", &out))
	assert.Error(t, execute(r, "ask not (on ?x ?y)", &out))
	assert.Error(t, execute(r, "retract fact: (missing)", &out))
	assert.Error(t, execute(r, "explain fact: (missing)", &out))
}

func TestREPL(t *testing.T) {
	r := reason.New(reason.Options{})
	in := strings.NewReader("assert fact: (p a)\n\nbogus\nask (p ?x)\n")
	var out bytes.Buffer

	require.NoError(t, repl(r, in, &out))
	assert.Contains(t, out.String(), "asserted fact: (p a)")
	assert.Contains(t, out.String(), `Error: unknown command "bogus"`)
	assert.Contains(t, out.String(), "?x : a\t<- fact: (p a)")
}

func TestNewLogger(t *testing.T) {
	l, err := newLogger("", false)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))

	l, err = newLogger("info", true)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	_, err = newLogger("chatty", false)
	assert.Error(t, err)
}

func TestSetupLoadsFixtures(t *testing.T) {
	kbPath = "../../testdata/blocks.kb"
	configPath = "../../testdata/config.yaml"
	defer func() { kbPath, configPath = "", "" }()

	r, err := setup()
	require.NoError(t, err)
	assert.Equal(t, "?b : cube\t<- fact: (covered cube)\n", run(t, r, "ask (covered ?b)"))
}
