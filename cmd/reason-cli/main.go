package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cognicore/reason/pkg/reason"
	"github.com/cognicore/reason/pkg/reason/config"
	"github.com/cognicore/reason/pkg/reason/parse"
)

var (
	kbPath      string
	configPath  string
	verbose     bool
	metricsAddr string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "reason-cli",
	Short: "Forward-chaining knowledge base with truth maintenance",
	Long: `reason-cli loads facts and rules, derives everything they imply, and lets
you assert, retract, ask and explain interactively.

Commands at the prompt:
  assert fact: (on a b)
  assert rule: ((on ?x ?y)) -> (above ?x ?y)
  retract fact: (on a b)
  ask (above ?x ?y)
  explain fact: (above a b)
  dump`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := setup()
		if err != nil {
			return err
		}
		return repl(r, os.Stdin, cmd.OutOrStdout())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [query]",
	Short: "Load the knowledge base and answer one query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := setup()
		if err != nil {
			return err
		}
		return execute(r, "ask "+args[0], cmd.OutOrStdout())
	},
}

var explainCmd = &cobra.Command{
	Use:   "explain [item]",
	Short: "Load the knowledge base and explain one fact or rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := setup()
		if err != nil {
			return err
		}
		return execute(r, "explain "+args[0], cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&kbPath, "kb", "", "Knowledge base file (fact:/rule: lines)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every inference step")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	rootCmd.AddCommand(askCmd, explainCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup() (*reason.Reasoner, error) {
	comp, err := (&config.Loader{ConfigPath: configPath, KBPath: kbPath}).Load()
	if err != nil {
		return nil, err
	}

	logger, err = newLogger(comp.Config.LogLevel, verbose)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	reg := prometheus.NewRegistry()
	r := reason.FromComponents(comp, reason.Options{Logger: logger, Registerer: reg})

	if metricsAddr != "" {
		go serveMetrics(metricsAddr, reg)
	}
	return r, nil
}

// newLogger builds a production logger. The CLI defaults to warn so that
// per-assertion info logs stay off the terminal.
func newLogger(level string, verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	lvl := zapcore.WarnLevel
	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		lvl = parsed
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	logger.Info("Serving metrics", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Metrics server stopped", zap.Error(err))
	}
}

func repl(r *reason.Reasoner, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "Type a command (help for a list, Ctrl+D to exit):")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := execute(r, line, out); err != nil {
			fmt.Fprintln(out, "Error:", err)
		}
	}

	fmt.Fprintln(out)
	return scanner.Err()
}

func execute(r *reason.Reasoner, line string, out io.Writer) error {
	verb, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	switch verb {
	case "assert":
		item, err := parse.ParseItem(rest)
		if err != nil {
			return err
		}
		stored := r.Assert(item)
		fmt.Fprintf(out, "asserted %s\n", stored)

	case "retract":
		item, err := parse.ParseItem(rest)
		if err != nil {
			return err
		}
		if err := r.Retract(item); err != nil {
			return err
		}
		if stored, ok := r.Lookup(item); ok {
			fmt.Fprintf(out, "unasserted %s (still supported)\n", stored)
		} else {
			fmt.Fprintf(out, "retracted %s\n", item)
		}

	case "ask":
		q, err := parse.ParseQuery(rest)
		if err != nil {
			return err
		}
		answers, err := r.Ask(q)
		if err != nil {
			return err
		}
		if len(answers) == 0 {
			fmt.Fprintln(out, "No match.")
			return nil
		}
		for _, a := range answers {
			bindings := a.Bindings.String()
			if bindings == "" {
				bindings = "yes"
			}
			fmt.Fprintf(out, "%s\t<- %s\n", bindings, a.Facts[0])
		}

	case "explain":
		item, err := parse.ParseItem(rest)
		if err != nil {
			return err
		}
		text, err := r.Explain(item)
		if err != nil {
			return err
		}
		fmt.Fprint(out, text)

	case "dump":
		fmt.Fprint(out, r.String())

	case "help":
		fmt.Fprintln(out, "assert <item> | retract <item> | ask <query> | explain <item> | dump")

	default:
		return fmt.Errorf("unknown command %q", verb)
	}
	return nil
}
