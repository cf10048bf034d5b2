package main

import (
	"context"
	"fmt"
	"log/slog"

	"mercator-hq/predicate/pkg/catalog"
	"mercator-hq/predicate/pkg/cli"
	"mercator-hq/predicate/pkg/config"
	"mercator-hq/predicate/pkg/expr/combine"
	"mercator-hq/predicate/pkg/expr/parser"
	"mercator-hq/predicate/pkg/expr/rewrite"
	"mercator-hq/predicate/pkg/telemetry/logging"
	"mercator-hq/predicate/pkg/telemetry/metrics"
	"mercator-hq/predicate/pkg/telemetry/tracing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// app holds global flags and the services built from the configuration
// before a command runs.
type app struct {
	cfgFile string
	verbose bool
	format  string

	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	tracer   *tracing.Tracer
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "predicate",
		Short: "Combine, evaluate and catalog predicate expression trees",
		Long: `Predicate works with boolean predicates written as YAML expression trees.

Two predicates over the same parameters combine into one that holds exactly
when both hold. The right-hand predicate is rewritten so that it reads the
left-hand predicate's parameters, and the result short-circuits.

Commands:
  combine   Conjoin predicate files
  eval      Evaluate a predicate for given arguments
  lint      Check predicate files and run their embedded tests
  catalog   Store, list and compose named predicates
  watch     Keep the catalog in sync with predicate files on disk`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.shutdown(cmd.Context())
		},
	}

	cmd.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file path (defaults apply when empty)")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&a.format, "format", "text", "output format: text, json, yaml")

	cmd.AddCommand(
		newCombineCmd(a),
		newEvalCmd(a),
		newLintCmd(a),
		newCatalogCmd(a),
		newWatchCmd(a),
		newVersionCmd(a),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	if err := config.Initialize(a.cfgFile); err != nil {
		return cli.NewConfigError(a.cfgFile, err)
	}
	a.cfg = config.GetConfig()

	var logOpts []logging.Option
	if a.verbose {
		logOpts = append(logOpts, logging.Verbose())
	}
	logger, err := logging.New(a.cfg.Telemetry.Logging, cmd.ErrOrStderr(), logOpts...)
	if err != nil {
		return cli.NewConfigError(a.cfgFile, err)
	}
	a.logger = logger
	cmd.SetContext(logging.WithLogger(cmd.Context(), logger))

	a.registry = prometheus.NewRegistry()
	a.metrics = metrics.New(&a.cfg.Telemetry.Metrics, a.registry)

	a.tracer, err = tracing.New(cmd.Context(), &a.cfg.Telemetry.Tracing)
	if err != nil {
		return cli.NewConfigError(a.cfgFile, err)
	}
	return nil
}

func (a *app) shutdown(ctx context.Context) error {
	if a.tracer == nil {
		return nil
	}
	return a.tracer.Shutdown(ctx)
}

func (a *app) output() (cli.OutputFormat, error) {
	return cli.ParseFormat(a.format)
}

func (a *app) parser() *parser.Parser {
	depth := a.cfg.Rewrite.MaxDepth
	if depth < 0 {
		depth = 0
	}
	return parser.NewParser().WithMaxDepth(depth)
}

func (a *app) cloner() *rewrite.Cloner {
	return rewrite.NewCloner(rewrite.WithMaxDepth(a.cfg.Rewrite.MaxDepth))
}

func (a *app) combiner() *combine.Combiner {
	return combine.NewCombiner(
		combine.WithCloner(a.cloner()),
		combine.WithLogger(logging.WithComponent(a.logger, "combine")),
		combine.WithMetrics(a.metrics),
		combine.WithTracer(a.tracer),
	)
}

func (a *app) openCatalog() (*catalog.Catalog, error) {
	c, err := catalog.Open(&a.cfg.Catalog,
		catalog.WithLogger(a.logger),
		catalog.WithMetrics(a.metrics),
		catalog.WithTracer(a.tracer),
		catalog.WithCombiner(a.combiner()),
		catalog.WithCloner(a.cloner()),
		catalog.WithParser(a.parser()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	return c, nil
}
