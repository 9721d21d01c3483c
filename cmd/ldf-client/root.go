package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wbrown/janus-ldf/ldf/annotations"
	"github.com/wbrown/janus-ldf/ldf/clustering"
	"github.com/wbrown/janus-ldf/ldf/fragments"
	"github.com/wbrown/janus-ldf/ldf/iterator"
	"github.com/wbrown/janus-ldf/ldf/sparql"
	"github.com/wbrown/janus-ldf/ldf/writers"
)

const (
	datasourcesConf = "datasources"
	formatFlag      = "format"
	plannerFlag     = "planner"
	configFlag      = "config"
	algebraFlag     = "algebra"
	timeoutFlag     = "timeout"
	bufferSizeFlag  = "buffer-size"
	logLevelFlag    = "log-level"
	annotateFlag    = "annotate"
	metricsFlag     = "metrics"
	prefixesConf    = "prefixes"
	clusteringConf  = "clustering"
	storeFlag       = "store"
	storeConf       = "clustering.store"
)

// newRootCommand reads its settings from flags, environment variables
// prefixed with LDF_, or the config file given with --config (in that order).
func newRootCommand() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("LDF")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "ldf-client [flags] startFragment... query",
		Short: "Evaluates SPARQL queries over Triple Pattern Fragments",
		Long: `Evaluates a SPARQL query over one or more Triple Pattern Fragments interfaces.

The query is the last argument; prefix it with @ to read it from a file.
A single local RDF file (.nt, .nq, .ttl) may be used instead of a start fragment.
Start fragments may also be listed under "datasources" in the config file.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path := v.GetString(configFlag); path != "" {
				v.SetConfigFile(path)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("reading config: %w", err)
				}
			}
			return run(cmd.Context(), v, args, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	flags.StringP(formatFlag, "t", writers.DefaultFormat, "result format: "+strings.Join(writers.Formats(), ", "))
	flags.StringP(plannerFlag, "p", sparql.PlannerReorder, "basic graph pattern planner: reorder or clustering")
	flags.StringP(configFlag, "c", "", "config file (yaml, json or toml)")
	flags.Bool(algebraFlag, false, "the query is a SPARQL algebra JSON document")
	flags.Duration(timeoutFlag, 0, "abort the query after this duration (0 = never)")
	flags.Int(bufferSizeFlag, 0, "open transformers per triple pattern (0 = default)")
	flags.String(logLevelFlag, "warn", "log level: debug, info, warn, error or none")
	flags.Bool(annotateFlag, false, "print execution events to stderr")
	flags.Bool(metricsFlag, false, "print Prometheus metrics to stderr when done")
	flags.String(storeFlag, clustering.StoreMemory, "triple store of the clustering planner: memory or badger")
	for _, name := range []string{formatFlag, plannerFlag, configFlag, algebraFlag, timeoutFlag, bufferSizeFlag, logLevelFlag, annotateFlag, metricsFlag} {
		mustBindPFlag(v, name, flags, name)
	}
	mustBindPFlag(v, storeConf, flags, storeFlag)
	return cmd
}

func mustBindPFlag(v *viper.Viper, key string, flags *pflag.FlagSet, name string) {
	if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
		panic(err)
	}
}

func run(ctx context.Context, v *viper.Viper, args []string, stdout, stderr io.Writer) error {
	logger, err := newLogger(v.GetString(logLevelFlag), stderr)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	sources := append(v.GetStringSlice(datasourcesConf), args[:len(args)-1]...)
	query, err := readQuery(args[len(args)-1])
	if err != nil {
		return err
	}

	if timeout := v.GetDuration(timeoutFlag); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var collector *annotations.Collector
	if v.GetBool(annotateFlag) {
		collector = annotations.NewCollector(annotations.NewOutputFormatter(stderr).Handle)
	}
	var registry *prometheus.Registry
	clientOpts := []fragments.Option{fragments.WithLogger(logger), fragments.WithAnnotations(collector)}
	if v.GetBool(metricsFlag) {
		registry = prometheus.NewRegistry()
		clientOpts = append(clientOpts, fragments.WithMetrics(fragments.NewMetrics(registry)))
	}

	sched := iterator.NewSchedulerContext(ctx)
	defer sched.Close()
	client, err := newClient(sched, sources, clientOpts...)
	if err != nil {
		return err
	}

	opts := sparql.Options{
		Client:      client,
		Logger:      logger,
		Annotations: collector,
		BufferSize:  v.GetInt(bufferSizeFlag),
		Planner:     v.GetString(plannerFlag),
		Prefixes:    v.GetStringMapString(prefixesConf),
	}
	if err := v.UnmarshalKey(clusteringConf, &opts.Clustering); err != nil {
		return fmt.Errorf("reading clustering settings: %w", err)
	}
	opts.Clustering.Store = v.GetString(storeConf)

	var res *sparql.Result
	if v.GetBool(algebraFlag) {
		q, err := sparql.ParseAlgebraJSON([]byte(query))
		if err != nil {
			return err
		}
		res, err = sparql.ExecuteQuery(ctx, q, opts)
		if err != nil {
			return err
		}
	} else if res, err = sparql.Execute(ctx, query, opts); err != nil {
		return err
	}
	defer res.Close()

	start := time.Now()
	count, err := writers.Write(ctx, stdout, v.GetString(formatFlag), res)
	if err != nil {
		return err
	}
	logger.Info("query done", zap.Int("results", count), zap.Duration("duration", time.Since(start)))
	if failed := res.Failures(); failed > 0 {
		logger.Warn("some fragment pages failed, results may be incomplete", zap.Int("failures", failed))
	}

	if registry != nil {
		return writeMetrics(stderr, registry)
	}
	return nil
}

// newLogger builds a console logger at the given level writing to w.
func newLogger(level string, w io.Writer) (*zap.Logger, error) {
	if level == "none" {
		return zap.NewNop(), nil
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("unknown log level: %s", level)
	}
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.AddSync(w), lvl)
	return zap.New(core), nil
}

// readQuery returns the query text, reading it from a file for @path.
func readQuery(arg string) (string, error) {
	path, ok := strings.CutPrefix(arg, "@")
	if !ok {
		return arg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading query: %w", err)
	}
	return string(b), nil
}

// newClient opens the data sources: HTTP start fragments, or one local
// RDF file served from memory.
func newClient(sched *iterator.Scheduler, sources []string, opts ...fragments.Option) (fragments.Client, error) {
	if len(sources) == 0 {
		return nil, errors.New("no start fragments given")
	}
	var local []string
	for _, s := range sources {
		if isLocal(s) {
			local = append(local, s)
		}
	}
	switch {
	case len(local) == 0:
		return fragments.New(sched, sources, opts...)
	case len(sources) > 1:
		return nil, fmt.Errorf("local file %s cannot be combined with other data sources", local[0])
	}
	client, err := fragments.LoadFile(sched, strings.TrimPrefix(local[0], "file://"))
	if err != nil {
		return nil, err
	}
	return client, nil
}

func isLocal(source string) bool {
	u, err := url.Parse(source)
	return err != nil || (u.Scheme != "http" && u.Scheme != "https")
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
