// Command hbnb is the HBNB console: a line-oriented interpreter that creates,
// shows, updates and destroys objects in the configured storage backend.
//
// Run without arguments to start the interactive console, or pass a single
// command to execute it and exit:
//
//	hbnb
//	hbnb create State name="California"
//	HBNB_TYPE_STORAGE=db hbnb all State
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"hbnb/internal/config"
	"hbnb/internal/console"
	"hbnb/internal/core"
	"hbnb/internal/parser"
	"hbnb/pkg/domain"
)

type options struct {
	configPath  string
	storage     string
	verbose     bool
	metricsAddr string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "hbnb [command...]",
		Short: "HBNB console",
		Long: `hbnb manages BaseModel, User, State, City, Amenity, Place and Review
objects persisted in a JSON document or a relational database.

Run without arguments to start the interactive console. With arguments the
command runs once; since the shell strips quotes, string values of key=value
pairs and arguments containing blanks are quoted again, so
name="My_house" and name=My_house both store "My house". Pass a dotted
command as one argument: hbnb 'User.show("<id>")'.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, args, stdin, stdout, stderr)
		},
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().StringVar(&opts.configPath, "config", "", "optional YAML configuration file")
	cmd.Flags().StringVar(&opts.storage, "storage", "", "storage backend: file or db (overrides "+config.EnvTypeStorage+")")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (overrides "+config.EnvMetricsAddr+")")
	return cmd
}

func run(ctx context.Context, opts *options, args []string, stdin io.Reader, stdout, stderr io.Writer) (retErr error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.storage != "" {
		cfg.Storage = opts.storage
	}
	if opts.metricsAddr != "" {
		cfg.MetricsAddr = opts.metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, opts.verbose, stderr)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := console.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	if cfg.MetricsAddr != "" {
		shutdown, err := serveMetrics(cfg.MetricsAddr, reg, logger)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	backend := core.BackendName(cfg)
	storage, err := core.OpenStorage(ctx, cfg, logger)
	if err != nil {
		logger.Error("open storage", zap.String("backend", backend), zap.Error(err))
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := storage.Close(); err != nil && retErr == nil {
			retErr = fmt.Errorf("close storage: %w", err)
		}
	}()
	if err := storage.Reload(ctx); err != nil {
		logger.Error("load storage", zap.String("backend", backend), zap.Error(err))
		return fmt.Errorf("load storage: %w", err)
	}
	storage = core.Instrument(storage, backend, metrics)
	logger.Debug("storage ready", zap.String("backend", backend), zap.Int("objects", storage.Count("")))

	c := console.New(storage,
		console.WithOutput(stdout),
		console.WithLogger(logger),
		console.WithMetrics(metrics),
	)
	if len(args) > 0 {
		c.Execute(ctx, commandLine(args))
	} else {
		prompt := ""
		if isTerminal(stdin) {
			prompt = console.Prompt
		}
		if err := c.Run(ctx, stdin, prompt); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("read commands: %w", err)
		}
	}
	if err := storage.Save(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("save storage: %w", err)
	}
	return nil
}

func newLogger(level string, verbose bool, w io.Writer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	zc := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(w), zap.NewAtomicLevelAt(lvl))
	return zap.New(zc).Named("hbnb"), nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

// commandLine rebuilds a console line from argv, quoting again what the
// shell unquoted. Dotted commands are passed through untouched.
func commandLine(args []string) string {
	if len(args) > 0 && strings.Contains(args[0], "(") {
		return strings.Join(args, " ")
	}
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = requote(arg)
	}
	return strings.Join(parts, " ")
}

func requote(arg string) string {
	if key, value, found := strings.Cut(arg, "="); found && !strings.HasPrefix(value, `"`) {
		if p, ok := parser.ParsePair(arg); ok && p.Value.Kind() == domain.KindString {
			return key + "=" + quoteArg(value)
		}
	}
	if strings.ContainsAny(arg, " \t") {
		return quoteArg(arg)
	}
	return arg
}

func quoteArg(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
