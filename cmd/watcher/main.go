package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/aluiziolira/go-catalog-watch/config"
	"github.com/aluiziolira/go-catalog-watch/pipeline"
	"github.com/aluiziolira/go-catalog-watch/proxy"
	"github.com/aluiziolira/go-catalog-watch/scraper"
	"github.com/aluiziolira/go-catalog-watch/status"
)

type options struct {
	configPath string
	envFile    string
	proxyFile  string
	output     string
	format     string
	statusAddr string
	verbose    bool
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var opts options
	flagSet := pflag.NewFlagSet("catalog-watch", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.configPath, "config", "c", "", "path to YAML config file")
	flagSet.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	flagSet.StringVarP(&opts.proxyFile, "proxies", "p", "", "proxy list file, one scheme:host:port per line")
	flagSet.StringVarP(&opts.output, "output", "o", "", "new-item output file (empty disables file output)")
	flagSet.StringVar(&opts.format, "format", "", "output format: csv, json, or dual")
	flagSet.StringVar(&opts.statusAddr, "status-addr", "", "status server listen address (e.g. :9090)")
	flagSet.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	cfg, err := loadConfig(flagSet, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		return 1
	}

	slog.SetDefault(newLogger(cfg))

	proxies, err := loadProxies(cfg.ProxyFile)
	if err != nil {
		slog.Error("loading proxies", slog.Any("error", err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := watch(ctx, cfg, proxies); err != nil {
		slog.Error("watcher stopped", slog.Any("error", err))
		return 1
	}
	slog.Info("watcher shut down")
	return 0
}

// loadConfig layers defaults, the config file, CATALOG_WATCH_* variables and
// explicitly set flags, in that order.
func loadConfig(flagSet *pflag.FlagSet, opts options) (*config.Config, error) {
	if err := config.LoadDotEnv(opts.envFile); err != nil {
		return nil, err
	}

	cfg := config.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}

	if flagSet.Changed("proxies") {
		cfg.ProxyFile = opts.proxyFile
	}
	if flagSet.Changed("output") {
		cfg.OutputFile = opts.output
	}
	if flagSet.Changed("format") {
		cfg.OutputFormat = strings.ToLower(opts.format)
	}
	if flagSet.Changed("status-addr") {
		cfg.StatusAddr = opts.statusAddr
	}
	if opts.verbose {
		cfg.Verbose = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadProxies(path string) ([]proxy.Address, error) {
	if path == "" {
		return nil, nil
	}
	return proxy.LoadFile(path)
}

func watch(ctx context.Context, cfg *config.Config, proxies []proxy.Address) error {
	metrics := scraper.NewMetrics()

	var sinks scraper.Notifiers
	var out *pipeline.Pipeline
	if cfg.OutputFile != "" {
		writer, err := pipeline.NewWriter(cfg.OutputFormat, cfg.OutputFile)
		if err != nil {
			return fmt.Errorf("create output writer: %w", err)
		}
		defer func() {
			if err := writer.Close(); err != nil {
				slog.Error("close writer", slog.Any("error", err))
			}
		}()
		out = pipeline.NewPipeline(writer)
		out.Start()
		if cfg.Verbose {
			out.StartMetricsReporting(30 * time.Second)
		}
		sinks = append(sinks, out)
	}

	var recent *status.Recent
	if cfg.StatusAddr != "" && cfg.RecentSize > 0 {
		r, err := status.NewRecent(cfg.RecentSize)
		if err != nil {
			return err
		}
		recent = r
		sinks = append(sinks, recent)
	}

	pollers := make([]*scraper.Poller, 0, len(cfg.Watches))
	for _, w := range cfg.Watches {
		client, err := scraper.NewClient(cfg)
		if err != nil {
			return fmt.Errorf("watch %q: %w", w.Name, err)
		}
		var pool *proxy.Pool
		if len(proxies) > 0 {
			pool = proxy.NewPool(proxies)
		}
		pollers = append(pollers, scraper.NewPoller(cfg, w, client, pool,
			scraper.WithNotifier(sinks),
			scraper.WithMetrics(metrics),
			scraper.WithLogger(slog.Default()),
		))
	}

	if len(proxies) == 0 {
		slog.Warn("no proxies configured, requests go out directly")
	}
	slog.Info("starting watcher",
		slog.String("base_url", cfg.BaseURL),
		slog.Int("watches", len(pollers)),
		slog.Int("proxies", len(proxies)),
		slog.String("output", cfg.OutputFile),
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range pollers {
		g.Go(func() error {
			return p.Run(gctx)
		})
	}

	if cfg.StatusAddr != "" {
		providers := make([]status.Provider, 0, len(pollers))
		for _, p := range pollers {
			providers = append(providers, p)
		}
		srv := status.NewServer(cfg.StatusAddr, metrics.Registry, recent, providers)
		g.Go(srv.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Stop(shutdownCtx)
		})
	}

	runErr := g.Wait()

	if out != nil {
		if err := out.Close(); err != nil {
			runErr = errors.Join(runErr, fmt.Errorf("pipeline shutdown: %w", err))
		}
		summary := out.GetMetrics()
		slog.Info("output summary",
			slog.Any("written", summary["written_items"]),
			slog.Any("validation_errors", summary["validation_errors"]),
		)
	}
	return runErr
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if cfg.Verbose {
		level = slog.LevelDebug
	}

	if isTerminal(os.Stdout) {
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
