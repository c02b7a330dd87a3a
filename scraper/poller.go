package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aluiziolira/go-catalog-watch/cache"
	"github.com/aluiziolira/go-catalog-watch/config"
	"github.com/aluiziolira/go-catalog-watch/models"
	"github.com/aluiziolira/go-catalog-watch/parser"
	"github.com/aluiziolira/go-catalog-watch/proxy"
	"github.com/google/uuid"
)

const catalogPath = "/api/v2/catalog/items"

// Notifier receives one notification per newly listed item.
type Notifier interface {
	Notify(n models.Notification) error
}

// Notifiers fans a notification out to several sinks in order.
type Notifiers []Notifier

// Notify delivers n to every sink and joins their errors.
func (ns Notifiers) Notify(n models.Notification) error {
	var errs []error
	for _, sink := range ns {
		if err := sink.Notify(n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type waitKind int

const (
	waitInterval waitKind = iota
	waitProxyRetry
	waitCooldown
)

// remedy is the action taken for one failure kind.
type remedy struct {
	evictProxy   bool
	clearSession bool
	wait         waitKind
	level        slog.Level
}

var remedies = map[FailureKind]remedy{
	FailureProxyUnreachable: {evictProxy: true, wait: waitProxyRetry, level: slog.LevelWarn},
	FailureUnauthorized:     {clearSession: true, wait: waitInterval, level: slog.LevelInfo},
	FailureRateLimited:      {wait: waitCooldown, level: slog.LevelInfo},
	FailureTransport:        {wait: waitInterval, level: slog.LevelWarn},
	FailureMalformed:        {wait: waitInterval, level: slog.LevelWarn},
}

// CycleReport summarises one poll cycle.
type CycleReport struct {
	Proxy    *proxy.Address
	Failure  *Failure
	NewItems []models.Item
	Delay    time.Duration
}

// Poller runs the fetch cycle for one watch. Its session, proxy pool and item
// cache are owned by the goroutine calling Run.
type Poller struct {
	id       string
	cfg      *config.Config
	watch    config.Watch
	client   Transport
	pool     *proxy.Pool
	session  *SessionManager
	cache    *cache.ItemCache
	notifier Notifier
	metrics  *Metrics
	logger   *slog.Logger

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(max time.Duration) time.Duration
	now    func() time.Time

	authenticated bool

	mu     sync.Mutex
	status Status
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithNotifier sets the sink for new items.
func WithNotifier(n Notifier) PollerOption {
	return func(p *Poller) { p.notifier = n }
}

// WithMetrics sets the metrics collectors.
func WithMetrics(m *Metrics) PollerOption {
	return func(p *Poller) { p.metrics = m }
}

// WithLogger sets the base logger.
func WithLogger(l *slog.Logger) PollerOption {
	return func(p *Poller) { p.logger = l }
}

// WithSleep replaces the context-aware sleep between cycles.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) PollerOption {
	return func(p *Poller) { p.sleep = fn }
}

// WithJitter replaces the random interval jitter.
func WithJitter(fn func(max time.Duration) time.Duration) PollerOption {
	return func(p *Poller) { p.jitter = fn }
}

// NewPoller builds a poller for watch. A nil pool means requests go out directly.
func NewPoller(cfg *config.Config, watch config.Watch, client Transport, pool *proxy.Pool, opts ...PollerOption) *Poller {
	p := &Poller{
		id:       uuid.NewString(),
		cfg:      cfg,
		watch:    watch,
		client:   client,
		pool:     pool,
		session:  NewSessionManager(client, cfg.BaseURL),
		cache:    cache.New(),
		notifier: Notifiers(nil),
		logger:   slog.Default(),
		sleep:    sleepContext,
		jitter:   randomJitter,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(slog.String("watch", watch.Name), slog.String("poller_id", p.id))
	p.status = Status{ID: p.id, Watch: watch.Name, State: StateStarting}
	if pool != nil {
		p.status.ProxiesTotal = pool.Size()
		p.status.ProxiesRemaining = pool.Remaining()
	}
	return p
}

// Run loops cycles until ctx is cancelled or a fatal condition occurs. It
// returns nil on cancellation and the fatal error otherwise.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("poller started",
		slog.String("base_url", p.cfg.BaseURL),
		slog.Int("proxies", p.status.ProxiesTotal),
		slog.Duration("interval", p.cfg.Interval),
	)
	if p.pool != nil {
		p.metrics.SetProxiesAvailable(p.watch.Name, p.pool.Remaining())
	}

	for {
		if ctx.Err() != nil {
			p.setState(StateStopped, nil)
			return nil
		}

		report, err := p.RunCycle(ctx)
		if err != nil {
			p.setState(StateFailed, err)
			p.logger.Error("poller stopped", slog.Any("error", err))
			return err
		}

		if err := p.sleep(ctx, report.Delay); err != nil {
			p.setState(StateStopped, nil)
			return nil
		}
	}
}

// RunCycle performs one select-proxy, ensure-session, fetch, classify,
// remediate pass. The returned error is non-nil only for fatal conditions.
func (p *Poller) RunCycle(ctx context.Context) (CycleReport, error) {
	var report CycleReport

	if p.pool != nil {
		addr, err := p.pool.Select()
		if err != nil {
			return report, err
		}
		report.Proxy = &addr
		p.client.SetProxy(addr.URL())
	}

	if p.session.CurrentToken() == "" {
		if err := p.refreshSession(); err != nil {
			if errors.Is(err, ErrTokenNotFound) && !p.authenticated {
				return report, fmt.Errorf("initial session bootstrap: %w", err)
			}
			return p.remediate(ctx, report, &Failure{Kind: FailureTransport, Err: err}), nil
		}
	}

	page, failure := p.fetch()
	if failure != nil {
		return p.remediate(ctx, report, failure), nil
	}

	report.NewItems = p.cache.Apply(page.Items)
	p.metrics.SetCachedItems(p.watch.Name, p.cache.Len())
	p.metrics.AddNewItems(p.watch.Name, len(report.NewItems))
	p.logger.Debug("catalog fetched",
		slog.Int("items", len(page.Items)),
		slog.Int("new", len(report.NewItems)),
		slog.Int("page", page.Pagination.CurrentPage),
		slog.Int("total_entries", page.Pagination.TotalEntries),
		slog.Int("total_pages", page.Pagination.TotalPages),
	)

	seenAt := p.now()
	for _, it := range report.NewItems {
		p.logger.Info("new item",
			slog.Int64("id", it.ID),
			slog.String("title", it.Title),
			slog.String("price", it.Price),
			slog.String("currency", it.Currency),
			slog.String("brand", it.BrandTitle),
			slog.String("url", it.URL),
		)
		n := models.Notification{Watch: p.watch.Name, Item: it, SeenAt: seenAt}
		if err := p.notifier.Notify(n); err != nil {
			p.logger.Error("notify new item", slog.Int64("id", it.ID), slog.Any("error", err))
		}
	}

	report.Delay = p.delay(waitInterval)
	p.recordSuccess()
	return report, nil
}

func (p *Poller) refreshSession() error {
	start := p.now()
	_, err := p.session.Refresh()
	p.metrics.IncRequest(p.watch.Name, "bootstrap")
	p.metrics.ObserveDuration("bootstrap", p.now().Sub(start))
	p.metrics.IncRefresh(p.watch.Name, err == nil)
	if err != nil {
		return err
	}
	p.authenticated = true
	p.logger.Debug("session refreshed")
	return nil
}

func (p *Poller) fetch() (*models.CatalogPage, *Failure) {
	header := http.Header{}
	header.Set("X-CSRF-Token", p.session.CurrentToken())
	header.Set("Accept", "application/json")

	start := p.now()
	resp, err := p.client.Get(p.catalogURL(), header)
	p.metrics.IncRequest(p.watch.Name, "catalog")
	p.metrics.ObserveDuration("catalog", p.now().Sub(start))

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	if failure := Classify(err, status); failure != nil {
		return nil, failure
	}

	page, err := parser.DecodeCatalog(resp.Body)
	if failure := Classify(err, status); failure != nil {
		return nil, failure
	}
	return page, nil
}

func (p *Poller) catalogURL() string {
	q := p.watch.Filter.Values()
	q.Set("page", "1")
	q.Set("per_page", strconv.Itoa(p.cfg.PerPage))
	if p.cfg.Order != "" {
		q.Set("order", p.cfg.Order)
	}
	return strings.TrimSuffix(p.cfg.BaseURL, "/") + catalogPath + "?" + q.Encode()
}

func (p *Poller) remediate(ctx context.Context, report CycleReport, failure *Failure) CycleReport {
	r := remedies[failure.Kind]
	report.Failure = failure
	p.metrics.IncFailure(p.watch.Name, failure.Kind)

	attrs := []any{slog.String("kind", failure.Kind.String()), slog.Any("error", failure)}
	if report.Proxy != nil {
		attrs = append(attrs, slog.String("proxy", report.Proxy.String()))
	}
	p.logger.Log(ctx, r.level, "cycle failed", attrs...)

	if r.evictProxy && report.Proxy != nil {
		p.pool.Evict(*report.Proxy)
		p.metrics.IncEvicted(p.watch.Name)
		p.metrics.SetProxiesAvailable(p.watch.Name, p.pool.Remaining())
		p.logger.Warn("proxy evicted",
			slog.String("proxy", report.Proxy.String()),
			slog.Int("remaining", p.pool.Remaining()),
		)
	}
	if r.clearSession {
		p.session.Clear()
	}

	report.Delay = p.delay(r.wait)
	p.recordFailure(failure)
	return report
}

func (p *Poller) delay(kind waitKind) time.Duration {
	switch kind {
	case waitProxyRetry:
		return p.cfg.ProxyRetryDelay
	case waitCooldown:
		return p.cfg.RateLimitCooldown
	default:
		return p.cfg.Interval + p.jitter(p.cfg.Jitter)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return rand.N(max)
}
