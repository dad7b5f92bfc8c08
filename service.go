package lawcast

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-lawcast/cache"
	"github.com/goliatone/go-lawcast/core"
	"github.com/goliatone/go-lawcast/fanout"
	"github.com/goliatone/go-lawcast/poller"
	"github.com/goliatone/go-lawcast/source"
	glog "github.com/goliatone/go-logger/glog"
)

const loggerName = "lawcast"

// Service composes the notice cache, the poll orchestrator and the fan-out
// engine behind the operations exposed to commands and queries.
type Service struct {
	config         core.Config
	logger         core.Logger
	loggerProvider core.LoggerProvider
	observer       core.Observer
	store          core.DestinationStore
	ledger         core.DeliveryLedger
	history        core.DeliveryHistory
	verifier       core.RegistrationVerifier
	cache          *cache.NoticeCache
	notifier       core.Notifier
	poller         *poller.Orchestrator
	now            func() time.Time
}

type Option func(*serviceBuilder)

type serviceBuilder struct {
	runtimeConfig   core.Config
	logger          core.Logger
	loggerProvider  core.LoggerProvider
	metricsRecorder core.MetricsRecorder
	configProvider  core.ConfigProvider
	optionsResolver core.OptionsResolver
	fetcher         core.NoticeFetcher
	store           core.DestinationStore
	ledger          core.DeliveryLedger
	history         core.DeliveryHistory
	verifier        core.RegistrationVerifier
	deliverer       core.Deliverer
	cycleObserver   core.CycleObserver
	now             func() time.Time
}

func WithLogger(logger core.Logger) Option {
	return func(b *serviceBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(b *serviceBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(metrics core.MetricsRecorder) Option {
	return func(b *serviceBuilder) {
		b.metricsRecorder = metrics
	}
}

func WithConfigProvider(provider core.ConfigProvider) Option {
	return func(b *serviceBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver core.OptionsResolver) Option {
	return func(b *serviceBuilder) {
		b.optionsResolver = resolver
	}
}

func WithFetcher(fetcher core.NoticeFetcher) Option {
	return func(b *serviceBuilder) {
		b.fetcher = fetcher
	}
}

func WithDestinationStore(store core.DestinationStore) Option {
	return func(b *serviceBuilder) {
		b.store = store
	}
}

// WithDeliveryLedger enables the delivery audit trail. A ledger that can also
// list entries serves DeliveryHistory.
func WithDeliveryLedger(ledger core.DeliveryLedger) Option {
	return func(b *serviceBuilder) {
		b.ledger = ledger
	}
}

func WithDeliveryHistory(history core.DeliveryHistory) Option {
	return func(b *serviceBuilder) {
		b.history = history
	}
}

func WithRegistrationVerifier(verifier core.RegistrationVerifier) Option {
	return func(b *serviceBuilder) {
		b.verifier = verifier
	}
}

func WithDeliverer(deliverer core.Deliverer) Option {
	return func(b *serviceBuilder) {
		b.deliverer = deliverer
	}
}

func WithCycleObserver(observer core.CycleObserver) Option {
	return func(b *serviceBuilder) {
		b.cycleObserver = observer
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *serviceBuilder) {
		b.now = now
	}
}

// NewService resolves configuration (defaults < config provider < cfg) and
// wires the components. cfg acts as the runtime override layer; zero fields
// fall through to the lower layers.
func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := serviceBuilder{runtimeConfig: cfg}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve(loggerName, builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger(loggerName); named != nil {
			logger = glog.Ensure(named)
		}
	}
	componentLogger := func(component string) core.Logger {
		if provider == nil {
			return logger
		}
		if named := provider.GetLogger(loggerName + "." + component); named != nil {
			return glog.Ensure(named)
		}
		return logger
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = core.NopMetricsRecorder{}
	}
	if builder.configProvider == nil {
		builder.configProvider = core.NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = core.GoOptionsResolver{}
	}
	if builder.now == nil {
		builder.now = func() time.Time { return time.Now().UTC() }
	}

	defaults := core.DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, core.MapError(err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, core.MapError(err)
	}

	if builder.store == nil {
		return nil, core.NewError("lawcast: destination store is required", goerrors.CategoryBadInput, core.ErrorBadInput)
	}
	if builder.fetcher == nil {
		if strings.TrimSpace(finalConfig.Feed.URL) == "" {
			return nil, core.NewError("lawcast: a notice fetcher or feed.url is required", goerrors.CategoryBadInput, core.ErrorBadInput)
		}
		builder.fetcher = source.NewFeedFetcher(finalConfig.Feed, source.WithLogger(componentLogger("source")))
	}
	if builder.deliverer == nil {
		builder.deliverer = fanout.NewWebhookDeliverer(nil)
	}
	if builder.history == nil && builder.ledger != nil {
		if history, ok := builder.ledger.(core.DeliveryHistory); ok {
			builder.history = history
		}
	}

	noticeCache := cache.NewFromConfig(finalConfig.Cache,
		cache.WithClock(builder.now),
		cache.WithLogger(componentLogger("cache")),
	)
	engine := fanout.New(builder.deliverer, finalConfig.Delivery,
		fanout.WithLogger(componentLogger("fanout")),
		fanout.WithMetricsRecorder(builder.metricsRecorder),
		fanout.WithClock(builder.now),
	)
	pollerOpts := []poller.Option{
		poller.WithLogger(componentLogger("poller")),
		poller.WithMetricsRecorder(builder.metricsRecorder),
		poller.WithInterval(finalConfig.Poll.Interval),
		poller.WithClock(builder.now),
		poller.WithCycleObserver(builder.cycleObserver),
	}
	if builder.ledger != nil {
		pollerOpts = append(pollerOpts, poller.WithLedger(builder.ledger))
	}
	orchestrator, err := poller.New(builder.fetcher, noticeCache, builder.store, engine, pollerOpts...)
	if err != nil {
		return nil, err
	}

	return &Service{
		config:         finalConfig,
		logger:         logger,
		loggerProvider: provider,
		observer:       core.NewObserver(logger, builder.metricsRecorder, "lawcast.service"),
		store:          builder.store,
		ledger:         builder.ledger,
		history:        builder.history,
		verifier:       builder.verifier,
		cache:          noticeCache,
		notifier:       engine,
		poller:         orchestrator,
		now:            builder.now,
	}, nil
}

func (s *Service) Config() Config {
	if s == nil {
		return core.Config{}
	}
	return s.config
}

func (s *Service) Logger() core.Logger {
	if s == nil {
		return glog.Nop()
	}
	return s.logger
}

func (s *Service) Poller() *poller.Orchestrator {
	if s == nil {
		return nil
	}
	return s.poller
}

// Start runs the startup fetch. A failure aborts startup unless
// poll.allow_degraded_start is set, in which case the service starts not
// ready and scheduled ticks are dropped until a restart.
func (s *Service) Start(ctx context.Context) error {
	if err := s.poller.Initialize(ctx); err != nil {
		if !s.config.Poll.AllowDegradedStart {
			return err
		}
		s.observer.Warn(ctx, "starting degraded, initial fetch failed", map[string]any{"error": err.Error()})
	}
	return nil
}

// Run drives scheduled polls until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	return s.poller.Run(ctx)
}

// Shutdown waits for the in-flight cycle. Without a deadline on ctx the wait
// is bounded by shutdown.grace.
func (s *Service) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok && s.config.Shutdown.Grace > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Shutdown.Grace)
		defer cancel()
	}
	return s.poller.Shutdown(ctx)
}

func (s *Service) RemoveDestination(ctx context.Context, id int64) error {
	if id <= 0 {
		return core.NewError("lawcast: destination id must be positive", goerrors.CategoryBadInput, core.ErrorBadInput)
	}
	startedAt := time.Now()
	err := s.store.Deactivate(ctx, id)
	if err != nil {
		err = core.MapError(err)
	}
	s.observer.ObserveOperation(ctx, startedAt, "remove_destination", err, map[string]any{"destination_id": id})
	return err
}

func (s *Service) RecentNotices(limit int) []core.Notice {
	return s.cache.Recent(limit)
}

func (s *Service) CacheInfo() core.CacheInfo {
	return s.cache.Info()
}

func (s *Service) Stats(ctx context.Context) (core.ServiceStats, error) {
	destinations, err := s.store.Stats(ctx)
	if err != nil {
		return core.ServiceStats{}, core.MapError(err)
	}
	return core.ServiceStats{Destinations: destinations, Cache: s.cache.Info()}, nil
}

func (s *Service) Health() core.HealthStatus {
	return core.HealthStatus{
		Healthy:   true,
		Ready:     s.poller.Ready(),
		CheckedAt: s.now(),
	}
}

// RunPoll runs one cycle now. A cycle that fails to fetch still returns its
// report with Err set; the error result is reserved for dropped requests.
func (s *Service) RunPoll(ctx context.Context) (core.CycleReport, error) {
	report, ran := s.poller.Trigger(ctx, poller.TriggerManual)
	if ran {
		return report, nil
	}
	if s.poller.ShuttingDown() {
		return report, core.NewError("lawcast: service is shutting down", goerrors.CategoryOperation, core.ErrorShuttingDown).
			WithCode(http.StatusServiceUnavailable)
	}
	if !s.poller.Ready() {
		return report, core.NewError("lawcast: poller is not ready", goerrors.CategoryOperation, core.ErrorNotReady).
			WithCode(http.StatusServiceUnavailable)
	}
	return report, core.NewError("lawcast: a poll cycle is already running", goerrors.CategoryConflict, core.ErrorPollBusy)
}

func (s *Service) DeliveryHistory(ctx context.Context, filter core.DeliveryLogFilter) (core.DeliveryLogPage, error) {
	if s.history == nil {
		return core.DeliveryLogPage{}, core.NewError("lawcast: delivery history is not configured", goerrors.CategoryOperation, core.ErrorInternal).
			WithCode(http.StatusNotImplemented)
	}
	page, err := s.history.List(ctx, filter)
	if err != nil {
		return core.DeliveryLogPage{}, core.MapError(fmt.Errorf("lawcast: list delivery history: %w", err))
	}
	return page, nil
}
