package poller

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-lawcast/core"
	"github.com/google/uuid"
)

const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
	TriggerQueue    = "queue"

	SkipNotReady     = "not_ready"
	SkipBusy         = "busy"
	SkipShuttingDown = "shutting_down"
)

type Option func(*Orchestrator)

func WithLogger(logger core.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.observer.Logger = logger
		}
	}
}

func WithMetricsRecorder(metrics core.MetricsRecorder) Option {
	return func(o *Orchestrator) {
		if metrics != nil {
			o.observer.Metrics = metrics
		}
	}
}

func WithCycleObserver(observer core.CycleObserver) Option {
	return func(o *Orchestrator) {
		if observer != nil {
			o.cycles = observer
		}
	}
}

func WithLedger(ledger core.DeliveryLedger) Option {
	return func(o *Orchestrator) {
		o.ledger = ledger
	}
}

func WithInterval(interval time.Duration) Option {
	return func(o *Orchestrator) {
		if interval > 0 {
			o.interval = interval
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

func WithCycleIDGenerator(next func() string) Option {
	return func(o *Orchestrator) {
		if next != nil {
			o.nextCycleID = next
		}
	}
}

type Orchestrator struct {
	fetcher  core.NoticeFetcher
	cache    core.NoticeCache
	registry core.DestinationRegistry
	notifier core.Notifier
	ledger   core.DeliveryLedger

	observer    core.Observer
	cycles      core.CycleObserver
	interval    time.Duration
	now         func() time.Time
	nextCycleID func() string

	ready   atomic.Bool
	polling atomic.Bool

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

func New(
	fetcher core.NoticeFetcher,
	cache core.NoticeCache,
	registry core.DestinationRegistry,
	notifier core.Notifier,
	opts ...Option,
) (*Orchestrator, error) {
	missing := []string{}
	if fetcher == nil {
		missing = append(missing, "fetcher")
	}
	if cache == nil {
		missing = append(missing, "cache")
	}
	if registry == nil {
		missing = append(missing, "registry")
	}
	if notifier == nil {
		missing = append(missing, "notifier")
	}
	if len(missing) > 0 {
		return nil, core.NewError(
			fmt.Sprintf("poller: missing dependencies %v", missing),
			goerrors.CategoryBadInput,
			core.ErrorBadInput,
		)
	}

	o := &Orchestrator{
		fetcher:     fetcher,
		cache:       cache,
		registry:    registry,
		notifier:    notifier,
		observer:    core.NewObserver(nil, nil, "lawcast.poll"),
		cycles:      core.NopCycleObserver{},
		interval:    core.DefaultPollInterval,
		now:         func() time.Time { return time.Now().UTC() },
		nextCycleID: uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o, nil
}

// Initialize seeds the cache from one fetch without notifying anyone. A
// fetch failure leaves the orchestrator not ready and is returned. An empty
// fetch marks it ready with an unseeded cache, so the first cycle builds the
// baseline silently.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	startedAt := time.Now()
	notices, err := o.fetcher.Fetch(ctx)
	if err != nil {
		if !core.IsFetchError(err) {
			err = core.NewFetchError(err, "poller: initial fetch failed")
		}
		o.observer.ObserveOperation(ctx, startedAt, "initialize", err, nil)
		return err
	}
	if len(notices) == 0 {
		o.observer.Warn(ctx, "initial fetch returned no notices, cache left unseeded", nil)
	} else {
		o.cache.Initialize(notices)
	}
	o.ready.Store(true)
	o.observer.ObserveOperation(ctx, startedAt, "initialize", nil, map[string]any{"fetched": len(notices)})
	return nil
}

func (o *Orchestrator) Ready() bool {
	return o.ready.Load()
}

func (o *Orchestrator) Busy() bool {
	return o.polling.Load()
}

// ShuttingDown reports whether Shutdown has been called.
func (o *Orchestrator) ShuttingDown() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

// Tick runs one scheduled cycle. It returns false when the tick was dropped.
func (o *Orchestrator) Tick(ctx context.Context) (core.CycleReport, bool) {
	return o.Trigger(ctx, TriggerSchedule)
}

// Trigger runs one cycle on behalf of trigger, under the same single-flight
// guard as Tick.
func (o *Orchestrator) Trigger(ctx context.Context, trigger string) (core.CycleReport, bool) {
	if ctx == nil {
		ctx = context.Background()
	}
	if trigger == "" {
		trigger = TriggerManual
	}
	if reason := o.begin(); reason != "" {
		o.observer.Warn(ctx, "poll cycle skipped", map[string]any{"trigger": trigger, "reason": reason})
		o.observer.Count(ctx, "skipped.total", 1, map[string]string{"trigger": trigger, "reason": reason})
		o.cycles.OnCycleSkipped(ctx, trigger, reason)
		return core.CycleReport{Trigger: trigger}, false
	}
	report := core.CycleReport{
		CycleID:   o.nextCycleID(),
		Trigger:   trigger,
		StartedAt: o.now(),
	}
	o.cycle(context.WithoutCancel(ctx), &report)
	return report, true
}

// Run ticks every interval until ctx is done. Cycles started before ctx
// ends keep running; use Shutdown to wait for them.
func (o *Orchestrator) Run(ctx context.Context) error {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()
	o.observer.Info(ctx, "poll scheduler started", map[string]any{"interval": o.interval.String()})
	for {
		select {
		case <-ctx.Done():
			o.observer.Info(ctx, "poll scheduler stopped", nil)
			return nil
		case <-ticker.C:
			go o.Tick(ctx)
		}
	}
}

// Shutdown stops accepting cycles and waits for the running one, bounded by
// ctx.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		o.inflight.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return core.WrapError(ctx.Err(), goerrors.CategoryOperation, "poller: shutdown grace elapsed before cycle drained", core.ErrorInternal)
	}
}

func (o *Orchestrator) begin() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return SkipShuttingDown
	}
	if !o.ready.Load() {
		return SkipNotReady
	}
	if !o.polling.CompareAndSwap(false, true) {
		return SkipBusy
	}
	o.inflight.Add(1)
	return ""
}

func (o *Orchestrator) cycle(ctx context.Context, report *core.CycleReport) {
	startedAt := time.Now()
	defer func() {
		defer func() {
			o.polling.Store(false)
			o.inflight.Done()
		}()
		if recovered := recover(); recovered != nil {
			report.Err = core.NewError(
				fmt.Sprintf("poller: cycle panicked: %v", recovered),
				goerrors.CategoryInternal,
				core.ErrorInternal,
			)
		}
		report.Duration = time.Since(startedAt)

		o.observer.ObserveOperation(ctx, startedAt, "cycle", report.Err, map[string]any{
			"cycle_id":     report.CycleID,
			"trigger":      report.Trigger,
			"fetched":      report.Fetched,
			"new":          report.New,
			"destinations": report.Destinations,
			"failures":     report.Failures(),
			"deactivated":  len(report.Deactivated),
		})
		o.cycles.OnCycleComplete(ctx, *report)
	}()
	o.cycles.OnCycleStart(ctx, *report)

	fetched, err := o.fetcher.Fetch(ctx)
	if err != nil {
		if !core.IsFetchError(err) {
			err = core.NewFetchError(err, "poller: fetch failed")
		}
		report.Err = err
		return
	}
	report.Fetched = len(fetched)
	if len(fetched) == 0 {
		o.observer.Warn(ctx, "fetch returned no notices", map[string]any{"cycle_id": report.CycleID})
		return
	}

	fresh := o.cache.DiffNew(fetched)
	report.New = len(fresh)
	if len(fresh) == 0 {
		o.cache.Update(fetched)
		return
	}

	destinations, err := o.registry.ListActive(ctx)
	if err != nil {
		// cache is left as it was so the next cycle reports these notices again
		report.Err = core.WrapError(err, goerrors.CategoryOperation, "poller: list active destinations", core.ErrorInternal)
		return
	}
	o.cache.Update(fetched)
	report.Destinations = len(destinations)
	if len(destinations) == 0 {
		o.observer.Warn(ctx, "new notices found but no active destinations", map[string]any{
			"cycle_id": report.CycleID,
			"new":      len(fresh),
		})
		return
	}

	report.Results = o.notifier.SendBatch(ctx, fresh, destinations)
	o.recordDeliveries(ctx, *report)

	ids := deactivationIDs(report.Results)
	if len(ids) == 0 {
		return
	}
	if err := o.registry.DeactivateMany(ctx, ids); err != nil {
		report.Err = core.WrapError(err, goerrors.CategoryOperation, "poller: deactivate destinations", core.ErrorInternal)
		return
	}
	report.Deactivated = ids
	o.observer.Warn(ctx, "deactivated destinations after permanent failures", map[string]any{
		"cycle_id":        report.CycleID,
		"destination_ids": ids,
	})
}

func (o *Orchestrator) recordDeliveries(ctx context.Context, report core.CycleReport) {
	if o.ledger == nil {
		return
	}
	for _, result := range report.Results {
		entry := core.DeliveryLogEntry{
			CycleID:       report.CycleID,
			NoticeNumber:  result.NoticeNumber,
			DestinationID: result.DestinationID,
			Outcome:       result.Outcome,
			Error:         result.ErrorMessage(),
			Metadata:      map[string]any{"trigger": report.Trigger},
		}
		if err := o.ledger.Record(ctx, entry); err != nil {
			o.observer.Error(ctx, "record delivery failed", map[string]any{
				"cycle_id":       report.CycleID,
				"destination_id": result.DestinationID,
				"error":          err.Error(),
			})
		}
	}
}

func deactivationIDs(results []core.DeliveryResult) []int64 {
	seen := map[int64]struct{}{}
	ids := []int64{}
	for _, result := range results {
		if !result.ShouldDeactivate() {
			continue
		}
		if _, ok := seen[result.DestinationID]; ok {
			continue
		}
		seen[result.DestinationID] = struct{}{}
		ids = append(ids, result.DestinationID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
