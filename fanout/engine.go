package fanout

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-lawcast/core"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type Option func(*Engine)

func WithLogger(logger core.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.observer.Logger = logger
		}
	}
}

func WithMetricsRecorder(metrics core.MetricsRecorder) Option {
	return func(e *Engine) {
		if metrics != nil {
			e.observer.Metrics = metrics
		}
	}
}

func WithMessageBuilder(builder MessageBuilder) Option {
	return func(e *Engine) {
		e.builder = builder
	}
}

// WithLimiter paces every delivery attempt of the engine. A nil limiter
// disables pacing.
func WithLimiter(limiter *rate.Limiter) Option {
	return func(e *Engine) {
		e.limiter = limiter
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine delivers notices to destinations. It never retries; failures come
// back as classified results.
type Engine struct {
	deliverer   core.Deliverer
	builder     MessageBuilder
	timeout     time.Duration
	concurrency int
	limiter     *rate.Limiter
	observer    core.Observer
	now         func() time.Time
}

func New(deliverer core.Deliverer, cfg core.DeliveryConfig, opts ...Option) *Engine {
	if deliverer == nil {
		deliverer = NewWebhookDeliverer(nil)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = core.DefaultDeliveryTimeout
	}
	concurrency := cfg.MaxConcurrency
	if concurrency <= 0 {
		concurrency = core.DefaultMaxConcurrency
	}
	e := &Engine{
		deliverer:   deliverer,
		builder:     MessageBuilder{Username: cfg.Username, AvatarURL: cfg.AvatarURL},
		timeout:     timeout,
		concurrency: concurrency,
		observer:    core.NewObserver(nil, nil, "lawcast.delivery"),
		now:         func() time.Time { return time.Now().UTC() },
	}
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = core.DefaultDeliveryBurst
		}
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// SendBatch attempts every (notice, destination) pair once and returns one
// result per pair, ordered notice-major. It returns only after every attempt
// has settled; a failing pair never cancels the others.
//
// Each destination gets its own lane and all lanes run at once. The
// concurrency limit bounds in-flight sends within a lane, so a destination
// that hangs until the timeout only delays its own pairs.
func (e *Engine) SendBatch(ctx context.Context, notices []core.Notice, destinations []core.Destination) []core.DeliveryResult {
	total := len(notices) * len(destinations)
	if total == 0 {
		return []core.DeliveryResult{}
	}
	startedAt := time.Now()
	results := make([]core.DeliveryResult, total)

	var lanes errgroup.Group
	for j, destination := range destinations {
		lanes.Go(func() error {
			var lane errgroup.Group
			lane.SetLimit(e.concurrency)
			for i, notice := range notices {
				index := i*len(destinations) + j
				lane.Go(func() error {
					results[index] = e.Send(ctx, notice, destination)
					return nil
				})
			}
			return lane.Wait()
		})
	}
	_ = lanes.Wait()

	delivered, transient, permanent := tally(results)
	e.observer.ObserveOperation(ctx, startedAt, "send_batch", nil, map[string]any{
		"notices":      len(notices),
		"destinations": len(destinations),
		"delivered":    delivered,
		"transient":    transient,
		"permanent":    permanent,
	})
	return results
}

func (e *Engine) Send(ctx context.Context, notice core.Notice, destination core.Destination) core.DeliveryResult {
	message := e.builder.Notice(notice, e.now())
	return e.deliver(ctx, notice.Number, destination, message)
}

// TestSend delivers a probe message to a single destination. The result has
// a zero NoticeNumber.
func (e *Engine) TestSend(ctx context.Context, destination core.Destination) core.DeliveryResult {
	return e.deliver(ctx, 0, destination, e.builder.Probe(e.now()))
}

func (e *Engine) deliver(
	ctx context.Context,
	noticeNumber int64,
	destination core.Destination,
	message core.WebhookMessage,
) (result core.DeliveryResult) {
	if ctx == nil {
		ctx = context.Background()
	}
	result = core.DeliveryResult{NoticeNumber: noticeNumber, DestinationID: destination.ID}
	startedAt := time.Now()
	defer func() {
		if recovered := recover(); recovered != nil {
			result.Err = core.NewError(
				fmt.Sprintf("fanout: delivery panicked: %v", recovered),
				goerrors.CategoryInternal,
				core.ErrorDeliveryFailed,
			)
			result.Outcome = core.DeliveryOutcomeTransientFailure
		}
		tags := map[string]string{"outcome": string(result.Outcome)}
		e.observer.Count(ctx, "attempt.total", 1, tags)
		e.observer.Histogram(ctx, "attempt.duration_ms", float64(time.Since(startedAt).Milliseconds()), tags)
		if !result.Success() {
			e.observer.Warn(ctx, "webhook delivery failed", map[string]any{
				"destination_id": destination.ID,
				"notice":         noticeNumber,
				"outcome":        string(result.Outcome),
				"error":          result.ErrorMessage(),
			})
		}
	}()

	sendCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if e.limiter != nil {
		if err := e.limiter.Wait(sendCtx); err != nil {
			result.Err = core.WrapError(err, goerrors.CategoryRateLimit, "fanout: delivery pacing wait failed", core.ErrorRateLimited)
			result.Outcome = core.DeliveryOutcomeTransientFailure
			return result
		}
	}

	err := e.deliverer.Deliver(sendCtx, destination.URL, message)
	result.Err = err
	result.Outcome = Classify(err)
	return result
}

func tally(results []core.DeliveryResult) (delivered int, transient int, permanent int) {
	for _, result := range results {
		switch result.Outcome {
		case core.DeliveryOutcomeDelivered:
			delivered++
		case core.DeliveryOutcomePermanentFailure:
			permanent++
		default:
			transient++
		}
	}
	return delivered, transient, permanent
}

var _ core.Notifier = (*Engine)(nil)
