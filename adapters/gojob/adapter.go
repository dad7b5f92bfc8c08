package gojob

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-lawcast/core"
	"github.com/goliatone/go-lawcast/poller"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
)

const (
	JobIDPoll = "lawcast.poll"

	DefaultBusyDelay = 30 * time.Second
	DefaultIdleDelay = time.Second
)

// RetryPolicy bounds how often a dropped poll request is put back on the
// queue.
type RetryPolicy struct {
	MaxAttempts int
	MaxDelay    time.Duration
}

// NormalizeAttempt bounds the nack delay. Once MaxAttempts is reached the
// request is no longer requeued.
func (p RetryPolicy) NormalizeAttempt(opts queue.NackOptions, attempt int) queue.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
	}
	return out
}

// Exhausted reports whether attempt is past the retry budget.
func (p RetryPolicy) Exhausted(attempt int) bool {
	return p.MaxAttempts > 0 && attempt >= p.MaxAttempts
}

// NewPollMessage builds the execution message for one queued poll request.
func NewPollMessage(reason string, requestedAt time.Time) *job.ExecutionMessage {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = poller.TriggerQueue
	}
	return &job.ExecutionMessage{
		JobID:      JobIDPoll,
		ScriptPath: JobIDPoll,
		Parameters: map[string]any{
			"reason":       reason,
			"requested_at": requestedAt.UTC().Format(time.RFC3339Nano),
		},
		IdempotencyKey: fmt.Sprintf("%s:%d", JobIDPoll, requestedAt.UTC().UnixNano()),
		DedupPolicy:    job.DeduplicationPolicy("drop"),
	}
}

func IsPollMessage(msg *job.ExecutionMessage) bool {
	return msg != nil && strings.TrimSpace(msg.JobID) == JobIDPoll
}

type PollEnqueuer struct {
	enqueuer queue.Enqueuer
	now      func() time.Time
}

func NewPollEnqueuer(enqueuer queue.Enqueuer) *PollEnqueuer {
	return &PollEnqueuer{
		enqueuer: enqueuer,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// EnqueuePoll publishes a poll request. The consumer runs it through the
// orchestrator's single-flight guard.
func (e *PollEnqueuer) EnqueuePoll(ctx context.Context, reason string) error {
	if e == nil || e.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	return e.enqueuer.Enqueue(ctx, NewPollMessage(reason, e.now()))
}

// Poller is the part of the orchestrator the consumer drives.
type Poller interface {
	Trigger(ctx context.Context, trigger string) (core.CycleReport, bool)
}

type ConsumerOption func(*PollConsumer)

func WithRetryPolicy(policy RetryPolicy) ConsumerOption {
	return func(c *PollConsumer) {
		c.policy = policy
	}
}

func WithBusyDelay(delay time.Duration) ConsumerOption {
	return func(c *PollConsumer) {
		if delay >= 0 {
			c.busyDelay = delay
		}
	}
}

func WithIdleDelay(delay time.Duration) ConsumerOption {
	return func(c *PollConsumer) {
		if delay > 0 {
			c.idleDelay = delay
		}
	}
}

func WithLogger(logger core.Logger) ConsumerOption {
	return func(c *PollConsumer) {
		if logger != nil {
			c.observer.Logger = logger
		}
	}
}

func WithMetricsRecorder(metrics core.MetricsRecorder) ConsumerOption {
	return func(c *PollConsumer) {
		if metrics != nil {
			c.observer.Metrics = metrics
		}
	}
}

// PollConsumer turns queued poll requests into orchestrator cycles. A request
// that ran is acked whatever the cycle outcome. A request dropped by the
// single-flight guard is nacked for redelivery until the retry policy gives
// up, then acked and discarded.
type PollConsumer struct {
	dequeuer  queue.Dequeuer
	poller    Poller
	policy    RetryPolicy
	busyDelay time.Duration
	idleDelay time.Duration
	observer  core.Observer

	mu       sync.Mutex
	attempts map[string]int
}

func NewPollConsumer(dequeuer queue.Dequeuer, poller Poller, opts ...ConsumerOption) (*PollConsumer, error) {
	if dequeuer == nil {
		return nil, fmt.Errorf("gojob: dequeuer is required")
	}
	if poller == nil {
		return nil, fmt.Errorf("gojob: poller is required")
	}
	consumer := &PollConsumer{
		dequeuer:  dequeuer,
		poller:    poller,
		policy:    RetryPolicy{MaxAttempts: 3, MaxDelay: 5 * time.Minute},
		busyDelay: DefaultBusyDelay,
		idleDelay: DefaultIdleDelay,
		observer:  core.NewObserver(nil, nil, "lawcast.queue"),
		attempts:  map[string]int{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(consumer)
		}
	}
	return consumer, nil
}

// ConsumeOne handles a single delivery. It reports whether a cycle ran.
func (c *PollConsumer) ConsumeOne(ctx context.Context) (core.CycleReport, bool, error) {
	delivery, err := c.dequeuer.Dequeue(ctx)
	if err != nil {
		return core.CycleReport{}, false, err
	}
	if delivery == nil {
		return core.CycleReport{}, false, nil
	}

	msg := delivery.Message()
	if !IsPollMessage(msg) {
		jobID := ""
		if msg != nil {
			jobID = msg.JobID
		}
		c.observer.Warn(ctx, "unsupported job discarded", map[string]any{"job_id": jobID})
		return core.CycleReport{}, false, delivery.Nack(ctx, queue.NackOptions{
			DeadLetter: true,
			Reason:     "unsupported job " + jobID,
		})
	}

	key := strings.TrimSpace(msg.IdempotencyKey)
	report, ran := c.poller.Trigger(ctx, poller.TriggerQueue)
	if ran {
		c.forget(key)
		c.observer.Count(ctx, "consumed.total", 1, map[string]string{"outcome": "ran"})
		return report, true, delivery.Ack(ctx)
	}

	attempt := c.remember(key)
	if c.policy.Exhausted(attempt) {
		c.forget(key)
		c.observer.Warn(ctx, "queued poll discarded after repeated drops", map[string]any{
			"idempotency_key": key,
			"attempts":        attempt,
		})
		c.observer.Count(ctx, "consumed.total", 1, map[string]string{"outcome": "discarded"})
		return report, false, delivery.Ack(ctx)
	}
	c.observer.Count(ctx, "consumed.total", 1, map[string]string{"outcome": "requeued"})
	return report, false, delivery.Nack(ctx, c.policy.NormalizeAttempt(queue.NackOptions{
		Delay:   c.busyDelay,
		Requeue: true,
		Reason:  "poll cycle dropped",
	}, attempt))
}

// Run consumes until ctx is done.
func (c *PollConsumer) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		if _, _, err := c.ConsumeOne(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.observer.Debug(ctx, "poll consumer idle", map[string]any{"error": err.Error()})
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.idleDelay):
			}
		}
	}
}

func (c *PollConsumer) remember(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts[key]++
	return c.attempts[key]
}

func (c *PollConsumer) forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.attempts, key)
}

// WorkerHookAdapter reports go-job worker runs of the poll job as cycle
// events.
type WorkerHookAdapter struct {
	observer core.CycleObserver
}

func NewWorkerHookAdapter(observer core.CycleObserver) *WorkerHookAdapter {
	return &WorkerHookAdapter{observer: observer}
}

func (a *WorkerHookAdapter) OnStart(ctx context.Context, event worker.Event) {
	report, ok := a.report(event)
	if !ok {
		return
	}
	a.observer.OnCycleStart(ctx, report)
}

func (a *WorkerHookAdapter) OnSuccess(ctx context.Context, event worker.Event) {
	report, ok := a.report(event)
	if !ok {
		return
	}
	a.observer.OnCycleComplete(ctx, report)
}

func (a *WorkerHookAdapter) OnFailure(ctx context.Context, event worker.Event) {
	report, ok := a.report(event)
	if !ok {
		return
	}
	a.observer.OnCycleComplete(ctx, report)
}

func (a *WorkerHookAdapter) OnRetry(ctx context.Context, event worker.Event) {
	if _, ok := a.report(event); !ok {
		return
	}
	a.observer.OnCycleSkipped(ctx, poller.TriggerQueue, fmt.Sprintf("retry attempt %d", event.Attempt))
}

func (a *WorkerHookAdapter) report(event worker.Event) (core.CycleReport, bool) {
	if a == nil || a.observer == nil {
		return core.CycleReport{}, false
	}
	message := event.Message
	if message == nil && event.Delivery != nil {
		message = event.Delivery.Message()
	}
	if !IsPollMessage(message) {
		return core.CycleReport{}, false
	}
	return core.CycleReport{
		CycleID:   strings.TrimSpace(message.IdempotencyKey),
		Trigger:   poller.TriggerQueue,
		StartedAt: event.StartedAt,
		Duration:  event.Duration,
		Err:       event.Err,
	}, true
}

var (
	_ worker.Hook = (*WorkerHookAdapter)(nil)
	_ Poller      = (*poller.Orchestrator)(nil)
)
