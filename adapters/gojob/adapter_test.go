package gojob

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-lawcast/core"
	"github.com/goliatone/go-lawcast/poller"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
)

func TestPollEnqueuerPublishesPollMessage(t *testing.T) {
	enqueuer := &stubQueueEnqueuer{}
	adapter := NewPollEnqueuer(enqueuer)
	adapter.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	if err := adapter.EnqueuePoll(context.Background(), ""); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if enqueuer.last == nil || enqueuer.last.JobID != JobIDPoll {
		t.Fatalf("expected poll job message, got %#v", enqueuer.last)
	}
	if enqueuer.last.Parameters["reason"] != poller.TriggerQueue {
		t.Fatalf("expected default reason, got %v", enqueuer.last.Parameters["reason"])
	}
	if enqueuer.last.IdempotencyKey == "" {
		t.Fatalf("expected idempotency key")
	}

	if err := (&PollEnqueuer{}).EnqueuePoll(context.Background(), "x"); err == nil {
		t.Fatalf("expected unconfigured enqueuer error")
	}
}

func TestPollConsumerAcksWhenCycleRuns(t *testing.T) {
	delivery := &stubQueueDelivery{msg: NewPollMessage("manual", time.Now())}
	trigger := &stubPoller{run: true}
	consumer, err := NewPollConsumer(&stubQueueDequeuer{deliveries: []queue.Delivery{delivery}}, trigger)
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}

	_, ran, err := consumer.ConsumeOne(context.Background())
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if !ran || !delivery.acked {
		t.Fatalf("expected cycle to run and delivery to be acked")
	}
	if trigger.triggers[0] != poller.TriggerQueue {
		t.Fatalf("expected queue trigger, got %q", trigger.triggers[0])
	}
}

func TestPollConsumerRequeuesDroppedPollsUntilExhausted(t *testing.T) {
	msg := NewPollMessage("manual", time.Now())
	deliveries := []*stubQueueDelivery{{msg: msg}, {msg: msg}, {msg: msg}}
	queued := make([]queue.Delivery, 0, len(deliveries))
	for _, delivery := range deliveries {
		queued = append(queued, delivery)
	}
	consumer, err := NewPollConsumer(
		&stubQueueDequeuer{deliveries: queued},
		&stubPoller{run: false},
		WithRetryPolicy(RetryPolicy{MaxAttempts: 3, MaxDelay: 10 * time.Second}),
		WithBusyDelay(time.Minute),
	)
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}

	for i := range deliveries {
		if _, ran, err := consumer.ConsumeOne(context.Background()); err != nil || ran {
			t.Fatalf("consume %d: ran=%v err=%v", i, ran, err)
		}
	}

	for i := 0; i < 2; i++ {
		if !deliveries[i].nacked || !deliveries[i].nackOpts.Requeue {
			t.Fatalf("expected delivery %d to be requeued", i)
		}
		if deliveries[i].nackOpts.Delay != 10*time.Second {
			t.Fatalf("expected bounded delay, got %s", deliveries[i].nackOpts.Delay)
		}
	}
	if deliveries[2].nacked || !deliveries[2].acked {
		t.Fatalf("expected exhausted poll request to be acked and discarded")
	}
}

func TestPollConsumerDeadLettersUnknownJobs(t *testing.T) {
	delivery := &stubQueueDelivery{msg: &job.ExecutionMessage{JobID: "other.job"}}
	consumer, err := NewPollConsumer(&stubQueueDequeuer{deliveries: []queue.Delivery{delivery}}, &stubPoller{run: true})
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}
	if _, ran, err := consumer.ConsumeOne(context.Background()); err != nil || ran {
		t.Fatalf("unexpected consume result ran=%v err=%v", ran, err)
	}
	if !delivery.nacked || !delivery.nackOpts.DeadLetter {
		t.Fatalf("expected dead letter for unknown job")
	}
}

func TestPollConsumerRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	dequeuer := &stubQueueDequeuer{}
	consumer, err := NewPollConsumer(dequeuer, &stubPoller{run: true}, WithIdleDelay(time.Millisecond))
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- consumer.Run(ctx) }()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("consumer did not stop")
	}
}

func TestNewPollConsumerRequiresDependencies(t *testing.T) {
	if _, err := NewPollConsumer(nil, &stubPoller{}); err == nil {
		t.Fatalf("expected missing dequeuer error")
	}
	if _, err := NewPollConsumer(&stubQueueDequeuer{}, nil); err == nil {
		t.Fatalf("expected missing poller error")
	}
}

func TestWorkerHookAdapterMapsPollEvents(t *testing.T) {
	observer := &capturingCycleObserver{}
	adapter := NewWorkerHookAdapter(observer)
	startedAt := time.Now().UTC().Add(-time.Second)
	msg := NewPollMessage("manual", startedAt)

	adapter.OnStart(context.Background(), worker.Event{Message: msg, StartedAt: startedAt})
	adapter.OnFailure(context.Background(), worker.Event{
		Message:   msg,
		StartedAt: startedAt,
		Duration:  250 * time.Millisecond,
		Err:       errors.New("boom"),
	})
	adapter.OnRetry(context.Background(), worker.Event{Message: msg, Attempt: 2})
	adapter.OnSuccess(context.Background(), worker.Event{Message: &job.ExecutionMessage{JobID: "other"}})

	if observer.started != 1 {
		t.Fatalf("expected one start, got %d", observer.started)
	}
	if len(observer.completed) != 1 {
		t.Fatalf("expected one completion, got %d", len(observer.completed))
	}
	report := observer.completed[0]
	if report.Trigger != poller.TriggerQueue || report.Err == nil || report.Duration != 250*time.Millisecond {
		t.Fatalf("unexpected report %#v", report)
	}
	if report.CycleID != msg.IdempotencyKey {
		t.Fatalf("expected idempotency key as cycle id")
	}
	if len(observer.skipped) != 1 || observer.skipped[0] != "retry attempt 2" {
		t.Fatalf("expected retry mapped to skip, got %v", observer.skipped)
	}
}

func TestRetryPolicyNormalizeAttempt(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 2, MaxDelay: time.Second}
	opts := policy.NormalizeAttempt(queue.NackOptions{Delay: -time.Second, Requeue: true, Reason: " busy "}, 1)
	if opts.Delay != 0 || !opts.Requeue || opts.Reason != "busy" {
		t.Fatalf("unexpected normalized options %#v", opts)
	}
	opts = policy.NormalizeAttempt(queue.NackOptions{Delay: time.Minute, Requeue: true}, 2)
	if opts.Requeue || opts.Delay != time.Second {
		t.Fatalf("expected exhausted attempt to stop requeue, got %#v", opts)
	}
}

type stubQueueEnqueuer struct {
	last *job.ExecutionMessage
}

func (s *stubQueueEnqueuer) Enqueue(_ context.Context, msg *job.ExecutionMessage) error {
	s.last = msg
	return nil
}

type stubQueueDequeuer struct {
	deliveries []queue.Delivery
}

func (s *stubQueueDequeuer) Dequeue(context.Context) (queue.Delivery, error) {
	if len(s.deliveries) == 0 {
		return nil, errors.New("queue empty")
	}
	next := s.deliveries[0]
	s.deliveries = s.deliveries[1:]
	return next, nil
}

type stubQueueDelivery struct {
	msg      *job.ExecutionMessage
	acked    bool
	nacked   bool
	nackOpts queue.NackOptions
}

func (s *stubQueueDelivery) Message() *job.ExecutionMessage {
	return s.msg
}

func (s *stubQueueDelivery) Ack(context.Context) error {
	s.acked = true
	return nil
}

func (s *stubQueueDelivery) Nack(_ context.Context, opts queue.NackOptions) error {
	s.nacked = true
	s.nackOpts = opts
	return nil
}

type stubPoller struct {
	run      bool
	triggers []string
}

func (s *stubPoller) Trigger(_ context.Context, trigger string) (core.CycleReport, bool) {
	s.triggers = append(s.triggers, trigger)
	return core.CycleReport{Trigger: trigger}, s.run
}

type capturingCycleObserver struct {
	started   int
	completed []core.CycleReport
	skipped   []string
}

func (c *capturingCycleObserver) OnCycleStart(context.Context, core.CycleReport) {
	c.started++
}

func (c *capturingCycleObserver) OnCycleComplete(_ context.Context, report core.CycleReport) {
	c.completed = append(c.completed, report)
}

func (c *capturingCycleObserver) OnCycleSkipped(_ context.Context, _ string, reason string) {
	c.skipped = append(c.skipped, reason)
}
