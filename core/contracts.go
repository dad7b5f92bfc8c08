package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// NoticeFetcher returns the current notice list from the upstream source.
type NoticeFetcher interface {
	Fetch(ctx context.Context) ([]Notice, error)
}

type NoticeFetcherFunc func(ctx context.Context) ([]Notice, error)

func (f NoticeFetcherFunc) Fetch(ctx context.Context) ([]Notice, error) {
	return f(ctx)
}

type DestinationRegistry interface {
	ListActive(ctx context.Context) ([]Destination, error)
	// DeactivateMany is a no-op for an empty id list.
	DeactivateMany(ctx context.Context, ids []int64) error
}

type DestinationStore interface {
	DestinationRegistry
	Create(ctx context.Context, url string) (Destination, error)
	Get(ctx context.Context, id int64) (Destination, error)
	FindByURL(ctx context.Context, url string) (Destination, error)
	Deactivate(ctx context.Context, id int64) error
	Reactivate(ctx context.Context, id int64) (Destination, error)
	CountActive(ctx context.Context) (int, error)
	Stats(ctx context.Context) (DestinationStats, error)
}

// NoticeCache is the change-detection cache the poller drives.
type NoticeCache interface {
	Initialize(notices []Notice)
	Update(notices []Notice)
	DiffNew(notices []Notice) []Notice
	Recent(limit int) []Notice
	Info() CacheInfo
}

type Deliverer interface {
	Deliver(ctx context.Context, url string, message WebhookMessage) error
}

type Notifier interface {
	SendBatch(ctx context.Context, notices []Notice, destinations []Destination) []DeliveryResult
	TestSend(ctx context.Context, destination Destination) DeliveryResult
}

// DeliveryLedger records fan-out attempts. Recording the same attempt twice
// is not an error.
type DeliveryLedger interface {
	Record(ctx context.Context, entry DeliveryLogEntry) error
}

type DeliveryHistory interface {
	List(ctx context.Context, filter DeliveryLogFilter) (DeliveryLogPage, error)
}

// RegistrationVerifier guards destination registration against abuse.
type RegistrationVerifier interface {
	Verify(ctx context.Context, token string, remoteIP string) (bool, error)
}

// RegistrationRecorder is implemented by verifiers that track accepted
// registrations. It is called only once a destination has been stored.
type RegistrationRecorder interface {
	RecordRegistration(ctx context.Context, remoteIP string)
}

type CycleReport struct {
	CycleID      string
	Trigger      string
	Fetched      int
	New          int
	Destinations int
	Results      []DeliveryResult
	Deactivated  []int64
	StartedAt    time.Time
	Duration     time.Duration
	Err          error
}

func (r CycleReport) Failures() int {
	count := 0
	for _, result := range r.Results {
		if !result.Success() {
			count++
		}
	}
	return count
}

type CycleObserver interface {
	OnCycleStart(ctx context.Context, report CycleReport)
	OnCycleComplete(ctx context.Context, report CycleReport)
	OnCycleSkipped(ctx context.Context, trigger string, reason string)
}
