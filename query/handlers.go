package query

import (
	"context"

	"github.com/goliatone/go-lawcast/core"
)

type NoticeReader interface {
	RecentNotices(limit int) []core.Notice
	CacheInfo() core.CacheInfo
}

type StatsReader interface {
	Stats(ctx context.Context) (core.ServiceStats, error)
}

type HealthReader interface {
	Health() core.HealthStatus
}

type DeliveryHistoryReader interface {
	DeliveryHistory(ctx context.Context, filter core.DeliveryLogFilter) (core.DeliveryLogPage, error)
}

type RecentNoticesQuery struct {
	reader NoticeReader
}

func NewRecentNoticesQuery(reader NoticeReader) *RecentNoticesQuery {
	return &RecentNoticesQuery{reader: reader}
}

func (q *RecentNoticesQuery) Query(_ context.Context, msg RecentNoticesMessage) ([]core.Notice, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: notice reader is required")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return q.reader.RecentNotices(msg.Limit), nil
}

type CacheInfoQuery struct {
	reader NoticeReader
}

func NewCacheInfoQuery(reader NoticeReader) *CacheInfoQuery {
	return &CacheInfoQuery{reader: reader}
}

func (q *CacheInfoQuery) Query(context.Context, CacheInfoMessage) (core.CacheInfo, error) {
	if q == nil || q.reader == nil {
		return core.CacheInfo{}, queryDependencyError("query: notice reader is required")
	}
	return q.reader.CacheInfo(), nil
}

type StatsQuery struct {
	reader StatsReader
}

func NewStatsQuery(reader StatsReader) *StatsQuery {
	return &StatsQuery{reader: reader}
}

func (q *StatsQuery) Query(ctx context.Context, _ StatsMessage) (core.ServiceStats, error) {
	if q == nil || q.reader == nil {
		return core.ServiceStats{}, queryDependencyError("query: stats reader is required")
	}
	return q.reader.Stats(ctx)
}

type HealthQuery struct {
	reader HealthReader
}

func NewHealthQuery(reader HealthReader) *HealthQuery {
	return &HealthQuery{reader: reader}
}

func (q *HealthQuery) Query(context.Context, HealthMessage) (core.HealthStatus, error) {
	if q == nil || q.reader == nil {
		return core.HealthStatus{}, queryDependencyError("query: health reader is required")
	}
	return q.reader.Health(), nil
}

type DeliveryHistoryQuery struct {
	reader DeliveryHistoryReader
}

func NewDeliveryHistoryQuery(reader DeliveryHistoryReader) *DeliveryHistoryQuery {
	return &DeliveryHistoryQuery{reader: reader}
}

func (q *DeliveryHistoryQuery) Query(ctx context.Context, msg DeliveryHistoryMessage) (core.DeliveryLogPage, error) {
	if q == nil || q.reader == nil {
		return core.DeliveryLogPage{}, queryDependencyError("query: delivery history reader is required")
	}
	if err := msg.Validate(); err != nil {
		return core.DeliveryLogPage{}, err
	}
	return q.reader.DeliveryHistory(ctx, msg.Filter)
}
