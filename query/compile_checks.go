package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-lawcast/core"
)

var (
	_ gocmd.Querier[RecentNoticesMessage, []core.Notice]          = (*RecentNoticesQuery)(nil)
	_ gocmd.Querier[CacheInfoMessage, core.CacheInfo]             = (*CacheInfoQuery)(nil)
	_ gocmd.Querier[StatsMessage, core.ServiceStats]              = (*StatsQuery)(nil)
	_ gocmd.Querier[HealthMessage, core.HealthStatus]             = (*HealthQuery)(nil)
	_ gocmd.Querier[DeliveryHistoryMessage, core.DeliveryLogPage] = (*DeliveryHistoryQuery)(nil)
)
