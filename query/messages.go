package query

import (
	"strings"

	"github.com/goliatone/go-lawcast/core"
)

const (
	TypeRecentNotices   = "lawcast.query.notices.recent"
	TypeCacheInfo       = "lawcast.query.cache.info"
	TypeStats           = "lawcast.query.stats"
	TypeHealth          = "lawcast.query.health"
	TypeDeliveryHistory = "lawcast.query.deliveries.list"

	maxRecentLimit = 100
	maxPerPage     = 200
)

// RecentNoticesMessage reads the newest cached notices. A zero Limit uses the
// cache default.
type RecentNoticesMessage struct {
	Limit int
}

func (RecentNoticesMessage) Type() string { return TypeRecentNotices }

func (m RecentNoticesMessage) Validate() error {
	if m.Limit < 0 || m.Limit > maxRecentLimit {
		return queryValidationError("limit", "limit must be between 0 and 100")
	}
	return nil
}

type CacheInfoMessage struct{}

func (CacheInfoMessage) Type() string { return TypeCacheInfo }

type StatsMessage struct{}

func (StatsMessage) Type() string { return TypeStats }

type HealthMessage struct{}

func (HealthMessage) Type() string { return TypeHealth }

type DeliveryHistoryMessage struct {
	Filter core.DeliveryLogFilter
}

func (DeliveryHistoryMessage) Type() string { return TypeDeliveryHistory }

func (m DeliveryHistoryMessage) Validate() error {
	if m.Filter.Page < 0 {
		return queryValidationError("page", "page must be >= 0")
	}
	if m.Filter.PerPage < 0 || m.Filter.PerPage > maxPerPage {
		return queryValidationError("per_page", "per_page must be between 0 and 200")
	}
	if m.Filter.DestinationID < 0 {
		return queryValidationError("destination_id", "destination id must be >= 0")
	}
	if outcome := strings.TrimSpace(string(m.Filter.Outcome)); outcome != "" && !core.DeliveryOutcome(outcome).Valid() {
		return queryValidationError("outcome", "unknown delivery outcome")
	}
	return nil
}
