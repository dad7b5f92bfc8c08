package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type destinationRecord struct {
	bun.BaseModel `bun:"table:lawcast_destinations,alias:ld"`

	ID        int64     `bun:"id,pk,autoincrement"`
	URL       string    `bun:"url,notnull"`
	IsActive  bool      `bun:"is_active,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type deliveryLogRecord struct {
	bun.BaseModel `bun:"table:lawcast_delivery_log,alias:ldl"`

	ID            string         `bun:"id,pk"`
	CycleID       string         `bun:"cycle_id,notnull"`
	NoticeNumber  int64          `bun:"notice_number,notnull"`
	DestinationID int64          `bun:"destination_id,notnull"`
	Outcome       string         `bun:"outcome,notnull"`
	Error         string         `bun:"error,notnull"`
	Metadata      map[string]any `bun:"metadata,type:jsonb,notnull"`
	CreatedAt     time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
