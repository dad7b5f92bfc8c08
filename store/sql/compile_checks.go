package sqlstore

import "github.com/goliatone/go-lawcast/core"

var (
	_ core.DestinationStore    = (*DestinationStore)(nil)
	_ core.DestinationStore    = (*CachedDestinationStore)(nil)
	_ core.DestinationRegistry = (*DestinationStore)(nil)
	_ core.DeliveryLedger      = (*DeliveryLogStore)(nil)
	_ core.DeliveryHistory     = (*DeliveryLogStore)(nil)
)
