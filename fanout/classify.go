package fanout

import (
	"net/http"

	"github.com/goliatone/go-lawcast/core"
)

// Classify maps a delivery error onto an outcome. Only 401, 403 and 404
// are permanent; errors without a status are transient.
func Classify(err error) core.DeliveryOutcome {
	if err == nil {
		return core.DeliveryOutcomeDelivered
	}
	status, ok := core.StatusCode(err)
	if !ok {
		return core.DeliveryOutcomeTransientFailure
	}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return core.DeliveryOutcomePermanentFailure
	default:
		return core.DeliveryOutcomeTransientFailure
	}
}
