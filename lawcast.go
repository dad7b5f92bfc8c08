package lawcast

import "github.com/goliatone/go-lawcast/core"

type Config = core.Config

type Notice = core.Notice
type Attachment = core.Attachment
type Destination = core.Destination
type DestinationStats = core.DestinationStats
type CacheInfo = core.CacheInfo
type HealthStatus = core.HealthStatus
type ServiceStats = core.ServiceStats
type CycleReport = core.CycleReport
type DeliveryResult = core.DeliveryResult

type RegisterDestinationRequest = core.RegisterDestinationRequest
type RegistrationResult = core.RegistrationResult

type NoticeFetcher = core.NoticeFetcher
type DestinationStore = core.DestinationStore
type DeliveryLedger = core.DeliveryLedger
type DeliveryHistory = core.DeliveryHistory
type RegistrationVerifier = core.RegistrationVerifier

func DefaultConfig() Config {
	return core.DefaultConfig()
}
