package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrDestinationNotFound  = errors.New("core: destination not found")
	ErrDestinationExists    = errors.New("core: destination url already registered")
	ErrDestinationLimit     = errors.New("core: active destination limit reached")
	ErrDestinationRejected  = errors.New("core: destination failed registration probe")
	ErrRegistrationRejected = errors.New("core: registration verification failed")
	ErrInvalidWebhookURL    = errors.New("core: invalid webhook url")
)

// Notice is one published legislative notice. Number is the only identity
// used for deduplication; higher numbers are newer.
type Notice struct {
	Number           int64        `json:"num"`
	Subject          string       `json:"subject"`
	ProposerCategory string       `json:"proposerCategory"`
	Committee        string       `json:"committee"`
	NumComments      int          `json:"numComments"`
	Link             string       `json:"link"`
	Attachments      []Attachment `json:"attachments,omitempty"`
}

type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Clone returns a copy that shares no slices with n.
func (n Notice) Clone() Notice {
	out := n
	if len(n.Attachments) > 0 {
		out.Attachments = append([]Attachment(nil), n.Attachments...)
	}
	return out
}

type Destination struct {
	ID        int64
	URL       string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type DestinationStats struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
}

type CacheInfo struct {
	Size        int        `json:"size"`
	MaxSize     int        `json:"maxSize"`
	Initialized bool       `json:"isInitialized"`
	LastUpdated *time.Time `json:"lastUpdated"`
}

// DeliveryOutcome classifies a single delivery attempt.
type DeliveryOutcome string

const (
	DeliveryOutcomeDelivered        DeliveryOutcome = "delivered"
	DeliveryOutcomeTransientFailure DeliveryOutcome = "transient_failure"
	DeliveryOutcomePermanentFailure DeliveryOutcome = "permanent_failure"
)

func (o DeliveryOutcome) Valid() bool {
	switch o {
	case DeliveryOutcomeDelivered, DeliveryOutcomeTransientFailure, DeliveryOutcomePermanentFailure:
		return true
	default:
		return false
	}
}

// DeliveryResult is the outcome of one (notice, destination) attempt.
// NoticeNumber is zero for registration probes.
type DeliveryResult struct {
	NoticeNumber  int64
	DestinationID int64
	Outcome       DeliveryOutcome
	Err           error
}

func (r DeliveryResult) Success() bool {
	return r.Outcome == DeliveryOutcomeDelivered
}

func (r DeliveryResult) ShouldDeactivate() bool {
	return r.Outcome == DeliveryOutcomePermanentFailure
}

func (r DeliveryResult) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// WebhookMessage is the payload posted to a destination. Field names follow
// the Discord execute-webhook body.
type WebhookMessage struct {
	Username  string         `json:"username,omitempty"`
	AvatarURL string         `json:"avatar_url,omitempty"`
	Content   string         `json:"content,omitempty"`
	Embeds    []WebhookEmbed `json:"embeds,omitempty"`
}

type WebhookEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	URL         string              `json:"url,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
	Fields      []WebhookEmbedField `json:"fields,omitempty"`
	Footer      *WebhookEmbedFooter `json:"footer,omitempty"`
}

type WebhookEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type WebhookEmbedFooter struct {
	Text string `json:"text"`
}

type DeliveryLogEntry struct {
	CycleID       string
	NoticeNumber  int64
	DestinationID int64
	Outcome       DeliveryOutcome
	Error         string
	Metadata      map[string]any
}

// IdempotencyKey identifies one (cycle, notice, destination) attempt.
func (e DeliveryLogEntry) IdempotencyKey() string {
	return fmt.Sprintf("%s:%d:%d", strings.TrimSpace(e.CycleID), e.NoticeNumber, e.DestinationID)
}

type HealthStatus struct {
	Healthy   bool      `json:"healthy"`
	Ready     bool      `json:"ready"`
	CheckedAt time.Time `json:"timestamp"`
}

type DeliveryLogRecord struct {
	ID            string          `json:"id"`
	CycleID       string          `json:"cycleId"`
	NoticeNumber  int64           `json:"noticeNumber"`
	DestinationID int64           `json:"destinationId"`
	Outcome       DeliveryOutcome `json:"outcome"`
	Error         string          `json:"error,omitempty"`
	Metadata      map[string]any  `json:"metadata,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type DeliveryLogFilter struct {
	DestinationID int64
	CycleID       string
	Outcome       DeliveryOutcome
	Page          int
	PerPage       int
}

type DeliveryLogPage struct {
	Items   []DeliveryLogRecord `json:"items"`
	Page    int                 `json:"page"`
	PerPage int                 `json:"perPage"`
	Total   int                 `json:"total"`
	HasNext bool                `json:"hasNext"`
}

type RegisterDestinationRequest struct {
	URL string `json:"url"`
	// VerificationToken is checked by the configured RegistrationVerifier.
	VerificationToken string `json:"verificationToken,omitempty"`
	RemoteIP          string `json:"-"`
}

type RegistrationResult struct {
	Destination   Destination `json:"destination"`
	Registered    bool        `json:"registered"`
	Reactivated   bool        `json:"reactivated"`
	TestSucceeded bool        `json:"testSucceeded"`
	TestError     string      `json:"testError,omitempty"`
}

type ServiceStats struct {
	Destinations DestinationStats `json:"webhooks"`
	Cache        CacheInfo        `json:"cache"`
}
