package fanout

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-lawcast/core"
)

const (
	noticeEmbedColor = 0x3b82f6
	probeEmbedColor  = 0x10b981

	maxEmbedTitle      = 256
	maxEmbedFieldValue = 1024
	maxAttachmentLines = 5
)

// MessageBuilder renders webhook payloads. Zero value is usable.
type MessageBuilder struct {
	Username  string
	AvatarURL string
}

func (b MessageBuilder) Notice(notice core.Notice, now time.Time) core.WebhookMessage {
	fields := []core.WebhookEmbedField{
		{Name: "Notice", Value: "#" + strconv.FormatInt(notice.Number, 10), Inline: true},
	}
	if value := strings.TrimSpace(notice.ProposerCategory); value != "" {
		fields = append(fields, core.WebhookEmbedField{Name: "Proposer", Value: truncate(value, maxEmbedFieldValue), Inline: true})
	}
	if value := strings.TrimSpace(notice.Committee); value != "" {
		fields = append(fields, core.WebhookEmbedField{Name: "Committee", Value: truncate(value, maxEmbedFieldValue), Inline: true})
	}
	fields = append(fields, core.WebhookEmbedField{Name: "Comments", Value: strconv.Itoa(notice.NumComments), Inline: true})
	if attachments := attachmentLines(notice.Attachments); attachments != "" {
		fields = append(fields, core.WebhookEmbedField{Name: "Attachments", Value: attachments})
	}

	subject := strings.TrimSpace(notice.Subject)
	if subject == "" {
		subject = fmt.Sprintf("Notice #%d", notice.Number)
	}
	return core.WebhookMessage{
		Username:  b.username(),
		AvatarURL: strings.TrimSpace(b.AvatarURL),
		Embeds: []core.WebhookEmbed{{
			Title:       truncate("New legislative notice", maxEmbedTitle),
			Description: truncate(subject, maxEmbedFieldValue*4),
			URL:         strings.TrimSpace(notice.Link),
			Color:       noticeEmbedColor,
			Timestamp:   now.UTC().Format(time.RFC3339),
			Fields:      fields,
			Footer:      &core.WebhookEmbedFooter{Text: b.username()},
		}},
	}
}

func (b MessageBuilder) Probe(now time.Time) core.WebhookMessage {
	return core.WebhookMessage{
		Username:  b.username(),
		AvatarURL: strings.TrimSpace(b.AvatarURL),
		Embeds: []core.WebhookEmbed{{
			Title:       "Webhook registered",
			Description: "This channel will receive new legislative notices.",
			Color:       probeEmbedColor,
			Timestamp:   now.UTC().Format(time.RFC3339),
			Footer:      &core.WebhookEmbedFooter{Text: b.username()},
		}},
	}
}

func (b MessageBuilder) username() string {
	if name := strings.TrimSpace(b.Username); name != "" {
		return name
	}
	return core.DefaultDeliveryUsername
}

func attachmentLines(attachments []core.Attachment) string {
	lines := make([]string, 0, len(attachments))
	for _, attachment := range attachments {
		if len(lines) == maxAttachmentLines {
			lines = append(lines, fmt.Sprintf("and %d more", len(attachments)-maxAttachmentLines))
			break
		}
		name := strings.TrimSpace(attachment.Name)
		if name == "" {
			name = "attachment"
		}
		if link := strings.TrimSpace(attachment.URL); link != "" {
			lines = append(lines, fmt.Sprintf("[%s](%s)", name, link))
			continue
		}
		lines = append(lines, name)
	}
	return truncate(strings.Join(lines, "\n"), maxEmbedFieldValue)
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}
