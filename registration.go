package lawcast

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-lawcast/core"
)

var (
	webhookIDPattern    = regexp.MustCompile(`^\d{17,20}$`)
	webhookTokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{60,80}$`)
)

// NormalizeWebhookURL drops the query, fragment and trailing slash. Input that
// does not parse is returned trimmed but otherwise untouched so validation
// can reject it.
func NormalizeWebhookURL(raw string) string {
	raw = strings.TrimSpace(raw)
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return raw
	}
	parsed.RawQuery = ""
	parsed.ForceQuery = false
	parsed.Fragment = ""
	parsed.RawFragment = ""
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	parsed.RawPath = ""
	return parsed.String()
}

// ValidateDiscordWebhookURL accepts https://discord.com/api/webhooks/<id>/<token>
// and the discordapp.com host. Errors wrap core.ErrInvalidWebhookURL.
func ValidateDiscordWebhookURL(raw string) error {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("%w: malformed url", core.ErrInvalidWebhookURL)
	}
	if parsed.Scheme != "https" {
		return fmt.Errorf("%w: https is required", core.ErrInvalidWebhookURL)
	}
	switch strings.ToLower(parsed.Hostname()) {
	case "discord.com", "discordapp.com":
	default:
		return fmt.Errorf("%w: only discord webhooks are supported", core.ErrInvalidWebhookURL)
	}
	if !strings.HasPrefix(parsed.Path, "/api/webhooks/") {
		return fmt.Errorf("%w: not a webhook path", core.ErrInvalidWebhookURL)
	}
	parts := strings.Split(strings.TrimPrefix(parsed.Path, "/api/webhooks/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("%w: webhook id and token are required", core.ErrInvalidWebhookURL)
	}
	if !webhookIDPattern.MatchString(parts[0]) {
		return fmt.Errorf("%w: malformed webhook id", core.ErrInvalidWebhookURL)
	}
	if !webhookTokenPattern.MatchString(parts[1]) {
		return fmt.Errorf("%w: malformed webhook token", core.ErrInvalidWebhookURL)
	}
	return nil
}

// RegisterDestination verifies, validates and stores a webhook, then sends it
// a probe. A probe that fails permanently deactivates the destination again
// and the call fails; a transient probe failure keeps it registered.
func (s *Service) RegisterDestination(
	ctx context.Context,
	req core.RegisterDestinationRequest,
) (result core.RegistrationResult, err error) {
	startedAt := time.Now()
	defer func() {
		s.observer.ObserveOperation(ctx, startedAt, "register_destination", err, map[string]any{
			"destination_id": result.Destination.ID,
			"reactivated":    result.Reactivated,
			"test_succeeded": result.TestSucceeded,
		})
	}()

	if err := s.verify(ctx, req); err != nil {
		return core.RegistrationResult{}, err
	}

	target := NormalizeWebhookURL(req.URL)
	if err := ValidateDiscordWebhookURL(target); err != nil {
		return core.RegistrationResult{}, core.MapError(err)
	}

	existing, findErr := s.store.FindByURL(ctx, target)
	switch {
	case findErr == nil && existing.Active:
		return core.RegistrationResult{}, core.MapError(core.ErrDestinationExists)
	case findErr != nil && !errors.Is(findErr, core.ErrDestinationNotFound):
		return core.RegistrationResult{}, core.MapError(findErr)
	}
	reactivate := findErr == nil

	if limit := s.config.Registry.MaxActive; limit > 0 {
		active, countErr := s.store.CountActive(ctx)
		if countErr != nil {
			return core.RegistrationResult{}, core.MapError(countErr)
		}
		if active >= limit {
			return core.RegistrationResult{}, core.MapError(core.ErrDestinationLimit)
		}
	}

	var destination core.Destination
	if reactivate {
		destination, err = s.store.Reactivate(ctx, existing.ID)
	} else {
		destination, err = s.store.Create(ctx, target)
	}
	if err != nil {
		return core.RegistrationResult{}, core.MapError(err)
	}
	s.recordRegistration(ctx, req.RemoteIP)
	result = core.RegistrationResult{
		Destination: destination,
		Registered:  true,
		Reactivated: reactivate,
	}

	probe := s.notifier.TestSend(ctx, destination)
	switch {
	case probe.Success():
		result.TestSucceeded = true
		return result, nil
	case probe.ShouldDeactivate():
		if deactivateErr := s.store.Deactivate(ctx, destination.ID); deactivateErr != nil {
			s.observer.Error(ctx, "failed to deactivate rejected destination", map[string]any{
				"destination_id": destination.ID,
				"error":          deactivateErr.Error(),
			})
		}
		result.Registered = false
		result.Destination.Active = false
		result.TestError = probe.ErrorMessage()
		return result, core.MapError(fmt.Errorf("%w: %s", core.ErrDestinationRejected, probe.ErrorMessage()))
	default:
		result.TestError = probe.ErrorMessage()
		s.observer.Warn(ctx, "destination registered but probe failed transiently", map[string]any{
			"destination_id": destination.ID,
			"error":          result.TestError,
		})
		return result, nil
	}
}

func (s *Service) recordRegistration(ctx context.Context, remoteIP string) {
	if recorder, ok := s.verifier.(core.RegistrationRecorder); ok {
		recorder.RecordRegistration(ctx, remoteIP)
	}
}

func (s *Service) verify(ctx context.Context, req core.RegisterDestinationRequest) error {
	if s.verifier == nil {
		return nil
	}
	ok, err := s.verifier.Verify(ctx, req.VerificationToken, req.RemoteIP)
	if err != nil {
		return core.WrapError(err, goerrors.CategoryExternal, "lawcast: registration verification unavailable", core.ErrorVerificationFailed)
	}
	if !ok {
		return core.MapError(core.ErrRegistrationRejected)
	}
	return nil
}
