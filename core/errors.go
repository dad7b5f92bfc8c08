package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorBadInput            = "LAWCAST_BAD_INPUT"
	ErrorFetchFailed         = "LAWCAST_FETCH_FAILED"
	ErrorDeliveryFailed      = "LAWCAST_DELIVERY_FAILED"
	ErrorDestinationNotFound = "LAWCAST_DESTINATION_NOT_FOUND"
	ErrorDestinationExists   = "LAWCAST_DESTINATION_EXISTS"
	ErrorDestinationLimit    = "LAWCAST_DESTINATION_LIMIT"
	ErrorDestinationRejected = "LAWCAST_DESTINATION_REJECTED"
	ErrorVerificationFailed  = "LAWCAST_VERIFICATION_FAILED"
	ErrorUnauthorized        = "LAWCAST_UNAUTHORIZED"
	ErrorForbidden           = "LAWCAST_FORBIDDEN"
	ErrorRateLimited         = "LAWCAST_RATE_LIMITED"
	ErrorExternalFailure     = "LAWCAST_EXTERNAL_FAILURE"
	ErrorNotReady            = "LAWCAST_NOT_READY"
	ErrorPollBusy            = "LAWCAST_POLL_BUSY"
	ErrorShuttingDown        = "LAWCAST_SHUTTING_DOWN"
	ErrorInternal            = "LAWCAST_INTERNAL_ERROR"
)

// NewFetchError wraps an upstream failure. Poll cycles treat it as soft; the
// startup path returns it to the caller.
func NewFetchError(source error, message string) *goerrors.Error {
	message = strings.TrimSpace(message)
	if message == "" {
		message = "lawcast: fetch notices failed"
	}
	if source == nil {
		return goerrors.New(message, goerrors.CategoryExternal).
			WithCode(http.StatusBadGateway).
			WithTextCode(ErrorFetchFailed)
	}
	return goerrors.Wrap(source, goerrors.CategoryExternal, message).
		WithCode(http.StatusBadGateway).
		WithTextCode(ErrorFetchFailed)
}

func IsFetchError(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == ErrorFetchFailed
}

// StatusCode extracts an HTTP-like status code carried by err. It returns
// false when err exposes none.
func StatusCode(err error) (int, bool) {
	if err == nil {
		return 0, false
	}
	var coded interface{ StatusCode() int }
	if errors.As(err, &coded) {
		if code := coded.StatusCode(); code > 0 {
			return code, true
		}
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Code > 0 {
		return richErr.Code, true
	}
	return 0, false
}

// MapError converts any error into the lawcast go-errors envelope.
func MapError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureErrorEnvelope(richErr)
	}

	switch {
	case errors.Is(err, ErrDestinationNotFound):
		return newLawcastError(err.Error(), goerrors.CategoryNotFound, ErrorDestinationNotFound)
	case errors.Is(err, ErrDestinationExists):
		return newLawcastError(err.Error(), goerrors.CategoryConflict, ErrorDestinationExists)
	case errors.Is(err, ErrDestinationLimit):
		return newLawcastError(err.Error(), goerrors.CategoryRateLimit, ErrorDestinationLimit)
	case errors.Is(err, ErrDestinationRejected):
		return newLawcastError(err.Error(), goerrors.CategoryBadInput, ErrorDestinationRejected)
	case errors.Is(err, ErrRegistrationRejected):
		return newLawcastError(err.Error(), goerrors.CategoryBadInput, ErrorVerificationFailed)
	case errors.Is(err, ErrInvalidWebhookURL):
		return newLawcastError(err.Error(), goerrors.CategoryBadInput, ErrorBadInput)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newLawcastError(err.Error(), goerrors.CategoryBadInput, ErrorBadInput)
	case strings.Contains(msg, "not found"):
		return newLawcastError(err.Error(), goerrors.CategoryNotFound, ErrorDestinationNotFound)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureErrorEnvelope(mapped)
}

func NewError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return newLawcastError(message, category, textCode)
}

func WrapError(source error, category goerrors.Category, message string, textCode string) *goerrors.Error {
	if source == nil {
		return newLawcastError(message, category, textCode)
	}
	return ensureErrorEnvelope(
		goerrors.Wrap(source, category, message).
			WithTextCode(textCode),
	)
}

func newLawcastError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = HTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ErrorBadInput
	case goerrors.CategoryNotFound:
		return ErrorDestinationNotFound
	case goerrors.CategoryAuth:
		return ErrorUnauthorized
	case goerrors.CategoryAuthz:
		return ErrorForbidden
	case goerrors.CategoryConflict:
		return ErrorDestinationExists
	case goerrors.CategoryRateLimit:
		return ErrorRateLimited
	case goerrors.CategoryExternal:
		return ErrorExternalFailure
	default:
		return ErrorInternal
	}
}

func HTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
