package transport

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type Request struct {
	Method               string
	URL                  string
	Headers              map[string]string
	Query                map[string]string
	Body                 []byte
	Timeout              time.Duration
	MaxResponseBodyBytes int64
}

type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

// OK reports a 2xx status.
func (r Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// RetryAfter reads the Retry-After header as seconds. Discord sends
// fractional values, so floats are accepted.
func (r Response) RetryAfter() (time.Duration, bool) {
	raw := strings.TrimSpace(r.header(headerRetryAfter))
	if raw == "" {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil || seconds < 0 {
		return 0, false
	}
	return time.Duration(seconds * float64(time.Second)), true
}

func (r Response) header(key string) string {
	if value, ok := r.Headers[http.CanonicalHeaderKey(key)]; ok {
		return value
	}
	for name, value := range r.Headers {
		if strings.EqualFold(name, key) {
			return value
		}
	}
	return ""
}

type Adapter interface {
	Kind() string
	Do(ctx context.Context, req Request) (Response, error)
}
