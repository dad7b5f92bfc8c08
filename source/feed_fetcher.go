package source

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-lawcast/core"
	"github.com/goliatone/go-lawcast/transport"
)

// FeedFetcher reads the notice list from a JSON endpoint. The body is either
// an array of notices or an object holding the array under "data".
type FeedFetcher struct {
	url     string
	timeout time.Duration
	adapter transport.Adapter
	logger  core.Logger
}

type FeedOption func(*FeedFetcher)

func WithAdapter(adapter transport.Adapter) FeedOption {
	return func(f *FeedFetcher) {
		if adapter != nil {
			f.adapter = adapter
		}
	}
}

func WithLogger(logger core.Logger) FeedOption {
	return func(f *FeedFetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

func NewFeedFetcher(cfg core.FeedConfig, opts ...FeedOption) *FeedFetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = core.DefaultFeedFetchTimeout
	}
	f := &FeedFetcher{
		url:     strings.TrimSpace(cfg.URL),
		timeout: timeout,
		adapter: transport.NewRESTAdapter(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

func (f *FeedFetcher) Fetch(ctx context.Context) ([]core.Notice, error) {
	if f.url == "" {
		return nil, core.NewFetchError(nil, "source: feed url is required")
	}
	res, err := f.adapter.Do(ctx, transport.Request{
		Method:  http.MethodGet,
		URL:     f.url,
		Headers: map[string]string{"Accept": "application/json"},
		Timeout: f.timeout,
	})
	if err != nil {
		return nil, core.NewFetchError(err, "source: feed request failed")
	}
	if err := transport.StatusError(res, "source: feed returned error status"); err != nil {
		return nil, core.NewFetchError(err, "source: feed request failed")
	}

	notices, err := decodeNotices(res.Body)
	if err != nil {
		return nil, core.NewFetchError(err, "source: decode feed")
	}
	if f.logger != nil {
		f.logger.Debug("feed fetched", "count", len(notices))
	}
	return notices, nil
}

func decodeNotices(body []byte) ([]core.Notice, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return []core.Notice{}, nil
	}
	if body[0] == '[' {
		var notices []core.Notice
		if err := json.Unmarshal(body, &notices); err != nil {
			return nil, err
		}
		return notices, nil
	}
	var envelope struct {
		Data []core.Notice `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	if envelope.Data == nil {
		return []core.Notice{}, nil
	}
	return envelope.Data, nil
}

var _ core.NoticeFetcher = (*FeedFetcher)(nil)
