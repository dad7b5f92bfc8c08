package fanout

import (
	"context"
	"encoding/json"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-lawcast/core"
	"github.com/goliatone/go-lawcast/transport"
)

// WebhookDeliverer posts messages as JSON through a transport adapter. A
// non-2xx answer becomes an error whose status code drives classification.
type WebhookDeliverer struct {
	adapter transport.Adapter
}

func NewWebhookDeliverer(adapter transport.Adapter) *WebhookDeliverer {
	if adapter == nil {
		adapter = transport.NewRESTAdapter(nil)
	}
	return &WebhookDeliverer{adapter: adapter}
}

func (d *WebhookDeliverer) Deliver(ctx context.Context, url string, message core.WebhookMessage) error {
	body, err := json.Marshal(message)
	if err != nil {
		return core.WrapError(err, goerrors.CategoryInternal, "fanout: encode webhook message", core.ErrorInternal)
	}
	res, err := d.adapter.Do(ctx, transport.Request{
		Method:  http.MethodPost,
		URL:     url,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
	})
	if err != nil {
		return err
	}
	return transport.StatusError(res, "fanout: webhook rejected delivery")
}

var _ core.Deliverer = (*WebhookDeliverer)(nil)
