package woocommerce

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/shaharia-lab/webhookd/internal/storage"
	"github.com/shaharia-lab/webhookd/internal/webhook"
)

// listPageSize is the largest page WooCommerce accepts.
const listPageSize = 100

// wcTimeLayout is the format of the *_gmt timestamp fields.
const wcTimeLayout = "2006-01-02T15:04:05"

// editContext makes WooCommerce include write-only fields such as the webhook
// secret in read responses.
const editContext = "context=edit"

// wcWebhook mirrors the WooCommerce webhook resource.
type wcWebhook struct {
	ID              int64  `json:"id,omitempty"`
	Name            string `json:"name"`
	Status          string `json:"status"`
	Topic           string `json:"topic"`
	DeliveryURL     string `json:"delivery_url"`
	Secret          string `json:"secret,omitempty"`
	DateCreatedGMT  string `json:"date_created_gmt,omitempty"`
	DateModifiedGMT string `json:"date_modified_gmt,omitempty"`
}

func (w *wcWebhook) toSubscription() *webhook.Subscription {
	return &webhook.Subscription{
		ID:          strconv.FormatInt(w.ID, 10),
		Name:        w.Name,
		Status:      webhook.Status(w.Status),
		Topic:       webhook.Topic(w.Topic),
		DeliveryURL: w.DeliveryURL,
		Secret:      w.Secret,
		CreatedAt:   parseGMT(w.DateCreatedGMT),
		ModifiedAt:  parseGMT(w.DateModifiedGMT),
	}
}

func parseGMT(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation(wcTimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

// webhookPath validates that id is a WooCommerce numeric ID. Non-numeric IDs
// can never exist remotely, so they short-circuit to ErrNotFound.
func webhookPath(id string) (string, error) {
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return "", fmt.Errorf("webhook %q: %w", id, storage.ErrNotFound)
	}
	return "webhooks/" + id, nil
}

// itemError reports a 404 for a known item route as ErrNotFound. Any other
// failure, including a 404 for the route itself, is returned unchanged.
func itemError(id string, err error) error {
	if isMissingItem(err) {
		return fmt.Errorf("webhook %q: %w: %w", id, storage.ErrNotFound, err)
	}
	return err
}

// List pages through every webhook configured on the store.
func (c *Client) List(ctx context.Context) ([]*webhook.Subscription, error) {
	subs := []*webhook.Subscription{}
	for page := 1; ; page++ {
		var batch []wcWebhook
		endpoint := fmt.Sprintf("webhooks?per_page=%d&page=%d&%s", listPageSize, page, editContext)
		if err := c.do(ctx, http.MethodGet, endpoint, nil, &batch); err != nil {
			return nil, err
		}
		for i := range batch {
			subs = append(subs, batch[i].toSubscription())
		}
		if len(batch) < listPageSize {
			return subs, nil
		}
	}
}

// Get fetches a single webhook.
func (c *Client) Get(ctx context.Context, id string) (*webhook.Subscription, error) {
	path, err := webhookPath(id)
	if err != nil {
		return nil, err
	}
	var out wcWebhook
	if err := c.do(ctx, http.MethodGet, path+"?"+editContext, nil, &out); err != nil {
		return nil, itemError(id, err)
	}
	return out.toSubscription(), nil
}

// Create registers a new webhook on the store.
func (c *Client) Create(ctx context.Context, sub *webhook.Subscription) (*webhook.Subscription, error) {
	in := wcWebhook{
		Name:        sub.Name,
		Status:      string(sub.Status),
		Topic:       string(sub.Topic),
		DeliveryURL: sub.DeliveryURL,
		Secret:      sub.Secret,
	}
	var out wcWebhook
	if err := c.do(ctx, http.MethodPost, "webhooks", in, &out); err != nil {
		return nil, err
	}
	created := out.toSubscription()
	// The store may not echo the secret back.
	if created.Secret == "" {
		created.Secret = sub.Secret
	}
	return created, nil
}

// Update sends only the fields set in patch.
func (c *Client) Update(ctx context.Context, id string, patch webhook.SubscriptionPatch) (*webhook.Subscription, error) {
	path, err := webhookPath(id)
	if err != nil {
		return nil, err
	}
	var out wcWebhook
	if err := c.do(ctx, http.MethodPut, path, patch, &out); err != nil {
		return nil, itemError(id, err)
	}
	updated := out.toSubscription()
	if updated.Secret == "" && patch.Secret != nil {
		updated.Secret = *patch.Secret
	}
	return updated, nil
}

// Delete permanently removes the webhook. WooCommerce does not trash
// webhooks, so force=true is required.
func (c *Client) Delete(ctx context.Context, id string) error {
	path, err := webhookPath(id)
	if err != nil {
		return err
	}
	return itemError(id, c.do(ctx, http.MethodDelete, path+"?force=true", nil, nil))
}

// wcDelivery mirrors the WooCommerce webhook delivery resource. Depending on
// the store version, response_code and duration arrive as strings or numbers.
type wcDelivery struct {
	ID              int64             `json:"id"`
	Duration        looseString       `json:"duration"`
	Summary         string            `json:"summary"`
	RequestURL      string            `json:"request_url"`
	RequestHeaders  map[string]string `json:"request_headers"`
	RequestBody     string            `json:"request_body"`
	ResponseCode    looseString       `json:"response_code"`
	ResponseMessage string            `json:"response_message"`
	ResponseBody    string            `json:"response_body"`
	DateCreatedGMT  string            `json:"date_created_gmt"`
}

type looseString string

func (l *looseString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = looseString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*l = looseString(n.String())
	return nil
}

// ListDeliveries returns the delivery history the store keeps for one
// webhook. Stores whose API version has no deliveries route answer with a
// route-level 404, which is returned as an *APIError.
func (c *Client) ListDeliveries(ctx context.Context, id string) ([]*webhook.StoreDelivery, error) {
	path, err := webhookPath(id)
	if err != nil {
		return nil, err
	}
	var batch []wcDelivery
	if err := c.do(ctx, http.MethodGet, path+"/deliveries", nil, &batch); err != nil {
		return nil, itemError(id, err)
	}
	out := make([]*webhook.StoreDelivery, 0, len(batch))
	for _, d := range batch {
		out = append(out, &webhook.StoreDelivery{
			ID:              d.ID,
			Duration:        string(d.Duration),
			Summary:         d.Summary,
			RequestURL:      d.RequestURL,
			RequestHeaders:  d.RequestHeaders,
			RequestBody:     d.RequestBody,
			ResponseCode:    string(d.ResponseCode),
			ResponseMessage: d.ResponseMessage,
			ResponseBody:    d.ResponseBody,
			CreatedAt:       parseGMT(d.DateCreatedGMT),
		})
	}
	return out, nil
}

var (
	_ storage.SubscriptionStore     = (*Client)(nil)
	_ storage.DeliveryHistorySource = (*Client)(nil)
)
