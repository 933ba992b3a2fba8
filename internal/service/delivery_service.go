package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/shaharia-lab/webhookd/internal/build"
	"github.com/shaharia-lab/webhookd/internal/eventbus"
	"github.com/shaharia-lab/webhookd/internal/storage"
	"github.com/shaharia-lab/webhookd/internal/transport"
	"github.com/shaharia-lab/webhookd/internal/webhook"
)

// Delivery sources, used as a metrics label and in published events.
const (
	SourceTest    = "test"
	SourceReceive = "receive"
	SourceRecord  = "record"
)

// DeliveryObserver receives one observation per delivery attempt.
type DeliveryObserver interface {
	ObserveDelivery(source string, status webhook.DeliveryStatus, topic webhook.Topic, elapsed time.Duration)
}

// InboundDelivery is a delivery received from a storefront. SubscriptionID
// comes from the request path; when empty the X-Webhook-Id header is used.
type InboundDelivery struct {
	SubscriptionID string
	Headers        http.Header
	Body           []byte
}

// DeliveryService sends test deliveries, verifies inbound ones and owns the
// delivery log.
type DeliveryService interface {
	// Test sends one signed synthetic event to sub and records the outcome.
	// A failed delivery is reported in the entry, not as an error.
	Test(ctx context.Context, sub *webhook.Subscription) (*webhook.DeliveryLogEntry, error)
	TestByID(ctx context.Context, id string) (*webhook.DeliveryLogEntry, error)
	// Receive verifies and records an inbound delivery. A rejected delivery
	// is recorded as failed and reported as *SignatureError.
	Receive(ctx context.Context, in InboundDelivery) (*webhook.DeliveryLogEntry, error)
	// Record appends an externally reported delivery, which may be pending.
	Record(ctx context.Context, entry *webhook.DeliveryLogEntry) (*webhook.DeliveryLogEntry, error)
	ListLog(ctx context.Context, subscriptionID string) ([]*webhook.DeliveryLogEntry, error)
	ClearLog(ctx context.Context) error
}

// DeliveryConfig holds the delivery service dependencies.
type DeliveryConfig struct {
	Subscriptions SubscriptionService
	Log           storage.DeliveryLogStore
	Poster        transport.Poster
	// Timeout bounds one outbound attempt. Defaults to transport.DefaultTimeout.
	Timeout time.Duration
	Logger  *slog.Logger
	// Events and Metrics are optional.
	Events  EventPublisher
	Metrics DeliveryObserver
	Now     func() time.Time
}

type deliveryService struct {
	cfg    DeliveryConfig
	logger *slog.Logger
}

// NewDeliveryService returns a new DeliveryService.
func NewDeliveryService(cfg DeliveryConfig) DeliveryService {
	if cfg.Poster == nil {
		cfg.Poster = transport.NewHTTPPoster(nil)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = transport.DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &deliveryService{cfg: cfg, logger: cfg.Logger}
}

func (s *deliveryService) Test(ctx context.Context, sub *webhook.Subscription) (*webhook.DeliveryLogEntry, error) {
	if sub == nil {
		return nil, &ValidationError{Message: "webhook is required"}
	}
	if err := webhook.ValidateDeliveryURL(sub.DeliveryURL); err != nil {
		return nil, &ValidationError{Field: "delivery_url", Message: err.Error()}
	}

	now := s.cfg.Now().UTC()
	event := webhook.Event{
		ID:        uuid.New().String(),
		Event:     "test",
		CreatedAt: now,
		Resource:  "test",
		Topic:     sub.Topic,
		Payload:   map[string]any{"test": true},
	}
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encoding test event: %w", err)
	}

	deliveryID := uuid.New().String()
	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	headers.Set("User-Agent", build.UserAgent())
	headers.Set(webhook.HeaderTopic, string(sub.Topic))
	headers.Set(webhook.HeaderResource, event.Resource)
	headers.Set(webhook.HeaderEvent, event.Event)
	headers.Set(webhook.HeaderID, sub.ID)
	headers.Set(webhook.HeaderDeliveryID, deliveryID)
	if sig := webhook.Sign(body, sub.Secret); sig != "" {
		headers.Set(webhook.HeaderSignature, sig)
	}

	start := time.Now()
	code, message := s.post(ctx, transport.Request{URL: sub.DeliveryURL, Headers: headers, Body: body})
	elapsed := time.Since(start)

	entry := &webhook.DeliveryLogEntry{
		SubscriptionID:  sub.ID,
		Topic:           sub.Topic,
		Resource:        event.Resource,
		Event:           event.Event,
		DeliveryID:      deliveryID,
		DeliveryURL:     sub.DeliveryURL,
		CreatedAt:       now,
		Status:          classify(code),
		ResponseCode:    code,
		ResponseMessage: message,
		Payload:         body,
	}
	if err := s.append(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info("test delivery finished",
		"subscription_id", sub.ID, "topic", sub.Topic, "status", entry.Status, "duration", elapsed)
	s.observe(SourceTest, entry, elapsed)
	return entry, nil
}

// post performs a single bounded attempt. code is nil when no HTTP response
// was received; message is then the transport error.
func (s *deliveryService) post(ctx context.Context, req transport.Request) (*int, string) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	resp, err := s.cfg.Poster.Post(ctx, req)
	if err != nil {
		return nil, webhook.TruncateMessage(err.Error())
	}
	code := resp.StatusCode
	message := webhook.TruncateMessage(string(resp.Body))
	if message == "" {
		message = http.StatusText(code)
	}
	return &code, message
}

func classify(code *int) webhook.DeliveryStatus {
	if code != nil && *code >= 200 && *code <= 299 {
		return webhook.DeliverySuccess
	}
	return webhook.DeliveryFailed
}

func (s *deliveryService) TestByID(ctx context.Context, id string) (*webhook.DeliveryLogEntry, error) {
	sub, err := s.cfg.Subscriptions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Test(ctx, sub)
}

func (s *deliveryService) Receive(ctx context.Context, in InboundDelivery) (*webhook.DeliveryLogEntry, error) {
	headerID := in.Headers.Get(webhook.HeaderID)
	id := in.SubscriptionID
	if id == "" {
		id = headerID
	}
	if id == "" {
		return nil, &ValidationError{Field: webhook.HeaderID, Message: "webhook id is required"}
	}

	sub, err := s.cfg.Subscriptions.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	topic := webhook.Topic(in.Headers.Get(webhook.HeaderTopic))
	if topic == "" {
		topic = sub.Topic
	}
	resource := in.Headers.Get(webhook.HeaderResource)
	if resource == "" {
		resource = topic.Resource()
	}
	event := in.Headers.Get(webhook.HeaderEvent)
	if event == "" {
		event = topic.Event()
	}
	deliveryID := in.Headers.Get(webhook.HeaderDeliveryID)
	if deliveryID == "" {
		deliveryID = uuid.New().String()
	}

	var rejection *SignatureError
	switch {
	case headerID != "" && headerID != sub.ID:
		rejection = &SignatureError{Reason: "webhook id header does not match"}
	case sub.Secret == "":
		// Unsigned subscription; any signature header is ignored.
	case in.Headers.Get(webhook.HeaderSignature) == "":
		rejection = &SignatureError{Reason: "missing signature"}
	case !webhook.Verify(in.Body, sub.Secret, in.Headers.Get(webhook.HeaderSignature)):
		rejection = &SignatureError{Reason: "signature mismatch"}
	}

	code := http.StatusOK
	status := webhook.DeliverySuccess
	message := "accepted"
	if rejection != nil {
		code = http.StatusUnauthorized
		status = webhook.DeliveryFailed
		message = rejection.Reason
	}

	entry := &webhook.DeliveryLogEntry{
		SubscriptionID:  sub.ID,
		Topic:           topic,
		Resource:        resource,
		Event:           event,
		DeliveryID:      deliveryID,
		DeliveryURL:     sub.DeliveryURL,
		CreatedAt:       s.cfg.Now().UTC(),
		Status:          status,
		ResponseCode:    &code,
		ResponseMessage: message,
	}
	if json.Valid(in.Body) {
		entry.Payload = append(json.RawMessage(nil), in.Body...)
	}
	if err := s.append(ctx, entry); err != nil {
		return nil, err
	}

	s.observe(SourceReceive, entry, time.Since(start))
	if rejection != nil {
		s.logger.Warn("inbound delivery rejected",
			"subscription_id", sub.ID, "topic", topic, "reason", rejection.Reason)
		return entry, rejection
	}
	s.logger.Info("inbound delivery accepted", "subscription_id", sub.ID, "topic", topic)
	return entry, nil
}

func (s *deliveryService) Record(ctx context.Context, in *webhook.DeliveryLogEntry) (*webhook.DeliveryLogEntry, error) {
	if in == nil {
		return nil, &ValidationError{Message: "log entry is required"}
	}
	entry := *in
	entry.ID = ""
	if !entry.Status.Valid() {
		return nil, &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", entry.Status)}
	}
	if err := validateTopic(entry.Topic); err != nil {
		return nil, err
	}
	if entry.DeliveryURL != "" {
		if err := validateDeliveryURL(entry.DeliveryURL); err != nil {
			return nil, err
		}
	}
	if len(entry.Payload) > 0 && !json.Valid(entry.Payload) {
		return nil, &ValidationError{Field: "payload", Message: "payload must be valid JSON"}
	}
	if entry.Resource == "" {
		entry.Resource = entry.Topic.Resource()
	}
	if entry.Event == "" {
		entry.Event = entry.Topic.Event()
	}
	if entry.DeliveryID == "" {
		entry.DeliveryID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.cfg.Now().UTC()
	}
	entry.ResponseMessage = webhook.TruncateMessage(entry.ResponseMessage)

	if err := s.append(ctx, &entry); err != nil {
		return nil, err
	}
	s.observe(SourceRecord, &entry, 0)
	return &entry, nil
}

func (s *deliveryService) ListLog(ctx context.Context, subscriptionID string) ([]*webhook.DeliveryLogEntry, error) {
	entries, err := s.cfg.Log.List(ctx, subscriptionID)
	if err != nil {
		s.logger.Error("listing delivery log failed", "error", err)
		return nil, &StoreUnavailableError{Op: "list delivery log", Err: err}
	}
	return entries, nil
}

func (s *deliveryService) ClearLog(ctx context.Context) error {
	if err := s.cfg.Log.Clear(ctx); err != nil {
		s.logger.Error("clearing delivery log failed", "error", err)
		return &StoreUnavailableError{Op: "clear delivery log", Err: err}
	}
	s.logger.Info("delivery log cleared")
	return nil
}

func (s *deliveryService) append(ctx context.Context, entry *webhook.DeliveryLogEntry) error {
	if err := s.cfg.Log.Append(ctx, entry); err != nil {
		s.logger.Error("appending delivery log failed",
			"subscription_id", entry.SubscriptionID, "topic", entry.Topic, "error", err)
		return &StoreUnavailableError{Op: "append delivery log", Err: err}
	}
	return nil
}

// observe reports the outcome to metrics and publishes a delivery event.
// Pending entries produce no event.
func (s *deliveryService) observe(source string, entry *webhook.DeliveryLogEntry, elapsed time.Duration) {
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.ObserveDelivery(source, entry.Status, entry.Topic, elapsed)
	}
	if s.cfg.Events == nil {
		return
	}

	var eventType string
	switch entry.Status {
	case webhook.DeliverySuccess:
		eventType = EventDeliverySucceeded
	case webhook.DeliveryFailed:
		eventType = EventDeliveryFailed
	default:
		return
	}
	payload := map[string]string{
		eventbus.KeySource:          source,
		eventbus.KeyLogID:           entry.ID,
		eventbus.KeySubscriptionID:  entry.SubscriptionID,
		eventbus.KeyTopic:           string(entry.Topic),
		eventbus.KeyDeliveryID:      entry.DeliveryID,
		eventbus.KeyDeliveryURL:     entry.DeliveryURL,
		eventbus.KeyStatus:          string(entry.Status),
		eventbus.KeyResponseMessage: entry.ResponseMessage,
	}
	if entry.ResponseCode != nil {
		payload[eventbus.KeyResponseCode] = strconv.Itoa(*entry.ResponseCode)
	}
	s.cfg.Events.Publish(eventType, payload)
}
