package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"leaderbot/core"
	"leaderbot/render"
)

// Payload is the JSON body posted for each announced event. Content carries
// the rendered announcement so chat webhooks can post it verbatim.
type Payload struct {
	Content string     `json:"content"`
	Event   core.Event `json:"event"`
}

// Sink posts award and reset announcements to configured HTTP endpoints.
// It is synchronous; subscribe it to an async bus to keep it off the command path.
type Sink struct {
	client    *http.Client
	endpoints []string
	log       *slog.Logger
}

// Option configures a Sink.
type Option func(*Sink)

// WithClient overrides the HTTP client (defaults to 2s timeout).
func WithClient(c *http.Client) Option {
	return func(s *Sink) {
		if c != nil {
			s.client = c
		}
	}
}

// WithLogger sets the logger used for delivery failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sink) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates a webhook sink.
func New(endpoints []string, opts ...Option) *Sink {
	s := &Sink{
		client: &http.Client{Timeout: 2 * time.Second},
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.endpoints = append([]string{}, endpoints...)
	return s
}

// Announcement renders the content posted for ev. Events that are not
// announced return ok=false.
func Announcement(ev core.Event) (string, bool) {
	switch ev.Type {
	case core.EventAwarded:
		return render.AwardConfirmation(ev.ActorID, ev.Delta).Text, true
	case core.EventReset:
		return render.ResetDone().Text, true
	default:
		return "", false
	}
}

// Deliver posts ev to every endpoint and joins the failures.
func (s *Sink) Deliver(ctx context.Context, ev core.Event) error {
	content, ok := Announcement(ev)
	if !ok || len(s.endpoints) == 0 {
		return nil
	}
	body, err := json.Marshal(Payload{Content: content, Event: ev})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	var errs []error
	for _, ep := range s.endpoints {
		if err := s.post(ctx, ep, body); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ep, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Sink) post(ctx context.Context, endpoint string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Handle has the event bus handler signature. Failures are logged.
func (s *Sink) Handle(ctx context.Context, ev core.Event) {
	if err := s.Deliver(ctx, ev); err != nil {
		s.log.Warn("webhook delivery failed", "event_id", ev.ID, "type", ev.Type, "error", err)
	}
}
