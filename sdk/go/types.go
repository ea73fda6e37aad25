package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"leaderbot/core"
)

// Message is a rendered, user-facing payload.
type Message struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	Color string `json:"color"`
}

// AwardResult mirrors the POST /awards response.
type AwardResult struct {
	ActorID  string  `json:"actor_id"`
	Points   int64   `json:"points"`
	Wins     int64   `json:"wins"`
	Position int     `json:"position"`
	Message  Message `json:"message"`
	DM       string  `json:"dm"`
}

// RankedEntry is one leaderboard row.
type RankedEntry struct {
	Position int    `json:"position"`
	ActorID  string `json:"actor_id"`
	Points   int64  `json:"points"`
	Wins     int64  `json:"wins"`
}

// Leaderboard is the full ranking plus its rendered text.
type Leaderboard struct {
	Entries []RankedEntry `json:"entries"`
	Message Message       `json:"message"`
}

// CooldownResult reports whether a leaderboard request may proceed.
type CooldownResult struct {
	Acquired          bool    `json:"acquired"`
	RetryAfterSeconds float64 `json:"retry_after_seconds"`
	Countdown         int     `json:"countdown"`
	Message           string  `json:"message"`
}

// HealthStatus describes the /healthz response.
type HealthStatus struct {
	Status string                 `json:"status"`
	Checks map[string]interface{} `json:"checks"`
}

// APIError is a non-2xx response. It matches the core sentinel errors with
// errors.Is, so callers can branch on core.ErrPermissionDenied and friends.
type APIError struct {
	StatusCode int      `json:"-"`
	Code       string   `json:"code"`
	Message    string   `json:"message"`
	Details    *Message `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed: status %d: %s: %s", e.StatusCode, e.Code, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch e.Code {
	case "permission_denied":
		return target == core.ErrPermissionDenied
	case "not_found":
		return target == core.ErrNotFound
	case "overflow":
		return target == core.ErrOverflow
	case "invalid_actor":
		return target == core.ErrInvalidActor
	}
	return false
}

func decodeJSON(resp *http.Response, target any) error {
	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(target)
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = "http_error"
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// ErrEmptyActorID is returned when an actor id is empty.
var ErrEmptyActorID = errors.New("actor id is required")
