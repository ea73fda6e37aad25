package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	wsadapter "leaderbot/adapters/websocket"
	"leaderbot/cooldown"
	"leaderbot/core"
	"leaderbot/engine"
	"leaderbot/leaderboard"
	"leaderbot/realtime"
	"leaderbot/render"
)

const maxBodyBytes = 1 << 20

// Options configures the HTTP API surface.
type Options struct {
	// PathPrefix, if set, is prepended to all routes (e.g., "/api").
	PathPrefix string
	// AllowCORSOrigin, if non-empty, enables basic CORS with the given origin (use "*" for any).
	AllowCORSOrigin string
	// APIKeys, if non-empty, enables static API key auth via Authorization: Bearer or X-API-Key.
	APIKeys []string
	// RateLimitEnabled toggles rate limiting.
	RateLimitEnabled bool
	// RateLimitRPM is the allowed requests per minute per client key.
	RateLimitRPM int
	// RateLimitBurst defines burst capacity.
	RateLimitBurst int
}

// NewMux builds an http.Handler exposing the leaderboard commands to a chat
// dispatcher plus a WebSocket event stream.
// Routes:
//   - POST {prefix}/awards
//   - POST {prefix}/reset
//   - GET  {prefix}/leaderboard
//   - GET  {prefix}/leaderboard/{id}
//   - POST {prefix}/cooldowns/{scope}
//   - GET  {prefix}/healthz
//   - WS   {prefix}/ws
func NewMux(svc *engine.Service, hub *realtime.Hub, opts Options) http.Handler {
	mux := http.NewServeMux()
	h := &handlers{svc: svc}
	route := func(method, path string, fn http.HandlerFunc) {
		mux.HandleFunc(method+" "+withPrefix(opts.PathPrefix, path), fn)
	}

	route(http.MethodGet, "/healthz", h.health)
	route(http.MethodPost, "/awards", h.award)
	route(http.MethodPost, "/reset", h.reset)
	route(http.MethodGet, "/leaderboard", h.ranking)
	route(http.MethodGet, "/leaderboard/{id}", h.position)
	route(http.MethodPost, "/cooldowns/{scope}", h.requestCooldown)

	// WebSocket events
	if hub != nil {
		mux.Handle(withPrefix(opts.PathPrefix, "/ws"), wsadapter.Handler(hub))
	}

	mux.HandleFunc(withPrefix(opts.PathPrefix, "/"), func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
	})

	var handler http.Handler = mux
	if opts.AllowCORSOrigin != "" {
		handler = withCORS(handler, opts.AllowCORSOrigin)
	}
	if len(opts.APIKeys) > 0 {
		handler = withAPIKeyAuth(handler, opts.APIKeys)
	}
	if opts.RateLimitEnabled && opts.RateLimitRPM > 0 && opts.RateLimitBurst > 0 {
		handler = withRateLimit(handler, opts.RateLimitRPM, opts.RateLimitBurst)
	}
	return handler
}

// AwardRequest is the body of POST /awards. Ids are strings because chat
// snowflakes exceed the exact integer range of JSON numbers in most clients.
type AwardRequest struct {
	TargetID   string   `json:"target_id"`
	Delta      *int64   `json:"delta"`
	ActorRoles []string `json:"actor_roles"`
}

// AwardResponse reports the committed totals. Position is 0 when the award
// succeeded but its rank could not be read back.
type AwardResponse struct {
	ActorID  string         `json:"actor_id"`
	Points   int64          `json:"points"`
	Wins     int64          `json:"wins"`
	Position int            `json:"position,omitempty"`
	Message  render.Message `json:"message"`
	DM       string         `json:"dm"`
}

type ResetRequest struct {
	ActorRoles []string `json:"actor_roles"`
}

type RankedEntry struct {
	Position int    `json:"position"`
	ActorID  string `json:"actor_id"`
	Points   int64  `json:"points"`
	Wins     int64  `json:"wins"`
}

type LeaderboardResponse struct {
	Entries []RankedEntry  `json:"entries"`
	Message render.Message `json:"message"`
}

type CooldownResponse struct {
	Acquired          bool    `json:"acquired"`
	RetryAfterSeconds float64 `json:"retry_after_seconds,omitempty"`
	Countdown         int     `json:"countdown,omitempty"`
	Message           string  `json:"message,omitempty"`
}

type handlers struct {
	svc *engine.Service
}

// health verifies the store is reachable.
func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status": "healthy",
		"checks": map[string]any{
			"storage": "ok",
		},
	}
	code := http.StatusOK
	if err := h.svc.Ping(r.Context()); err != nil {
		code = http.StatusServiceUnavailable
		status["status"] = "unhealthy"
		status["checks"].(map[string]any)["storage"] = "failed"
	}
	writeJSONStatus(w, code, status)
}

func (h *handlers) award(w http.ResponseWriter, r *http.Request) {
	var req AwardRequest
	if !decodeBody(w, r, &req) {
		return
	}
	target, err := core.ParseActorID(req.TargetID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if req.Delta == nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "delta is required", nil)
		return
	}
	roles, ok := parseRoles(w, req.ActorRoles)
	if !ok {
		return
	}

	res, err := h.svc.Award(r.Context(), target, *req.Delta, roles)
	if err != nil && !errors.Is(err, core.ErrPositionUnavailable) {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, AwardResponse{
		ActorID:  res.Entry.ActorID.String(),
		Points:   res.Entry.Points,
		Wins:     res.Entry.Wins,
		Position: res.Position,
		Message:  render.AwardConfirmation(target, *req.Delta),
		DM:       render.AwardDM(target, *req.Delta, res.Position),
	})
}

func (h *handlers) reset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	roles, ok := parseRoles(w, req.ActorRoles)
	if !ok {
		return
	}
	if err := h.svc.Reset(r.Context(), roles); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]any{"ok": true, "message": render.ResetDone()})
}

func (h *handlers) ranking(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListRanking(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	entries := make([]RankedEntry, 0, len(list))
	for _, rk := range list {
		entries = append(entries, toRankedEntry(rk))
	}
	writeJSON(w, LeaderboardResponse{Entries: entries, Message: render.Ranking(list)})
}

func (h *handlers) position(w http.ResponseWriter, r *http.Request) {
	actor, err := core.ParseActorID(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rk, err := h.svc.Position(r.Context(), actor)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			msg := render.NotFound(actor)
			writeError(w, http.StatusNotFound, "not_found", msg.Text, msg)
			return
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, toRankedEntry(rk))
}

func (h *handlers) requestCooldown(w http.ResponseWriter, r *http.Request) {
	res := h.svc.RequestWithCooldown(r.Context(), r.PathValue("scope"))
	if res.Acquired {
		writeJSON(w, CooldownResponse{Acquired: true})
		return
	}
	countdown := cooldown.Seconds(res.RetryAfter)
	w.Header().Set("Retry-After", strconv.Itoa(countdown))
	writeJSONStatus(w, http.StatusTooManyRequests, CooldownResponse{
		RetryAfterSeconds: res.RetryAfter.Seconds(),
		Countdown:         countdown,
		Message:           render.CooldownNotice(res.RetryAfter),
	})
}

// Helpers

func toRankedEntry(rk leaderboard.Ranked) RankedEntry {
	return RankedEntry{
		Position: rk.Position,
		ActorID:  rk.Entry.ActorID.String(),
		Points:   rk.Entry.Points,
		Wins:     rk.Entry.Wins,
	}
}

func parseRoles(w http.ResponseWriter, raw []string) (core.RoleSet, bool) {
	roles := make(core.RoleSet, len(raw))
	for _, s := range raw {
		id, err := core.ParseRoleID(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
			return nil, false
		}
		roles[id] = struct{}{}
	}
	return roles, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON", nil)
		return false
	}
	return true
}

// writeServiceError maps the Service error taxonomy to HTTP. The message is
// the user-facing text, so storage details never leak.
func writeServiceError(w http.ResponseWriter, err error) {
	msg := render.Error(err)
	switch {
	case errors.Is(err, core.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "permission_denied", msg.Text, msg)
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", msg.Text, msg)
	case errors.Is(err, core.ErrOverflow):
		writeError(w, http.StatusUnprocessableEntity, "overflow", msg.Text, msg)
	case errors.Is(err, core.ErrInvalidActor):
		writeError(w, http.StatusBadRequest, "invalid_actor", msg.Text, msg)
	case core.IsStorageError(err):
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", msg.Text, msg)
	default:
		writeError(w, http.StatusInternalServerError, "internal", msg.Text, msg)
	}
}

func withPrefix(prefix, path string) string {
	if prefix == "" || prefix == "/" {
		return path
	}
	if prefix[len(prefix)-1] == '/' {
		return prefix[:len(prefix)-1] + path
	}
	return prefix + path
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string, details any) {
	writeJSONStatus(w, status, apiError{Code: code, Message: msg, Details: details})
}
