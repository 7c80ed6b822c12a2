// Package relay exposes the HTTP surface of the dispatch relay: three
// event endpoints that validate requests, build the provider payload and
// forward it to APNs.
package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/sideshow/apns2"

	"github.com/Renegades-Studio/live-activity-demo/internal/apns"
	"github.com/Renegades-Studio/live-activity-demo/internal/observability"
	"github.com/Renegades-Studio/live-activity-demo/pkg/liveactivity"
)

// Sender dispatches a built notification to the push provider.
type Sender interface {
	Send(ctx context.Context, n *apns2.Notification, sandbox bool) error
}

// Handler coordinates relay requests with the push dispatcher. It holds
// no session state; everything required travels in the request.
type Handler struct {
	sender Sender
	logger *slog.Logger
	now    func() time.Time
}

// NewHandler builds a Handler.
func NewHandler(sender Sender, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{sender: sender, logger: logger, now: time.Now}
}

// RegisterRoutes wires endpoints to the mux. The root route doubles as
// the not-found fallback.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/start", h.start)
	mux.HandleFunc("/update", h.update)
	mux.HandleFunc("/end", h.end)
	mux.HandleFunc("/healthz", healthz)
	mux.HandleFunc("/", notFound)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Endpoint not found", "")
}

// StartRequest is the payload for POST /start.
type StartRequest struct {
	Token     string        `json:"token"`
	Payload   *StartPayload `json:"payload"`
	IsSandbox bool          `json:"isSandbox"`
}

// StartPayload carries the countdown fields for a new activity.
type StartPayload struct {
	Title       string `json:"title"`
	StartTimeMs int64  `json:"startTimeMs"`
	EndTimeMs   int64  `json:"endTimeMs"`
}

// UpdateRequest is the payload for POST /update. The content state is
// decoded separately so unknown variants are rejected explicitly.
type UpdateRequest struct {
	Token     string          `json:"token"`
	Payload   json.RawMessage `json:"payload"`
	IsSandbox bool            `json:"isSandbox"`
}

// EndRequest is the payload for POST /end.
type EndRequest struct {
	Token     string `json:"token"`
	IsSandbox bool   `json:"isSandbox"`
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		observability.RecordValidationFailure("start")
		writeError(w, http.StatusBadRequest, "unable to parse request body", "")
		return
	}
	if req.Token == "" || req.Payload == nil {
		observability.RecordValidationFailure("start")
		writeError(w, http.StatusBadRequest, "Missing required fields: token and payload are required", "")
		return
	}
	if req.Payload.Title == "" || req.Payload.StartTimeMs == 0 || req.Payload.EndTimeMs == 0 {
		observability.RecordValidationFailure("start")
		writeError(w, http.StatusBadRequest, "Missing required payload fields: title, startTimeMs, and endTimeMs are required", "")
		return
	}

	content := liveactivity.ContentState{
		Type:        liveactivity.ContentTypePreGame,
		Title:       req.Payload.Title,
		StartTimeMs: req.Payload.StartTimeMs,
		EndTimeMs:   req.Payload.EndTimeMs,
	}
	if err := content.Validate(); err != nil {
		observability.RecordValidationFailure("start")
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	h.dispatch(w, r, apns.EventStart, req.Token, content, req.IsSandbox)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		observability.RecordValidationFailure("update")
		writeError(w, http.StatusBadRequest, "unable to parse request body", "")
		return
	}
	if req.Token == "" || len(req.Payload) == 0 || string(req.Payload) == "null" {
		observability.RecordValidationFailure("update")
		writeError(w, http.StatusBadRequest, "Missing required fields: token and payload are required", "")
		return
	}

	content, err := liveactivity.DecodeContentState(req.Payload)
	if err != nil {
		observability.RecordValidationFailure("update")
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	h.dispatch(w, r, apns.EventUpdate, req.Token, content, req.IsSandbox)
}

func (h *Handler) end(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	var req EndRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		observability.RecordValidationFailure("end")
		writeError(w, http.StatusBadRequest, "unable to parse request body", "")
		return
	}
	if req.Token == "" {
		observability.RecordValidationFailure("end")
		writeError(w, http.StatusBadRequest, "Missing required field: token is required", "")
		return
	}

	h.dispatch(w, r, apns.EventEnd, req.Token, liveactivity.ContentState{}, req.IsSandbox)
}

// dispatch builds the provider payload and forwards it. Provider failures
// surface as a server error with the provider's message attached; nothing
// is retried here — the caller decides.
func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request, event apns.Event, token string, content liveactivity.ContentState, sandbox bool) {
	environment := "production"
	if sandbox {
		environment = "sandbox"
	}

	notification := apns.BuildNotification(event, token, content, h.now())
	if err := h.sender.Send(r.Context(), notification, sandbox); err != nil {
		observability.RecordNotificationFailure(string(event), environment)
		h.logger.Error("dispatch failed", "event", event, "environment", environment, "error", err)
		writeError(w, http.StatusInternalServerError,
			"Failed to send live activity "+string(event)+" notification", err.Error())
		return
	}

	observability.RecordNotificationSent(string(event), environment)
	writeJSON(w, http.StatusOK, SuccessResponse{
		Success: true,
		Message: "Live activity " + string(event) + " notification sent successfully",
	})
}

// SuccessResponse is the body returned for delivered notifications.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	payload := map[string]string{"error": message}
	if details != "" {
		payload["details"] = details
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
