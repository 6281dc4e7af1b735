package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MaxBody is the largest request body accepted, in bytes.
const MaxBody = 64 << 10

type errorBody struct {
	Error string `json:"error"`
}

// Handler is the HTTP face of the relay: POST {"message": "..."}.
type Handler struct {
	Relay *Relay
	Log   zerolog.Logger
}

func NewHandler(r *Relay, log zerolog.Logger) *Handler {
	return &Handler{Relay: r, Log: log}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed"})
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, MaxBody+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid JSON"})
		return
	}
	if len(raw) > MaxBody {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "Message too long"})
		return
	}
	msg, ok, valid := parseMessage(raw)
	if !valid {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid JSON"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Message is required"})
		return
	}

	reqID := middleware.GetReqID(r.Context())
	if reqID == "" {
		reqID = uuid.NewString()
	}
	log := h.Log.With().Str("request_id", reqID).Logger()
	// the visitor leaving must not abort the notification; the client
	// timeout bounds each stage instead
	ctx := log.WithContext(context.WithoutCancel(r.Context()))

	writeJSON(w, http.StatusOK, h.Relay.Relay(ctx, msg))
}

// parseMessage returns the trimmed message, whether it is usable, and whether
// the body was valid JSON at all. An empty body counts as {}.
func parseMessage(raw []byte) (string, bool, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	if !json.Valid(raw) {
		return "", false, false
	}
	var body struct {
		Message json.RawMessage `json:"message"`
	}
	// Valid JSON that is not an object simply has no message.
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", false, true
	}
	var msg string
	if err := json.Unmarshal(body.Message, &msg); err != nil {
		return "", false, true
	}
	msg = strings.TrimSpace(msg)
	return msg, msg != "", true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
