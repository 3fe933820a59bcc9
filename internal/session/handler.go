package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/tracelay/tracelay/backend-go/internal/document"
)

// Previewer renders a scene to an image stream.
type Previewer interface {
	WritePreview(w io.Writer, images []document.ImageTransform) error
}

type Handler struct {
	hub            *Hub
	tokens         *TokenService
	preview        Previewer
	originPatterns []string
	logger         *slog.Logger
}

func NewHandler(hub *Hub, tokens *TokenService, preview Previewer, originPatterns []string, logger *slog.Logger) *Handler {
	return &Handler{
		hub:            hub,
		tokens:         tokens,
		preview:        preview,
		originPatterns: originPatterns,
		logger:         logger,
	}
}

type createResponse struct {
	SessionID string `json:"sessionId"`
	Token     string `json:"token"`
}

// Create handles POST /sessions.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	s := h.hub.Create()

	token, err := h.tokens.Issue(s.ID)
	if err != nil {
		h.hub.Remove(s.ID)
		h.logger.Error("issue session token", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusCreated, createResponse{SessionID: s.ID, Token: token})
}

// Connect handles GET /ws/session/{sessionId}?token=.
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	s, ok := h.authorize(w, r)
	if !ok {
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.logger.Error("websocket accept", "error", err)
		return
	}

	client := NewClient(s, conn, uuid.New().String(), h.logger)

	ctx := r.Context()
	if err := s.Join(ctx, client); err != nil {
		conn.Close(websocket.StatusGoingAway, "session closed")
		return
	}

	go client.WritePump(ctx)
	client.ReadPump(ctx)
}

// Preview handles GET /sessions/{sessionId}/preview.webp.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	s, ok := h.authorize(w, r)
	if !ok {
		return
	}

	state, err := s.Snapshot(r.Context())
	if err != nil {
		writeJSON(w, http.StatusGone, map[string]string{"error": "session closed"})
		return
	}

	var buf bytes.Buffer
	if err := h.preview.WritePreview(&buf, state.Images); err != nil {
		h.logger.Error("render preview", "error", err, "session", s.ID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to render preview"})
		return
	}

	w.Header().Set("Content-Type", "image/webp")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// authorize checks the token against the session in the path and writes the
// error response when it does not match.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	sessionID := mux.Vars(r)["sessionId"]

	token := bearerToken(r)
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing token"})
		return nil, false
	}

	subject, err := h.tokens.Validate(token)
	if err != nil || subject != sessionID {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
		return nil, false
	}

	s, err := h.hub.Get(sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
			return nil, false
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return nil, false
	}
	return s, true
}

// bearerToken reads the token from the query string (browsers cannot set
// headers on a WebSocket handshake) or the Authorization header.
func bearerToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
