package session

import (
	"encoding/json"

	"github.com/tracelay/tracelay/backend-go/internal/engine"
)

type Message struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId,omitempty"`
	ClientID  string          `json:"clientId,omitempty"`
	Seq       int64           `json:"seq,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

const (
	// Input
	TypePointerDown   = "pointer.down"
	TypePointerMove   = "pointer.move"
	TypePointerUp     = "pointer.up"
	TypePointerCancel = "pointer.cancel"
	TypePointerType   = "pointer.type"

	// Mutations
	TypeImageAdd     = "image.add"
	TypeImageRemove  = "image.remove"
	TypeImageOpacity = "image.opacity"
	TypeImageSelect  = "image.select"

	// Connection
	TypeWelcome = "welcome"
	TypeFrame   = "frame"
	TypeError   = "error"
)

type PointerPayload struct {
	PointerID int     `json:"pointerId"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

type PointerTypePayload struct {
	Coarse bool `json:"coarse"`
}

type ImageAddPayload struct {
	SourceRef string `json:"sourceRef"`
}

type ImageOpacityPayload struct {
	Value float64 `json:"value"`
}

type ImageSelectPayload struct {
	ID string `json:"id"`
}

type WelcomePayload struct {
	SessionID string       `json:"sessionId"`
	ClientID  string       `json:"clientId"`
	State     engine.State `json:"state"`
}

// FramePayload carries everything a client needs to repaint the overlay.
type FramePayload struct {
	Commands       []engine.DrawCommand `json:"commands"`
	Selection      *string              `json:"selection"`
	PreventDefault bool                 `json:"preventDefault"`
	// AddedID is set on the frame that answers an image.add.
	AddedID string `json:"addedId,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func newMessage(msgType string, payload any) *Message {
	data, _ := json.Marshal(payload)
	return &Message{Type: msgType, Payload: data}
}
