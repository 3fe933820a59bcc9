package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tracelay/tracelay/backend-go/internal/engine"
	"github.com/tracelay/tracelay/backend-go/internal/gesture"
)

// ErrUnknownType is returned for messages the session does not handle.
var ErrUnknownType = errors.New("unknown message type")

// outcome is what applying one inbound message produced.
type outcome struct {
	result  gesture.Result
	addedID string
}

// apply runs one inbound message against the engine.
func apply(e *engine.Engine, pointers *pointerMap, msg *Message) (outcome, error) {
	switch msg.Type {
	case TypePointerDown, TypePointerMove, TypePointerUp, TypePointerCancel:
		return applyPointer(e, pointers, msg)
	case TypePointerType:
		return applyPointerType(e, msg)
	case TypeImageAdd:
		return applyAdd(e, msg)
	case TypeImageRemove:
		e.RemoveSelected()
		return outcome{}, nil
	case TypeImageOpacity:
		return applyOpacity(e, msg)
	case TypeImageSelect:
		return applySelect(e, msg)
	default:
		return outcome{}, fmt.Errorf("%w: %s", ErrUnknownType, msg.Type)
	}
}

func applyPointer(e *engine.Engine, pointers *pointerMap, msg *Message) (outcome, error) {
	var p PointerPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		return outcome{}, fmt.Errorf("unmarshal pointer: %w", err)
	}

	if msg.Type == TypePointerDown {
		id := pointers.acquire(msg.ClientID, p.PointerID)
		return outcome{result: e.PointerDown(id, p.X, p.Y)}, nil
	}

	id, ok := pointers.lookup(msg.ClientID, p.PointerID)
	if !ok {
		return outcome{}, nil
	}
	var res gesture.Result
	switch msg.Type {
	case TypePointerMove:
		res = e.PointerMove(id, p.X, p.Y)
	case TypePointerUp:
		pointers.release(msg.ClientID, p.PointerID)
		res = e.PointerUp(id, p.X, p.Y)
	case TypePointerCancel:
		pointers.release(msg.ClientID, p.PointerID)
		e.PointerCancel(id)
	}
	return outcome{result: res}, nil
}

func applyPointerType(e *engine.Engine, msg *Message) (outcome, error) {
	var p PointerTypePayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		return outcome{}, fmt.Errorf("unmarshal pointer type: %w", err)
	}
	e.SetPointerType(p.Coarse)
	return outcome{}, nil
}

func applyAdd(e *engine.Engine, msg *Message) (outcome, error) {
	var p ImageAddPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		return outcome{}, fmt.Errorf("unmarshal image add: %w", err)
	}
	if p.SourceRef == "" {
		return outcome{}, errors.New("sourceRef is required")
	}
	return outcome{addedID: e.Add(p.SourceRef)}, nil
}

func applyOpacity(e *engine.Engine, msg *Message) (outcome, error) {
	var p ImageOpacityPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		return outcome{}, fmt.Errorf("unmarshal opacity: %w", err)
	}
	e.SetOpacity(p.Value)
	return outcome{}, nil
}

func applySelect(e *engine.Engine, msg *Message) (outcome, error) {
	var p ImageSelectPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		return outcome{}, fmt.Errorf("unmarshal select: %w", err)
	}
	e.Select(p.ID)
	return outcome{}, nil
}
