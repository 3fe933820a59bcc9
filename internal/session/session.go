package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/tracelay/tracelay/backend-go/internal/engine"
)

// ErrClosed is returned when work is queued on a session that has ended.
var ErrClosed = errors.New("session closed")

const inboundBuffer = 64

type event struct {
	client *Client
	msg    *Message
	fn     func(*engine.Engine)
}

// Session owns one engine. All engine access goes through the run loop, so
// events from every client apply in arrival order.
type Session struct {
	ID      string
	engine  *engine.Engine
	inbound chan event
	done    chan struct{}
	once    sync.Once
	logger  *slog.Logger

	// run loop only
	seq      int64
	pointers *pointerMap

	mu      sync.RWMutex
	clients map[string]*Client
	expires time.Time
}

func newSession(id string, e *engine.Engine, expires time.Time, logger *slog.Logger) *Session {
	return &Session{
		ID:       id,
		engine:   e,
		inbound:  make(chan event, inboundBuffer),
		done:     make(chan struct{}),
		logger:   logger.With("session", id),
		pointers: newPointerMap(),
		clients:  make(map[string]*Client),
		expires:  expires,
	}
}

func (s *Session) run() {
	for {
		select {
		case ev := <-s.inbound:
			s.handle(ev)
		case <-s.done:
			return
		}
	}
}

func (s *Session) handle(ev event) {
	if ev.fn != nil {
		ev.fn(s.engine)
		return
	}

	if ev.client != nil && ev.msg.ClientID == "" {
		ev.msg.ClientID = ev.client.ClientID
	}
	out, err := apply(s.engine, s.pointers, ev.msg)
	if err != nil {
		s.logger.Warn("apply message", "error", err, "type", ev.msg.Type, "client", ev.msg.ClientID)
		if ev.client != nil {
			ev.client.Send(newMessage(TypeError, ErrorPayload{Message: err.Error()}))
		}
		return
	}
	s.broadcast(s.frame(out))
}

// Enqueue hands a client message to the run loop.
func (s *Session) Enqueue(ctx context.Context, c *Client, msg *Message) error {
	if s.isClosed() {
		return ErrClosed
	}
	select {
	case s.inbound <- event{client: c, msg: msg}:
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do runs fn on the run loop and waits for it to finish.
func (s *Session) Do(ctx context.Context, fn func(*engine.Engine)) error {
	finished := make(chan struct{})
	wrapped := func(e *engine.Engine) {
		defer close(finished)
		fn(e)
	}

	if s.isClosed() {
		return ErrClosed
	}
	select {
	case s.inbound <- event{fn: wrapped}:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the images and selection of the session.
func (s *Session) Snapshot(ctx context.Context) (engine.State, error) {
	var state engine.State
	err := s.Do(ctx, func(e *engine.Engine) {
		state = e.Snapshot()
	})
	return state, err
}

// Join adds c and sends it the welcome and the current frame.
func (s *Session) Join(ctx context.Context, c *Client) error {
	s.mu.Lock()
	s.clients[c.ClientID] = c
	s.mu.Unlock()

	err := s.Do(ctx, func(e *engine.Engine) {
		c.Send(newMessage(TypeWelcome, WelcomePayload{
			SessionID: s.ID,
			ClientID:  c.ClientID,
			State:     e.Snapshot(),
		}))
		c.Send(s.frame(outcome{}))
	})
	if err != nil {
		s.Leave(c)
		return err
	}

	s.logger.Info("client joined", "client", c.ClientID)
	return nil
}

// Leave removes c and closes its send buffer.
func (s *Session) Leave(c *Client) {
	s.mu.Lock()
	_, ok := s.clients[c.ClientID]
	delete(s.clients, c.ClientID)
	s.mu.Unlock()

	if ok {
		c.close()
		s.releasePointers(c.ClientID)
		s.logger.Info("client left", "client", c.ClientID)
	}
}

// releasePointers cancels the gestures a departed client left open.
func (s *Session) releasePointers(clientID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := s.Do(ctx, func(e *engine.Engine) {
		if s.pointers.releaseClient(e, clientID) {
			s.broadcast(s.frame(outcome{}))
		}
	})
	if err != nil && !errors.Is(err, ErrClosed) {
		s.logger.Warn("release pointers", "error", err, "client", clientID)
	}
}

// Clients returns the number of connected clients.
func (s *Session) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Expired reports whether the session outlived its tokens and nobody is connected.
func (s *Session) Expired(now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients) == 0 && now.After(s.expires)
}

// Close stops the run loop and disconnects every client.
func (s *Session) Close() {
	s.once.Do(func() {
		close(s.done)

		s.mu.Lock()
		clients := s.clients
		s.clients = make(map[string]*Client)
		s.mu.Unlock()

		for _, c := range clients {
			c.close()
		}
	})
}

func (s *Session) isClosed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// frame must be called from the run loop.
func (s *Session) frame(out outcome) *Message {
	commands := s.engine.Commands()
	if commands == nil {
		commands = []engine.DrawCommand{}
	}
	var selection *string
	if id, ok := s.engine.Selected(); ok {
		selection = &id
	}

	s.seq++
	msg := newMessage(TypeFrame, FramePayload{
		Commands:       commands,
		Selection:      selection,
		PreventDefault: out.result.PreventDefault,
		AddedID:        out.addedID,
	})
	msg.SessionID = s.ID
	msg.Seq = s.seq
	return msg
}

func (s *Session) broadcast(msg *Message) {
	s.mu.RLock()
	clients := make([]*Client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}
