package session

import "github.com/tracelay/tracelay/backend-go/internal/engine"

type pointerKey struct {
	client string
	id     int
}

// pointerMap gives the pointers of every client distinct engine ids. Clients
// number their pointers independently, so the same id from two clients names
// two different contacts.
type pointerMap struct {
	ids  map[pointerKey]int
	next int
}

func newPointerMap() *pointerMap {
	return &pointerMap{ids: make(map[pointerKey]int)}
}

// acquire returns the engine id of a client pointer, assigning one on first use.
func (m *pointerMap) acquire(client string, id int) int {
	k := pointerKey{client: client, id: id}
	if n, ok := m.ids[k]; ok {
		return n
	}
	m.next++
	m.ids[k] = m.next
	return m.next
}

func (m *pointerMap) lookup(client string, id int) (int, bool) {
	n, ok := m.ids[pointerKey{client: client, id: id}]
	return n, ok
}

func (m *pointerMap) release(client string, id int) {
	delete(m.ids, pointerKey{client: client, id: id})
}

// releaseClient cancels every contact client still holds and reports whether
// there were any.
func (m *pointerMap) releaseClient(e *engine.Engine, client string) bool {
	released := false
	for k, n := range m.ids {
		if k.client != client {
			continue
		}
		e.PointerCancel(n)
		delete(m.ids, k)
		released = true
	}
	return released
}
