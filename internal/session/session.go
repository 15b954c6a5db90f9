// Package session models an optional interactive session whose input cache
// supplies better diagnostic names for source fragments. Code that uses it
// must treat a missing session as the normal case.
package session

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Session registers source text and returns the label it was cached under.
type Session interface {
	Cache(source string) string
}

// Lookup returns the active session, if there is one.
type Lookup func() (Session, bool)

var active atomic.Pointer[History]

// Active returns the process-wide session started with Start.
func Active() (Session, bool) {
	h := active.Load()
	if h == nil {
		return nil, false
	}
	return h, true
}

// None is a Lookup that never finds a session.
func None() (Session, bool) {
	return nil, false
}

// History numbers every cached input, the way an interactive shell numbers prompts.
type History struct {
	id string

	mu      sync.Mutex
	counter int
	sources map[string]string
}

// New returns an inactive history.
func New() *History {
	return &History{id: uuid.NewString(), sources: map[string]string{}}
}

// Start activates a new history process-wide and returns it.
func Start() *History {
	h := New()
	active.Store(h)
	return h
}

// Close deactivates h if it is still the active session.
func (h *History) Close() {
	active.CompareAndSwap(h, nil)
}

// ID returns the session identifier.
func (h *History) ID() string {
	return h.id
}

// Cache stores source and returns its label.
func (h *History) Cache(source string) string {
	sum := sha1.Sum([]byte(source))
	h.mu.Lock()
	defer h.mu.Unlock()
	h.counter++
	label := fmt.Sprintf("<session-input-%d-%s>", h.counter, hex.EncodeToString(sum[:])[:12])
	h.sources[label] = source
	return label
}

// Source returns the text cached under label.
func (h *History) Source(label string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	src, ok := h.sources[label]
	return src, ok
}

// Len returns how many inputs were cached.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counter
}
