// Package conversation implements the client-side synchronization
// controller: the conversation registry, the optimistic message
// exchange engine, the feedback map, and the per-conversation document
// set. All network traffic goes through the api client; all state here
// is local working state for whichever conversation is active.
package conversation

import (
	"errors"
	"sync"

	"docterm/internal/api"
)

// ErrExchangeInFlight is returned when Send is invoked while a
// previous exchange has not resolved. Sends are never queued.
var ErrExchangeInFlight = errors.New("a message exchange is already in flight")

// Engine owns the ordered message log of the active conversation and
// the single-permit send guard. One exchange at a time: an optimistic
// entry is appended before the network round trip, then the whole log
// is replaced by the server's authoritative copy on success or the
// entry is rolled back on failure. The log is discarded wholesale on
// conversation switch, never merged.
type Engine struct {
	mu   sync.Mutex
	busy bool
	log  []api.Message
}

// Messages returns a copy of the current log in chronological order.
func (e *Engine) Messages() []api.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]api.Message, len(e.log))
	copy(out, e.log)
	return out
}

// Busy reports whether an exchange is in flight.
func (e *Engine) Busy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.busy
}

// begin acquires the single send permit. Returns false when an
// exchange is already pending.
func (e *Engine) begin() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy {
		return false
	}
	e.busy = true
	return true
}

func (e *Engine) end() {
	e.mu.Lock()
	e.busy = false
	e.mu.Unlock()
}

// appendOptimistic adds the user's half of the exchange before the
// round trip. The entry has no message id and an empty assistant half.
func (e *Engine) appendOptimistic(text string) {
	e.mu.Lock()
	e.log = append(e.log, api.Message{User: text})
	e.mu.Unlock()
}

// rollback removes the last-appended entry. Correct only because
// concurrent sends are disallowed: the last entry is always the one
// this exchange appended.
func (e *Engine) rollback() {
	e.mu.Lock()
	if n := len(e.log); n > 0 {
		e.log = e.log[:n-1]
	}
	e.mu.Unlock()
}

// replace installs an authoritative log, dropping whatever was held.
func (e *Engine) replace(msgs []api.Message) {
	e.mu.Lock()
	e.log = make([]api.Message, len(msgs))
	copy(e.log, msgs)
	e.mu.Unlock()
}

func (e *Engine) clear() {
	e.mu.Lock()
	e.log = nil
	e.mu.Unlock()
}
