// Package session provides in-memory conversation sessions for the chat
// service.
//
// Sessions are created lazily on first use, identified by caller-chosen
// string IDs, and evicted by idle TTL and by capacity. Conversation
// history is append-only: entries accumulate across turns and are never
// rewritten, only read.
package session

import (
	"sync"

	"github.com/firebase/genkit/go/ai"
)

// History encapsulates conversation history with thread-safe access.
//
// The zero value is NOT useful - use NewHistory() to create instances.
type History struct {
	mu       sync.RWMutex
	messages []*ai.Message
}

// NewHistory creates a new History instance.
func NewHistory() *History {
	return &History{
		messages: make([]*ai.Message, 0),
	}
}

// Messages returns a copy of all messages for thread-safe access.
func (h *History) Messages() []*ai.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	result := make([]*ai.Message, len(h.messages))
	copy(result, h.messages)
	return result
}

// Add appends a single message.
// Returns without effect if msg is nil.
func (h *History) Add(msg *ai.Message) {
	if msg == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msg)
}

// AddAll appends all messages in order, skipping nils.
func (h *History) AddAll(msgs []*ai.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, msg := range msgs {
		if msg != nil {
			h.messages = append(h.messages, msg)
		}
	}
}

// Count returns the number of messages.
func (h *History) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}
