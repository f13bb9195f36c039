// Package notification provides the outbound channel abstraction and its
// built-in implementations. The engine treats all channels polymorphically
// and is channel-count-agnostic.
package notification

import (
	"context"
	"fmt"
	"sync"
)

// Content is a rendered notification ready for transport.
type Content struct {
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Priority string            `json:"priority,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Channel is a single outbound notification transport.
type Channel interface {
	// Name identifies the channel in rule configurations and attempt logs.
	Name() string
	// Send delivers the content. Implementations honor ctx cancellation.
	Send(ctx context.Context, content Content) error
}

// Registry holds the configured channels by name.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]Channel
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]Channel)}
}

// Register adds a channel. Registering a duplicate name is an error.
func (r *Registry) Register(ch Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.channels[ch.Name()]; exists {
		return fmt.Errorf("channel %q already registered", ch.Name())
	}
	r.channels[ch.Name()] = ch
	return nil
}

// Get returns the channel with the given name.
func (r *Registry) Get(name string) (Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[name]
	return ch, ok
}

// Names returns the registered channel names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.channels))
	for name := range r.channels {
		names = append(names, name)
	}
	return names
}
