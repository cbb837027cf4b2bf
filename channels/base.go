// Package channels provides the typed state/channel model for chatgraph.
//
// Every key in the graph state is backed by a channel with explicit merge
// semantics: LastValue replaces, Topic appends, ReducerChannel applies a
// custom reducer. The Registry holds one channel per schema key and is the
// unit that gets checkpointed after every step.
package channels

import (
	"fmt"

	"github.com/chatgraph-go/chatgraph/errors"
)

// Missing is a sentinel value to indicate a missing value.
var Missing = &missingSentinel{}

type missingSentinel struct{}

func (m *missingSentinel) String() string {
	return "<MISSING>"
}

// IsMissing checks if a value is the Missing sentinel.
func IsMissing(v interface{}) bool {
	if v == nil {
		return false
	}
	_, ok := v.(*missingSentinel)
	return ok
}

// Channel is the base interface for all channels.
type Channel interface {
	// GetKey returns the channel key.
	GetKey() string
	// SetKey sets the channel key.
	SetKey(key string)
	// Get returns the current value of the channel.
	// Returns EmptyChannelError if the channel is empty.
	Get() (interface{}, error)
	// IsAvailable returns true if the channel is available (not empty).
	IsAvailable() bool
	// Update updates the channel's value with the given sequence of updates.
	// Returns true if the channel was updated.
	Update(values []interface{}) (bool, error)
	// Copy returns an independent copy of the channel.
	Copy() Channel
	// Checkpoint returns a serializable representation of the channel's current state.
	// Returns Missing if the channel is empty.
	Checkpoint() interface{}
	// FromCheckpoint returns a new channel initialized from a checkpoint.
	FromCheckpoint(checkpoint interface{}) Channel
}

// BaseChannel provides a base implementation of Channel.
// Embed this struct in channel implementations.
type BaseChannel struct {
	Key string
}

// GetKey returns the channel key.
func (c *BaseChannel) GetKey() string {
	return c.Key
}

// SetKey sets the channel key.
func (c *BaseChannel) SetKey(key string) {
	c.Key = key
}

// Registry holds the channels backing a state schema, one per key.
type Registry struct {
	channels map[string]Channel
}

// NewRegistry creates a new channel registry.
func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[string]Channel),
	}
}

// Register registers a channel under the given key.
func (r *Registry) Register(name string, channel Channel) {
	channel.SetKey(name)
	r.channels[name] = channel
}

// Get gets a channel by name.
func (r *Registry) Get(name string) (Channel, bool) {
	ch, ok := r.channels[name]
	return ch, ok
}

// Len returns the number of channels.
func (r *Registry) Len() int {
	return len(r.channels)
}

// Names returns all channel names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.channels))
	for name := range r.channels {
		names = append(names, name)
	}
	return names
}

// Copy returns an independent copy of the registry and every channel in it.
// The engine copies the compiled schema's registry at run start so runs never
// share mutable channel state.
func (r *Registry) Copy() *Registry {
	cp := NewRegistry()
	for name, channel := range r.channels {
		cp.channels[name] = channel.Copy()
	}
	return cp
}

// UpdateChannels applies writes to channels. Each key's channel decides the
// merge semantics; a write to an undeclared key is a ChannelNotFoundError.
func (r *Registry) UpdateChannels(writes map[string][]interface{}) error {
	for name, values := range writes {
		channel, ok := r.channels[name]
		if !ok {
			return &errors.ChannelNotFoundError{ChannelName: name}
		}
		if _, err := channel.Update(values); err != nil {
			return fmt.Errorf("failed to update channel %s: %w", name, err)
		}
	}
	return nil
}

// GetValues returns the current values of all non-empty channels.
func (r *Registry) GetValues() (map[string]interface{}, error) {
	values := make(map[string]interface{})
	for name, channel := range r.channels {
		val, err := channel.Get()
		if err != nil {
			if errors.IsEmptyChannelError(err) {
				continue
			}
			return nil, fmt.Errorf("failed to get value from channel %s: %w", name, err)
		}
		values[name] = val
	}
	return values, nil
}

// CreateCheckpoint creates a checkpoint for all channels.
func (r *Registry) CreateCheckpoint() map[string]interface{} {
	checkpoint := make(map[string]interface{})
	for name, channel := range r.channels {
		cp := channel.Checkpoint()
		if !IsMissing(cp) {
			checkpoint[name] = cp
		}
	}
	return checkpoint
}

// RestoreFromCheckpoint restores all channels from a checkpoint.
func (r *Registry) RestoreFromCheckpoint(checkpoint map[string]interface{}) error {
	for name, cp := range checkpoint {
		channel, ok := r.channels[name]
		if !ok {
			return &errors.ChannelNotFoundError{ChannelName: name}
		}
		r.channels[name] = channel.FromCheckpoint(cp)
	}
	return nil
}
