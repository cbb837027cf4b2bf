package channels

import (
	"github.com/chatgraph-go/chatgraph/errors"
	"github.com/chatgraph-go/chatgraph/types"
)

// ReducerChannel stores a value merged through a reducer function. Unlike
// LastValue it accepts repeated writes; each one is folded into the current
// value with the reducer.
type ReducerChannel struct {
	BaseChannel
	value   interface{}
	reducer types.ReducerFunc
}

// NewReducerChannel creates a new ReducerChannel.
func NewReducerChannel(reducer types.ReducerFunc) *ReducerChannel {
	return &ReducerChannel{
		value:   Missing,
		reducer: reducer,
	}
}

// Get returns the current value of the channel.
func (c *ReducerChannel) Get() (interface{}, error) {
	if IsMissing(c.value) {
		return nil, &errors.EmptyChannelError{}
	}
	return c.value, nil
}

// IsAvailable returns true if the channel has a value.
func (c *ReducerChannel) IsAvailable() bool {
	return !IsMissing(c.value)
}

// Update folds each value into the current one with the reducer.
func (c *ReducerChannel) Update(values []interface{}) (bool, error) {
	if len(values) == 0 {
		return false, nil
	}
	for _, v := range values {
		existing := c.value
		if IsMissing(existing) {
			existing = nil
		}
		merged, err := c.reducer(existing, v)
		if err != nil {
			return false, err
		}
		c.value = merged
	}
	return true, nil
}

// Copy returns a copy of the channel.
func (c *ReducerChannel) Copy() Channel {
	newCh := NewReducerChannel(c.reducer)
	newCh.Key = c.Key
	newCh.value = c.value
	return newCh
}

// Checkpoint returns the current value.
func (c *ReducerChannel) Checkpoint() interface{} {
	return c.value
}

// FromCheckpoint restores the channel from a checkpoint.
func (c *ReducerChannel) FromCheckpoint(checkpoint interface{}) Channel {
	newCh := NewReducerChannel(c.reducer)
	newCh.Key = c.Key
	if !IsMissing(checkpoint) {
		newCh.value = checkpoint
	}
	return newCh
}
