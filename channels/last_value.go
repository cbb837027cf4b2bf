package channels

import (
	"fmt"

	"github.com/chatgraph-go/chatgraph/errors"
)

// LastValue stores the last value received: replace semantics, last write
// wins, at most one value per step.
type LastValue struct {
	BaseChannel
	value interface{}
}

// NewLastValue creates a new LastValue channel.
func NewLastValue() *LastValue {
	return &LastValue{
		value: Missing,
	}
}

// Get returns the current value of the channel.
func (c *LastValue) Get() (interface{}, error) {
	if IsMissing(c.value) {
		return nil, &errors.EmptyChannelError{}
	}
	return c.value, nil
}

// IsAvailable returns true if the channel has a value.
func (c *LastValue) IsAvailable() bool {
	return !IsMissing(c.value)
}

// Update updates the channel with a single value.
func (c *LastValue) Update(values []interface{}) (bool, error) {
	if len(values) == 0 {
		return false, nil
	}
	if len(values) != 1 {
		return false, &errors.InvalidUpdateError{
			Message: fmt.Sprintf("at key %q: can receive only one value per step; use an append channel or a reducer to handle multiple values", c.Key),
		}
	}
	c.value = values[0]
	return true, nil
}

// Copy returns a copy of the channel.
func (c *LastValue) Copy() Channel {
	newCh := NewLastValue()
	newCh.Key = c.Key
	newCh.value = c.value
	return newCh
}

// Checkpoint returns the current value.
func (c *LastValue) Checkpoint() interface{} {
	return c.value
}

// FromCheckpoint restores the channel from a checkpoint.
func (c *LastValue) FromCheckpoint(checkpoint interface{}) Channel {
	newCh := NewLastValue()
	newCh.Key = c.Key
	if !IsMissing(checkpoint) {
		newCh.value = checkpoint
	}
	return newCh
}
