package channels

import (
	"github.com/chatgraph-go/chatgraph/errors"
)

// Topic accumulates values in arrival order: append semantics. New values
// are concatenated onto the existing sequence, initializing an empty
// sequence if absent.
type Topic struct {
	BaseChannel
	values []interface{}
}

// NewTopic creates a new Topic channel.
func NewTopic() *Topic {
	return &Topic{
		values: make([]interface{}, 0),
	}
}

// Get returns the current values of the channel.
func (c *Topic) Get() (interface{}, error) {
	if len(c.values) == 0 {
		return nil, &errors.EmptyChannelError{}
	}
	result := make([]interface{}, len(c.values))
	copy(result, c.values)
	return result, nil
}

// IsAvailable returns true if the channel has values.
func (c *Topic) IsAvailable() bool {
	return len(c.values) > 0
}

// flatten flattens a sequence of values that may contain lists.
func flatten(values []interface{}) []interface{} {
	result := make([]interface{}, 0, len(values))
	for _, v := range values {
		if list, ok := v.([]interface{}); ok {
			result = append(result, list...)
		} else {
			result = append(result, v)
		}
	}
	return result
}

// Update appends values to the channel, order preserved.
func (c *Topic) Update(values []interface{}) (bool, error) {
	flatValues := flatten(values)
	if len(flatValues) == 0 {
		return false, nil
	}
	c.values = append(c.values, flatValues...)
	return true, nil
}

// Copy returns a copy of the channel.
func (c *Topic) Copy() Channel {
	newCh := NewTopic()
	newCh.Key = c.Key
	newCh.values = make([]interface{}, len(c.values))
	copy(newCh.values, c.values)
	return newCh
}

// Checkpoint returns the current values.
func (c *Topic) Checkpoint() interface{} {
	result := make([]interface{}, len(c.values))
	copy(result, c.values)
	return result
}

// FromCheckpoint restores the channel from a checkpoint.
func (c *Topic) FromCheckpoint(checkpoint interface{}) Channel {
	newCh := NewTopic()
	newCh.Key = c.Key
	if !IsMissing(checkpoint) {
		if v, ok := checkpoint.([]interface{}); ok {
			newCh.values = make([]interface{}, len(v))
			copy(newCh.values, v)
		}
	}
	return newCh
}
