// Package errors provides error types for chatgraph.
package errors

import (
	"fmt"
)

// ConfigurationError is raised for a bad graph definition: missing node,
// unmapped router label, no entry point. It is detected at build time and
// never surfaced to an end user.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("graph configuration error: %s", e.Message)
}

// IsConfigurationError checks if an error is a ConfigurationError.
func IsConfigurationError(err error) bool {
	_, ok := err.(*ConfigurationError)
	return ok
}

// NodeExecutionError is raised when a node's collaborator call fails and the
// node chooses to propagate rather than degrade state. The checkpoint cursor
// stays at the failed node so a resume retries it.
type NodeExecutionError struct {
	NodeName string
	Cause    error
}

func (e *NodeExecutionError) Error() string {
	return fmt.Sprintf("node %s execution failed: %v", e.NodeName, e.Cause)
}

func (e *NodeExecutionError) Unwrap() error {
	return e.Cause
}

// IsNodeExecutionError checks if an error is a NodeExecutionError.
func IsNodeExecutionError(err error) bool {
	_, ok := err.(*NodeExecutionError)
	return ok
}

// RoutingError is raised when a router returns a label with no mapping at
// run time. It is fatal for the run and never silently defaulted.
type RoutingError struct {
	NodeName string
	Label    string
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("no mapping for router label %q from node %s", e.Label, e.NodeName)
}

// IsRoutingError checks if an error is a RoutingError.
func IsRoutingError(err error) bool {
	_, ok := err.(*RoutingError)
	return ok
}

// PersistenceError is raised when the checkpoint store is unavailable after
// retries exhaust. The caller should retry the whole run later.
type PersistenceError struct {
	Op       string
	ThreadID string
	Cause    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("checkpoint %s failed for thread %s: %v", e.Op, e.ThreadID, e.Cause)
}

func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

// IsPersistenceError checks if an error is a PersistenceError.
func IsPersistenceError(err error) bool {
	_, ok := err.(*PersistenceError)
	return ok
}

// EmptyChannelError is raised when a channel is empty (never updated yet).
type EmptyChannelError struct {
	Message string
}

func (e *EmptyChannelError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "channel is empty"
}

// IsEmptyChannelError checks if an error is an EmptyChannelError.
func IsEmptyChannelError(err error) bool {
	_, ok := err.(*EmptyChannelError)
	return ok
}

// InvalidUpdateError is raised when attempting to update a channel with an
// invalid set of updates.
type InvalidUpdateError struct {
	Message string
}

func (e *InvalidUpdateError) Error() string {
	return fmt.Sprintf("invalid update: %s", e.Message)
}

// IsInvalidUpdateError checks if an error is an InvalidUpdateError.
func IsInvalidUpdateError(err error) bool {
	_, ok := err.(*InvalidUpdateError)
	return ok
}

// GraphRecursionError is raised when the run has exhausted the maximum number of steps.
type GraphRecursionError struct {
	Limit int
}

func (e *GraphRecursionError) Error() string {
	return fmt.Sprintf(
		"graph recursion limit of %d reached; run the graph with a config specifying a higher recursion limit",
		e.Limit,
	)
}

// IsGraphRecursionError checks if an error is a GraphRecursionError.
func IsGraphRecursionError(err error) bool {
	_, ok := err.(*GraphRecursionError)
	return ok
}

// NodeNotFoundError is raised when a node is not found.
type NodeNotFoundError struct {
	NodeName string
}

func (e *NodeNotFoundError) Error() string {
	return fmt.Sprintf("node not found: %s", e.NodeName)
}

// IsNodeNotFoundError checks if an error is a NodeNotFoundError.
func IsNodeNotFoundError(err error) bool {
	_, ok := err.(*NodeNotFoundError)
	return ok
}

// ChannelNotFoundError is raised when a write targets a key that is not
// declared in the state schema.
type ChannelNotFoundError struct {
	ChannelName string
}

func (e *ChannelNotFoundError) Error() string {
	return fmt.Sprintf("channel not found: %s", e.ChannelName)
}

// IsChannelNotFoundError checks if an error is a ChannelNotFoundError.
func IsChannelNotFoundError(err error) bool {
	_, ok := err.(*ChannelNotFoundError)
	return ok
}
