// Package constants provides shared constants for chatgraph.
package constants

// Virtual graph nodes.
const (
	// Start is the virtual node every run begins at.
	Start = "__start__"
	// End is the virtual terminal node. Routing to End halts the run.
	End = "__end__"
)

// Reserved config.Configurable keys.
const (
	// ConfigKeyThreadID holds the thread identity for the current invocation.
	ConfigKeyThreadID = "thread_id"
	// ConfigKeyUserID holds the user identity for the current invocation.
	ConfigKeyUserID = "user_id"
	// ConfigKeyResuming indicates the run was reconstructed from a checkpoint.
	ConfigKeyResuming = "__resuming__"
)

// Reserved state keys.
const (
	// Messages is the conversation log channel.
	Messages = "messages"
)

// Reserved contains all reserved keys.
var Reserved = map[string]bool{
	Start:             true,
	End:               true,
	ConfigKeyThreadID: true,
	ConfigKeyUserID:   true,
	ConfigKeyResuming: true,
}

// IsReserved checks if a key is reserved.
func IsReserved(key string) bool {
	return Reserved[key]
}
