package agent

import (
	"strings"
	"time"

	"github.com/chatgraph-go/chatgraph/constants"
	"github.com/chatgraph-go/chatgraph/types"
)

// State keys the pipeline reads and writes. Every key is declared on the
// graph schema; a node writing anything else fails the run.
const (
	KeyThreadID      = "thread_id"
	KeyUserID        = "user_id"
	KeyQuery         = "query"
	KeyFile          = "file"
	KeyFileExtension = "file_extension"
	KeyIsVoiceMsg    = "is_voice_msg"
	KeyTranscription = "voice_msg_transcription"
	KeyLanguage      = "language"
	KeyShouldContinue = "should_continue"
	KeyResponse      = "response"
	KeyResponseStatus = "response_status"
	KeyDocText           = "doc_text"
	KeyExtractionMethod  = "extraction_method"
	KeyExtractionStatus  = "extraction_status"
	KeyRetrievedDocs = "retrieved_docs"
	KeyUserData      = "user_data"
	KeyMessages      = constants.Messages
)

// Status values for the extraction and response outcome fields.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// threadDateLayout is the calendar-day component of a thread identity.
const threadDateLayout = "2006-01-02"

// ThreadID composes the stable conversation key for a user on a calendar
// day. Repeated messages from the same user on the same day resume the same
// run instead of starting a new one.
func ThreadID(userID string, day time.Time) string {
	return userID + "_" + day.Format(threadDateLayout)
}

// UserFromThreadID recovers the user identity from a thread key.
func UserFromThreadID(threadID string) string {
	if i := strings.Index(threadID, "_"); i >= 0 {
		return threadID[:i]
	}
	return threadID
}

// DateSuffix formats a day the way thread identities embed it, for
// enumerating a day's threads from the checkpoint store.
func DateSuffix(day time.Time) string {
	return "_" + day.Format(threadDateLayout)
}

// userID reads the user identity from state, falling back to the thread key.
func userID(state types.State) string {
	if uid, ok := state[KeyUserID].(string); ok && uid != "" {
		return uid
	}
	if tid, ok := state[KeyThreadID].(string); ok && tid != "" {
		return UserFromThreadID(tid)
	}
	return ""
}

func stringField(state types.State, key string) string {
	s, _ := state[key].(string)
	return s
}
