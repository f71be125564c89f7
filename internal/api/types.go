// Package api implements the HTTP boundary to the remote document
// assistant backend: the authenticated transport, the typed endpoint
// wrappers, and the error taxonomy shared by the rest of the client.
package api

// Identity is the user record resolved from the current credential.
// It is always fetched from the backend, never constructed locally.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
}

// Conversation is a list entry as returned by the backend. Ordering of
// the list is server-defined (most recent first) and preserved as-is.
type Conversation struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
}

// Message is one request/response pair of a conversation log. The
// optimistic entry appended before the round trip has an empty
// Assistant and no MessageID; committed entries carry both.
type Message struct {
	User       string   `json:"user"`
	Assistant  string   `json:"assistant"`
	MessageID  string   `json:"message_id,omitempty"`
	References []string `json:"references,omitempty"`
}

// Pending reports whether the message is an optimistic entry still
// awaiting its assistant half.
func (m Message) Pending() bool {
	return m.Assistant == "" && m.MessageID == ""
}

// Feedback rating values accepted by the backend.
const (
	FeedbackThumbsUp   = "thumbs_up"
	FeedbackThumbsDown = "thumbs_down"
)

// Feedback is the rating record attached to a single message. At most
// one record exists per message; submissions overwrite.
type Feedback struct {
	FeedbackType     string `json:"feedback_type"`
	DetailedFeedback string `json:"detailed_feedback,omitempty"`
	CreatedAt        string `json:"created_at,omitempty"`
}

// Document is an uploaded file scoped to one conversation.
type Document struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ChatResult is the payload of a successful message exchange. History
// is the full authoritative log for the conversation, which replaces
// any local log wholesale.
type ChatResult struct {
	History        []Message
	ConversationID string
	MessageID      string
}

// UploadResult is the payload of a successful document upload. The
// backend mints a conversation id when the upload starts a new
// conversation.
type UploadResult struct {
	DocumentID     string
	ConversationID string
}
