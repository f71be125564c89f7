package api

import (
	"context"
	"io"
	"net/http"

	"docterm/internal/logging"
)

// Client exposes one typed method per backend endpoint. All requests
// are form-encoded or multipart POSTs and plain GETs, mirroring the
// backend's API surface. Methods return errors from the taxonomy in
// errors.go; callers classify with errors.As.
type Client struct {
	t   *Transport
	log *logging.Logger
}

// NewClient wraps a transport.
func NewClient(t *Transport) *Client {
	return &Client{t: t, log: logging.Get(logging.CategoryAPI)}
}

// Transport returns the underlying transport, used by the session
// manager to own the credential slot and the rejection hook.
func (c *Client) Transport() *Transport { return c.t }

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	resp, err := c.t.request(ctx).
		SetFormData(map[string]string{"username": username, "password": password}).
		SetResult(&out).
		Post("/auth/login")
	if err != nil || resp.IsError() {
		if err == nil && resp.StatusCode() == http.StatusUnauthorized {
			return "", &AuthError{Op: "login", Detail: "invalid credentials"}
		}
		return "", classify("login", resp, err)
	}
	c.log.Info("login succeeded for %s", username)
	return out.Token, nil
}

// Register creates an account. It does not log the user in.
func (c *Client) Register(ctx context.Context, username, password string) error {
	resp, err := c.t.request(ctx).
		SetFormData(map[string]string{"username": username, "password": password}).
		Post("/auth/register")
	if err != nil || resp.IsError() {
		if err == nil && resp.StatusCode() == http.StatusBadRequest {
			return &AuthError{Op: "register", Detail: "username already exists"}
		}
		return classify("register", resp, err)
	}
	return nil
}

// Logout invalidates the server-side session. Best effort: callers
// ignore the error and clear local state regardless.
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.t.request(ctx).Post("/auth/logout")
	if err != nil || resp.IsError() {
		return classify("logout", resp, err)
	}
	return nil
}

// GetIdentity resolves the user behind the current credential.
func (c *Client) GetIdentity(ctx context.Context) (*Identity, error) {
	var out Identity
	resp, err := c.t.request(ctx).SetResult(&out).Get("/me")
	if err != nil || resp.IsError() {
		return nil, classify("identity", resp, err)
	}
	return &out, nil
}

// ListConversations returns the user's conversations in the server's
// recency order.
func (c *Client) ListConversations(ctx context.Context) ([]Conversation, error) {
	var out struct {
		Conversations []Conversation `json:"conversations"`
	}
	resp, err := c.t.request(ctx).SetResult(&out).Get("/conversations")
	if err != nil || resp.IsError() {
		return nil, classify("list conversations", resp, err)
	}
	return out.Conversations, nil
}

// GetConversation fetches the full message log of one conversation.
func (c *Client) GetConversation(ctx context.Context, id string) ([]Message, error) {
	var out struct {
		ConversationID string    `json:"conversation_id"`
		ChatHistory    []Message `json:"chat_history"`
	}
	resp, err := c.t.request(ctx).SetResult(&out).Get("/conversations/" + id)
	if err != nil || resp.IsError() {
		return nil, classify("get conversation", resp, err)
	}
	return out.ChatHistory, nil
}

// GetCurrentConversation resolves the conversation to resume on
// launch. The backend mints one when the user has none.
func (c *Client) GetCurrentConversation(ctx context.Context) (string, error) {
	var out struct {
		ConversationID string `json:"conversation_id"`
	}
	resp, err := c.t.request(ctx).SetResult(&out).Get("/conversations/current")
	if err != nil || resp.IsError() {
		return "", classify("current conversation", resp, err)
	}
	return out.ConversationID, nil
}

// DeleteConversation removes a conversation and its messages.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	resp, err := c.t.request(ctx).Delete("/conversations/" + id)
	if err != nil || resp.IsError() {
		if err == nil && resp.StatusCode() == http.StatusNotFound {
			return &NotFoundError{Op: "delete conversation", ID: id}
		}
		return classify("delete conversation", resp, err)
	}
	return nil
}

// ClearHistory wipes the message log of a conversation, keeping the
// conversation itself.
func (c *Client) ClearHistory(ctx context.Context, conversationID string) error {
	resp, err := c.t.request(ctx).
		SetFormData(map[string]string{"conversation_id": conversationID}).
		Post("/clear_history")
	if err != nil || resp.IsError() {
		return classify("clear history", resp, err)
	}
	return nil
}

// ListDocuments enumerates documents scoped to a conversation.
func (c *Client) ListDocuments(ctx context.Context, conversationID string) ([]Document, error) {
	var out struct {
		Documents []Document `json:"documents"`
	}
	resp, err := c.t.request(ctx).
		SetQueryParam("conversation_id", conversationID).
		SetResult(&out).
		Get("/documents")
	if err != nil || resp.IsError() {
		return nil, classify("list documents", resp, err)
	}
	return out.Documents, nil
}

// UploadDocument attaches a file to a conversation. A blank
// conversationID lets the backend mint a new conversation, reported
// back in the result.
func (c *Client) UploadDocument(ctx context.Context, filename string, content io.Reader, conversationID string) (*UploadResult, error) {
	var out struct {
		DocumentID     string `json:"document_id"`
		ConversationID string `json:"conversation_id"`
	}
	req := c.t.request(ctx).
		SetFileReader("file", filename, content).
		SetResult(&out)
	if conversationID != "" {
		req.SetFormData(map[string]string{"conversation_id": conversationID})
	}
	resp, err := req.Post("/upload_document")
	if err != nil || resp.IsError() {
		return nil, classify("upload document", resp, err)
	}
	c.log.Info("uploaded %s as %s", filename, out.DocumentID)
	return &UploadResult{DocumentID: out.DocumentID, ConversationID: out.ConversationID}, nil
}

// RemoveDocument detaches a document by id.
func (c *Client) RemoveDocument(ctx context.Context, documentID string) error {
	resp, err := c.t.request(ctx).
		SetFormData(map[string]string{"document_id": documentID}).
		Post("/remove_document")
	if err != nil || resp.IsError() {
		if err == nil && resp.StatusCode() == http.StatusNotFound {
			return &NotFoundError{Op: "remove document", ID: documentID}
		}
		return classify("remove document", resp, err)
	}
	return nil
}

// SendMessage performs one chat exchange. The returned history is the
// authoritative log for the conversation; a blank conversationID asks
// the backend to mint one, reported back in the result.
func (c *Client) SendMessage(ctx context.Context, text string, searchOnline bool, conversationID string) (*ChatResult, error) {
	var out struct {
		ChatHistory    []Message `json:"chat_history"`
		ConversationID string    `json:"conversation_id"`
		MessageID      string    `json:"message_id"`
	}
	form := map[string]string{
		"query":         text,
		"search_online": "false",
	}
	if searchOnline {
		form["search_online"] = "true"
	}
	if conversationID != "" {
		form["conversation_id"] = conversationID
	}
	resp, err := c.t.request(ctx).
		SetFormData(form).
		SetResult(&out).
		Post("/chat/text")
	if err != nil || resp.IsError() {
		return nil, classify("send message", resp, err)
	}
	return &ChatResult{
		History:        out.ChatHistory,
		ConversationID: out.ConversationID,
		MessageID:      out.MessageID,
	}, nil
}

// GetFeedback reads the rating for a message. A nil record with a nil
// error means no feedback exists; absence is not an error.
func (c *Client) GetFeedback(ctx context.Context, messageID string) (*Feedback, error) {
	var out struct {
		Feedback *Feedback `json:"feedback"`
	}
	resp, err := c.t.request(ctx).SetResult(&out).Get("/feedback/" + messageID)
	if err != nil || resp.IsError() {
		return nil, classify("get feedback", resp, err)
	}
	return out.Feedback, nil
}

// SubmitFeedback upserts the rating for a message. Later submissions
// overwrite earlier ones server-side.
func (c *Client) SubmitFeedback(ctx context.Context, messageID, feedbackType, detail string) error {
	form := map[string]string{
		"message_id":    messageID,
		"feedback_type": feedbackType,
	}
	if detail != "" {
		form["detailed_feedback"] = detail
	}
	resp, err := c.t.request(ctx).SetFormData(form).Post("/feedback")
	if err != nil || resp.IsError() {
		return classify("submit feedback", resp, err)
	}
	return nil
}
