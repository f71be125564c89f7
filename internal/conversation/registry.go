package conversation

import (
	"context"
	"io"
	"strings"
	"sync"

	"docterm/internal/api"
	"docterm/internal/logging"

	"golang.org/x/sync/errgroup"
)

// Registry owns the conversation list and the active conversation
// identifier, and coordinates the engine, feedback map and document
// set that hold the active conversation's working state.
//
// Every asynchronous load and send captures the registry epoch at
// dispatch. The epoch advances on SwitchTo and StartNew; results
// arriving with a stale epoch are discarded instead of being applied
// to whatever conversation is active by then.
type Registry struct {
	mu            sync.Mutex
	client        *api.Client
	epoch         uint64
	activeID      string // "" means new, unsaved conversation
	conversations []api.Conversation

	engine    *Engine
	feedback  *FeedbackMap
	documents *DocumentSet
	log       *logging.Logger
}

// NewRegistry builds the controller around a client.
func NewRegistry(client *api.Client) *Registry {
	r := &Registry{
		client:   client,
		engine:   &Engine{},
		feedback: NewFeedbackMap(client),
		log:      logging.Get(logging.CategoryConversation),
	}
	r.documents = NewDocumentSet(client, r.Adopt)
	return r
}

// Engine exposes the message exchange engine (read-mostly for the UI).
func (r *Registry) Engine() *Engine { return r.engine }

// Feedback exposes the feedback map.
func (r *Registry) Feedback() *FeedbackMap { return r.feedback }

// Documents exposes the document set.
func (r *Registry) Documents() *DocumentSet { return r.documents }

// ActiveID returns the active conversation id, "" for a new unsaved
// conversation.
func (r *Registry) ActiveID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeID
}

// List returns the known conversations in the server's order.
func (r *Registry) List() []api.Conversation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]api.Conversation, len(r.conversations))
	copy(out, r.conversations)
	return out
}

// Refresh re-fetches the conversation list. Called after any mutation
// that can change a title or create a conversation.
func (r *Registry) Refresh(ctx context.Context) error {
	convs, err := r.client.ListConversations(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.conversations = convs
	r.mu.Unlock()
	return nil
}

// Adopt installs a backend-minted conversation id as the active one
// without reloading state the client already holds. No-op when the id
// is blank or already active.
func (r *Registry) Adopt(conversationID string) {
	if conversationID == "" {
		return
	}
	r.mu.Lock()
	if r.activeID != conversationID {
		r.activeID = conversationID
		r.log.Info("adopted conversation %s", conversationID)
	}
	r.mu.Unlock()
}

// SwitchTo loads history, documents and feedback for the given
// conversation and replaces the active working state. History and
// documents load concurrently; feedback is sequenced after history
// because it needs the message ids discovered there. A failed sub-load
// resolves to empty rather than blocking the others. The replacement
// is all-or-nothing with respect to staleness: if the active state
// moved on while the loads were in flight, nothing is applied.
func (r *Registry) SwitchTo(ctx context.Context, conversationID string) error {
	epoch := r.nextEpoch()

	var history []api.Message
	var docs []api.Document
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h, err := r.client.GetConversation(gctx, conversationID)
		if err != nil {
			r.log.Warn("history load failed for %s: %v", conversationID, err)
			return nil
		}
		history = h
		return nil
	})
	g.Go(func() error {
		d, err := r.client.ListDocuments(gctx, conversationID)
		if err != nil {
			r.log.Warn("document load failed for %s: %v", conversationID, err)
			return nil
		}
		docs = d
		return nil
	})
	_ = g.Wait()

	ids := make([]string, 0, len(history))
	for _, m := range history {
		if m.MessageID != "" {
			ids = append(ids, m.MessageID)
		}
	}
	ratings := r.feedback.fetch(ctx, ids)

	r.mu.Lock()
	if r.epoch != epoch {
		r.mu.Unlock()
		r.log.Info("discarding stale switch to %s", conversationID)
		return nil
	}
	r.activeID = conversationID
	r.engine.replace(history)
	r.feedback.replaceAll(ratings)
	r.documents.replaceAll(docs)
	r.mu.Unlock()

	// Titles may have changed server-side since the last listing.
	if err := r.Refresh(ctx); err != nil {
		r.log.Warn("list refresh after switch failed: %v", err)
	}
	return nil
}

// StartNew clears the active conversation state without contacting the
// backend; the server creates a conversation on the first send.
func (r *Registry) StartNew() {
	r.mu.Lock()
	r.epoch++
	r.activeID = ""
	r.mu.Unlock()
	r.engine.clear()
	r.feedback.clear()
	r.documents.clear()
	r.log.Info("started new conversation")
}

// Delete removes a conversation. Deleting the active one also resets
// the local state to a new conversation. The list is refreshed either
// way.
func (r *Registry) Delete(ctx context.Context, conversationID string) error {
	err := r.client.DeleteConversation(ctx, conversationID)
	if err == nil && conversationID == r.ActiveID() {
		r.StartNew()
	}
	if refreshErr := r.Refresh(ctx); refreshErr != nil {
		r.log.Warn("list refresh after delete failed: %v", refreshErr)
	}
	return err
}

// ClearHistory wipes the active conversation's message log server-side
// and locally. The conversation itself, and its documents, survive.
func (r *Registry) ClearHistory(ctx context.Context) error {
	id := r.ActiveID()
	if id == "" {
		return nil
	}
	if err := r.client.ClearHistory(ctx, id); err != nil {
		return err
	}
	r.engine.clear()
	r.feedback.clear()
	if err := r.Refresh(ctx); err != nil {
		r.log.Warn("list refresh after clear failed: %v", err)
	}
	return nil
}

// Resume is the explicit on-identity-resolved transition: it asks the
// backend which conversation to resume and switches to it.
func (r *Registry) Resume(ctx context.Context) error {
	id, err := r.client.GetCurrentConversation(ctx)
	if err != nil {
		return err
	}
	if id == "" {
		r.StartNew()
		return nil
	}
	return r.SwitchTo(ctx, id)
}

// Send performs one optimistic message exchange against the active
// conversation. Empty text is rejected locally; a send while another
// is pending returns ErrExchangeInFlight. On success the log is
// replaced by the server's authoritative copy, a minted conversation
// id is adopted, feedback for the new message is fetched, and the
// conversation list is refreshed. On failure the optimistic entry is
// rolled back. Either way the log ends in a terminal shape.
func (r *Registry) Send(ctx context.Context, text string, searchOnline bool) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return &api.ValidationError{Detail: "message text is empty"}
	}
	if !r.engine.begin() {
		return ErrExchangeInFlight
	}

	r.mu.Lock()
	epoch := r.epoch
	convID := r.activeID
	r.mu.Unlock()

	r.engine.appendOptimistic(text)
	res, err := r.client.SendMessage(ctx, text, searchOnline, convID)

	r.mu.Lock()
	if r.epoch != epoch {
		// The user switched away mid-flight; the optimistic entry is
		// already gone with the old log, and the response belongs to a
		// conversation that is no longer on screen.
		r.mu.Unlock()
		r.engine.end()
		r.log.Info("discarding stale send result for %s", convID)
		return nil
	}
	if err != nil {
		r.mu.Unlock()
		r.engine.rollback()
		r.engine.end()
		return err
	}
	r.engine.replace(res.History)
	if res.ConversationID != "" && r.activeID != res.ConversationID {
		r.activeID = res.ConversationID
	}
	r.mu.Unlock()
	r.engine.end()

	if res.MessageID != "" {
		r.feedback.LoadForMessages(ctx, []string{res.MessageID})
	}
	if err := r.Refresh(ctx); err != nil {
		r.log.Warn("list refresh after send failed: %v", err)
	}
	return nil
}

// Upload attaches a file to the active conversation through the
// document set, passing the active id so the backend scopes it
// correctly.
func (r *Registry) Upload(ctx context.Context, name, mediaType string, content io.Reader) (api.Document, error) {
	return r.documents.Upload(ctx, name, mediaType, content, r.ActiveID())
}

func (r *Registry) nextEpoch() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.epoch++
	return r.epoch
}
