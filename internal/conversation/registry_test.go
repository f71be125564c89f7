package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"docterm/internal/api"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend scripts the subset of the HTTP API the registry talks
// to, with per-endpoint request counting so tests can assert that a
// locally rejected operation produced no traffic.
type fakeBackend struct {
	t   *testing.T
	srv *httptest.Server

	mu            sync.Mutex
	counts        map[string]int
	conversations []api.Conversation
	histories     map[string][]api.Message
	documents     map[string][]api.Document
	feedback      map[string]api.Feedback
	currentID     string
	mintID        string
	sendFail      bool

	// When set, the matching handler signals entry on entered and then
	// blocks until hold is closed.
	holdHistory bool
	holdSend    bool
	entered     chan struct{}
	hold        chan struct{}
}

func newFakeBackend(t *testing.T) *fakeBackend {
	b := &fakeBackend{
		t:         t,
		counts:    make(map[string]int),
		histories: make(map[string][]api.Message),
		documents: make(map[string][]api.Document),
		feedback:  make(map[string]api.Feedback),
		mintID:    "conv-new",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /conversations", b.listConversations)
	mux.HandleFunc("GET /conversations/current", b.current)
	mux.HandleFunc("GET /conversations/{id}", b.getConversation)
	mux.HandleFunc("DELETE /conversations/{id}", b.deleteConversation)
	mux.HandleFunc("GET /documents", b.listDocuments)
	mux.HandleFunc("POST /chat/text", b.chat)
	mux.HandleFunc("GET /feedback/{id}", b.getFeedback)
	mux.HandleFunc("POST /feedback", b.postFeedback)
	mux.HandleFunc("POST /clear_history", b.clearHistory)
	mux.HandleFunc("POST /upload_document", b.upload)
	mux.HandleFunc("POST /remove_document", b.removeDocument)

	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.counts[r.Method+" "+r.URL.Path]++
		b.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *fakeBackend) registry() *Registry {
	return NewRegistry(api.NewClient(api.NewTransport(b.srv.URL)))
}

func (b *fakeBackend) count(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts[key]
}

// seed installs a conversation with the given history and documents.
func (b *fakeBackend) seed(id, title string, history []api.Message, docs []api.Document) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations = append(b.conversations, api.Conversation{ID: id, Title: title})
	b.histories[id] = history
	b.documents[id] = docs
}

func (b *fakeBackend) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		b.t.Errorf("encode response: %v", err)
	}
}

func (b *fakeBackend) listConversations(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	convs := append([]api.Conversation(nil), b.conversations...)
	b.mu.Unlock()
	b.writeJSON(w, map[string]any{"conversations": convs})
}

func (b *fakeBackend) current(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	id := b.currentID
	b.mu.Unlock()
	b.writeJSON(w, map[string]any{"conversation_id": id})
}

func (b *fakeBackend) getConversation(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	blocked := b.holdHistory
	entered, hold := b.entered, b.hold
	history := append([]api.Message(nil), b.histories[r.PathValue("id")]...)
	b.mu.Unlock()
	if blocked {
		entered <- struct{}{}
		<-hold
	}
	b.writeJSON(w, map[string]any{
		"conversation_id": r.PathValue("id"),
		"chat_history":    history,
	})
}

func (b *fakeBackend) deleteConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	b.mu.Lock()
	kept := b.conversations[:0]
	for _, c := range b.conversations {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	b.conversations = kept
	delete(b.histories, id)
	b.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (b *fakeBackend) listDocuments(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	docs := append([]api.Document(nil), b.documents[r.URL.Query().Get("conversation_id")]...)
	b.mu.Unlock()
	b.writeJSON(w, map[string]any{"documents": docs})
}

func (b *fakeBackend) chat(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	blocked := b.holdSend
	entered, hold := b.entered, b.hold
	fail := b.sendFail
	b.mu.Unlock()
	if blocked {
		entered <- struct{}{}
		<-hold
	}
	if fail {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	require.NoError(b.t, r.ParseForm())
	query := r.PostFormValue("query")
	convID := r.PostFormValue("conversation_id")

	b.mu.Lock()
	if convID == "" {
		convID = b.mintID
		b.conversations = append([]api.Conversation{{ID: convID, Title: query}}, b.conversations...)
	}
	msgID := fmt.Sprintf("%s-m%d", convID, len(b.histories[convID])+1)
	b.histories[convID] = append(b.histories[convID], api.Message{
		User:      query,
		Assistant: "echo: " + query,
		MessageID: msgID,
	})
	history := append([]api.Message(nil), b.histories[convID]...)
	b.mu.Unlock()

	b.writeJSON(w, map[string]any{
		"chat_history":    history,
		"conversation_id": convID,
		"message_id":      msgID,
	})
}

func (b *fakeBackend) getFeedback(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	fb, ok := b.feedback[r.PathValue("id")]
	b.mu.Unlock()
	if !ok {
		b.writeJSON(w, map[string]any{"feedback": nil})
		return
	}
	b.writeJSON(w, map[string]any{"feedback": fb})
}

func (b *fakeBackend) postFeedback(w http.ResponseWriter, r *http.Request) {
	require.NoError(b.t, r.ParseForm())
	b.mu.Lock()
	b.feedback[r.PostFormValue("message_id")] = api.Feedback{
		FeedbackType:     r.PostFormValue("feedback_type"),
		DetailedFeedback: r.PostFormValue("detailed_feedback"),
	}
	b.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (b *fakeBackend) clearHistory(w http.ResponseWriter, r *http.Request) {
	require.NoError(b.t, r.ParseForm())
	b.mu.Lock()
	b.histories[r.PostFormValue("conversation_id")] = nil
	b.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (b *fakeBackend) upload(w http.ResponseWriter, r *http.Request) {
	require.NoError(b.t, r.ParseMultipartForm(1<<20))
	convID := r.FormValue("conversation_id")
	b.mu.Lock()
	if convID == "" {
		convID = b.mintID
		b.conversations = append([]api.Conversation{{ID: convID}}, b.conversations...)
	}
	docID := fmt.Sprintf("%s-d%d", convID, len(b.documents[convID])+1)
	_, hdr, err := r.FormFile("file")
	require.NoError(b.t, err)
	b.documents[convID] = append(b.documents[convID], api.Document{ID: docID, Name: hdr.Filename})
	b.mu.Unlock()
	b.writeJSON(w, map[string]any{"document_id": docID, "conversation_id": convID})
}

func (b *fakeBackend) removeDocument(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestSendCommitsAuthoritativeLog(t *testing.T) {
	b := newFakeBackend(t)
	reg := b.registry()

	require.NoError(t, reg.Send(context.Background(), "hello", false))

	msgs := reg.Engine().Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].User)
	assert.Equal(t, "echo: hello", msgs[0].Assistant)
	assert.Equal(t, "conv-new-m1", msgs[0].MessageID)
	assert.False(t, msgs[0].Pending())

	assert.Equal(t, "conv-new", reg.ActiveID(), "minted id must be adopted")

	convs := reg.List()
	require.Len(t, convs, 1, "adoption must not duplicate the list entry")
	assert.Equal(t, "conv-new", convs[0].ID)

	assert.Equal(t, 1, b.count("GET /feedback/conv-new-m1"), "feedback fetched for the committed message")
	assert.False(t, reg.Engine().Busy())
}

func TestSendFailureRestoresPriorLog(t *testing.T) {
	b := newFakeBackend(t)
	prior := []api.Message{
		{User: "q1", Assistant: "a1", MessageID: "conv-a-m1"},
		{User: "q2", Assistant: "a2", MessageID: "conv-a-m2"},
	}
	b.seed("conv-a", "first", prior, nil)

	reg := b.registry()
	require.NoError(t, reg.SwitchTo(context.Background(), "conv-a"))

	b.mu.Lock()
	b.sendFail = true
	b.mu.Unlock()

	err := reg.Send(context.Background(), "q3", false)
	var te *api.TransportError
	require.ErrorAs(t, err, &te)

	if diff := cmp.Diff(prior, reg.Engine().Messages()); diff != "" {
		t.Fatalf("log not restored after failed send (-want +got):\n%s", diff)
	}
	assert.Equal(t, "conv-a", reg.ActiveID())
	assert.False(t, reg.Engine().Busy())
}

func TestSendEmptyTextRejectedLocally(t *testing.T) {
	b := newFakeBackend(t)
	reg := b.registry()

	err := reg.Send(context.Background(), "   ", false)
	var ve *api.ValidationError
	require.ErrorAs(t, err, &ve)

	assert.Zero(t, b.count("POST /chat/text"))
	assert.Empty(t, reg.Engine().Messages())
}

func TestSecondSendRejectedWhileInFlight(t *testing.T) {
	b := newFakeBackend(t)
	b.mu.Lock()
	b.holdSend = true
	b.entered = make(chan struct{})
	b.hold = make(chan struct{})
	b.mu.Unlock()

	reg := b.registry()

	done := make(chan error, 1)
	go func() {
		done <- reg.Send(context.Background(), "slow", false)
	}()

	<-b.entered
	err := reg.Send(context.Background(), "eager", false)
	assert.ErrorIs(t, err, ErrExchangeInFlight)

	close(b.hold)
	require.NoError(t, <-done)

	msgs := reg.Engine().Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "slow", msgs[0].User)
}

func TestSwitchReplacesStateWholesale(t *testing.T) {
	b := newFakeBackend(t)
	b.seed("conv-a", "first",
		[]api.Message{{User: "qa", Assistant: "aa", MessageID: "conv-a-m1"}},
		[]api.Document{{ID: "conv-a-d1", Name: "a.pdf"}})
	b.seed("conv-b", "second",
		[]api.Message{
			{User: "qb1", Assistant: "ab1", MessageID: "conv-b-m1"},
			{User: "qb2", Assistant: "ab2", MessageID: "conv-b-m2"},
		},
		nil)
	b.mu.Lock()
	b.feedback["conv-a-m1"] = api.Feedback{FeedbackType: api.FeedbackThumbsUp}
	b.mu.Unlock()

	reg := b.registry()
	require.NoError(t, reg.SwitchTo(context.Background(), "conv-a"))
	require.Len(t, reg.Engine().Messages(), 1)
	require.Len(t, reg.Documents().Documents(), 1)
	_, rated := reg.Feedback().Get("conv-a-m1")
	require.True(t, rated)

	require.NoError(t, reg.SwitchTo(context.Background(), "conv-b"))

	msgs := reg.Engine().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "qb1", msgs[0].User)
	assert.Empty(t, reg.Documents().Documents(), "previous conversation's documents must not leak")
	_, rated = reg.Feedback().Get("conv-a-m1")
	assert.False(t, rated, "previous conversation's ratings must not leak")
	assert.Equal(t, "conv-b", reg.ActiveID())
}

func TestStaleSwitchDiscarded(t *testing.T) {
	b := newFakeBackend(t)
	b.seed("conv-a", "first",
		[]api.Message{{User: "qa", Assistant: "aa", MessageID: "conv-a-m1"}},
		nil)
	b.mu.Lock()
	b.holdHistory = true
	b.entered = make(chan struct{})
	b.hold = make(chan struct{})
	b.mu.Unlock()

	reg := b.registry()

	done := make(chan error, 1)
	go func() {
		done <- reg.SwitchTo(context.Background(), "conv-a")
	}()

	// The switch is in flight; the user starts a new conversation
	// before the history arrives.
	<-b.entered
	reg.StartNew()
	close(b.hold)
	require.NoError(t, <-done)

	assert.Empty(t, reg.Engine().Messages(), "stale history must not be applied")
	assert.Empty(t, reg.ActiveID())
}

func TestFeedbackResubmissionOverwrites(t *testing.T) {
	b := newFakeBackend(t)
	reg := b.registry()
	require.NoError(t, reg.Send(context.Background(), "hello", false))
	msgID := reg.Engine().Messages()[0].MessageID

	require.NoError(t, reg.Feedback().Submit(context.Background(), msgID, api.FeedbackThumbsUp, ""))
	require.NoError(t, reg.Feedback().Submit(context.Background(), msgID, api.FeedbackThumbsDown, "missed the point"))

	fb, ok := reg.Feedback().Get(msgID)
	require.True(t, ok)
	assert.Equal(t, api.FeedbackThumbsDown, fb.FeedbackType)
	assert.Equal(t, "missed the point", fb.DetailedFeedback)

	b.mu.Lock()
	stored := b.feedback[msgID]
	b.mu.Unlock()
	assert.Equal(t, api.FeedbackThumbsDown, stored.FeedbackType)
}

func TestFeedbackInvalidTypeRejectedLocally(t *testing.T) {
	b := newFakeBackend(t)
	reg := b.registry()

	err := reg.Feedback().Submit(context.Background(), "m1", "five stars", "")
	var ve *api.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Zero(t, b.count("POST /feedback"))
}

func TestUploadRejectsUnsupportedTypeWithoutNetwork(t *testing.T) {
	b := newFakeBackend(t)
	reg := b.registry()

	for _, mediaType := range []string{"image/gif", "image/png", "application/zip", ""} {
		_, err := reg.Upload(context.Background(), "pic.gif", mediaType, strings.NewReader("GIF89a"))
		var ve *api.ValidationError
		require.ErrorAs(t, err, &ve, "media type %q", mediaType)
	}
	assert.Zero(t, b.count("POST /upload_document"))
	assert.Empty(t, reg.Documents().Documents())
}

func TestUploadAdoptsMintedConversation(t *testing.T) {
	b := newFakeBackend(t)
	reg := b.registry()

	doc, err := reg.Upload(context.Background(), "report.pdf", "application/pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "conv-new-d1", doc.ID)
	assert.Equal(t, "conv-new", reg.ActiveID())
	require.Len(t, reg.Documents().Documents(), 1)
}

func TestRemoveLastOnEmptySetIsLocal(t *testing.T) {
	b := newFakeBackend(t)
	reg := b.registry()

	err := reg.Documents().RemoveLast(context.Background())
	assert.ErrorIs(t, err, ErrNoDocuments)
	assert.Zero(t, b.count("POST /remove_document"))
}

func TestClearHistoryKeepsConversationAndDocuments(t *testing.T) {
	b := newFakeBackend(t)
	reg := b.registry()

	_, err := reg.Upload(context.Background(), "report.pdf", "application/pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	require.NoError(t, reg.Send(context.Background(), "hello", false))

	require.NoError(t, reg.ClearHistory(context.Background()))

	assert.Empty(t, reg.Engine().Messages())
	assert.Equal(t, "conv-new", reg.ActiveID(), "clearing history must not leave the conversation")
	assert.Len(t, reg.Documents().Documents(), 1, "documents survive a history wipe")

	b.mu.Lock()
	remote := b.histories["conv-new"]
	b.mu.Unlock()
	assert.Empty(t, remote)
}

func TestResume(t *testing.T) {
	t.Run("opens the backend's current conversation", func(t *testing.T) {
		b := newFakeBackend(t)
		b.seed("conv-a", "first",
			[]api.Message{{User: "qa", Assistant: "aa", MessageID: "conv-a-m1"}},
			nil)
		b.mu.Lock()
		b.currentID = "conv-a"
		b.mu.Unlock()

		reg := b.registry()
		require.NoError(t, reg.Resume(context.Background()))

		assert.Equal(t, "conv-a", reg.ActiveID())
		require.Len(t, reg.Engine().Messages(), 1)
	})

	t.Run("starts fresh when the backend has none", func(t *testing.T) {
		b := newFakeBackend(t)
		reg := b.registry()

		require.NoError(t, reg.Resume(context.Background()))
		assert.Empty(t, reg.ActiveID())
		assert.Empty(t, reg.Engine().Messages())
	})
}

func TestDeleteActiveConversationResets(t *testing.T) {
	b := newFakeBackend(t)
	b.seed("conv-a", "first",
		[]api.Message{{User: "qa", Assistant: "aa", MessageID: "conv-a-m1"}},
		nil)
	b.seed("conv-b", "second", nil, nil)

	reg := b.registry()
	require.NoError(t, reg.SwitchTo(context.Background(), "conv-a"))

	require.NoError(t, reg.Delete(context.Background(), "conv-a"))

	assert.Empty(t, reg.ActiveID())
	assert.Empty(t, reg.Engine().Messages())
	convs := reg.List()
	require.Len(t, convs, 1)
	assert.Equal(t, "conv-b", convs[0].ID)
}

func TestDeleteInactiveConversationKeepsState(t *testing.T) {
	b := newFakeBackend(t)
	b.seed("conv-a", "first",
		[]api.Message{{User: "qa", Assistant: "aa", MessageID: "conv-a-m1"}},
		nil)
	b.seed("conv-b", "second", nil, nil)

	reg := b.registry()
	require.NoError(t, reg.SwitchTo(context.Background(), "conv-a"))
	require.NoError(t, reg.Delete(context.Background(), "conv-b"))

	assert.Equal(t, "conv-a", reg.ActiveID())
	assert.Len(t, reg.Engine().Messages(), 1)
}
