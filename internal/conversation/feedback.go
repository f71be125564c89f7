package conversation

import (
	"context"
	"fmt"
	"sync"

	"docterm/internal/api"

	"golang.org/x/sync/errgroup"
)

// FeedbackMap holds one rating record per message id for the active
// conversation. The rendering layer reads it; only the synchronizer
// writes it. Merges are unions: loading a batch never drops entries
// for ids outside the batch.
type FeedbackMap struct {
	mu     sync.RWMutex
	m      map[string]api.Feedback
	client *api.Client
}

// NewFeedbackMap returns an empty map bound to a client.
func NewFeedbackMap(client *api.Client) *FeedbackMap {
	return &FeedbackMap{m: make(map[string]api.Feedback), client: client}
}

// Get returns the rating for a message, if any.
func (f *FeedbackMap) Get(messageID string) (api.Feedback, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	fb, ok := f.m[messageID]
	return fb, ok
}

// All returns a copy of the whole map.
func (f *FeedbackMap) All() map[string]api.Feedback {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]api.Feedback, len(f.m))
	for k, v := range f.m {
		out[k] = v
	}
	return out
}

// LoadForMessages fetches ratings for the given ids concurrently and
// merges the ones that exist. Absent feedback and failed fetches
// resolve silently: absence of a rating is not an error.
func (f *FeedbackMap) LoadForMessages(ctx context.Context, messageIDs []string) {
	found := f.fetch(ctx, messageIDs)
	if len(found) == 0 {
		return
	}
	f.mu.Lock()
	for id, fb := range found {
		f.m[id] = fb
	}
	f.mu.Unlock()
}

// fetch retrieves ratings for the given ids concurrently and returns
// the ones that exist, without touching the map.
func (f *FeedbackMap) fetch(ctx context.Context, messageIDs []string) map[string]api.Feedback {
	found := make(map[string]api.Feedback)
	if len(messageIDs) == 0 {
		return found
	}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range messageIDs {
		id := id
		g.Go(func() error {
			fb, err := f.client.GetFeedback(gctx, id)
			if err != nil || fb == nil {
				return nil
			}
			mu.Lock()
			found[id] = *fb
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return found
}

// Submit upserts a rating server-side, then mirrors it locally.
// Last write wins: a later submission for the same id overwrites any
// earlier one, detailed or not.
func (f *FeedbackMap) Submit(ctx context.Context, messageID, feedbackType, detail string) error {
	if feedbackType != api.FeedbackThumbsUp && feedbackType != api.FeedbackThumbsDown {
		return &api.ValidationError{Detail: fmt.Sprintf("invalid feedback type %q", feedbackType)}
	}
	if err := f.client.SubmitFeedback(ctx, messageID, feedbackType, detail); err != nil {
		return err
	}
	f.mu.Lock()
	f.m[messageID] = api.Feedback{FeedbackType: feedbackType, DetailedFeedback: detail}
	f.mu.Unlock()
	return nil
}

// replaceAll installs the ratings loaded for a freshly switched
// conversation, dropping the previous conversation's map.
func (f *FeedbackMap) replaceAll(m map[string]api.Feedback) {
	f.mu.Lock()
	f.m = make(map[string]api.Feedback, len(m))
	for k, v := range m {
		f.m[k] = v
	}
	f.mu.Unlock()
}

func (f *FeedbackMap) clear() {
	f.mu.Lock()
	f.m = make(map[string]api.Feedback)
	f.mu.Unlock()
}
