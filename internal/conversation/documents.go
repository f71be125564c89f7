package conversation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"docterm/internal/api"
	"docterm/internal/logging"
)

// AcceptedDocumentTypes is the media-type accept list enforced locally
// before any upload reaches the network.
var AcceptedDocumentTypes = map[string]bool{
	"application/pdf": true,
	"text/plain":      true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"text/csv":                 true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
}

// PickerExtensions is the broader extension list the upload prompt
// advertises. It includes images and presentations the client-side
// accept list rejects; which list is authoritative is still an open
// integration question, so both are kept explicit.
const PickerExtensions = ".pdf,.doc,.docx,.txt,.csv,.xls,.xlsx,.pptx,.png,.jpg,.jpeg,.tif,.tiff"

// ErrNoDocuments is returned by RemoveLast on an empty set; the caller
// shows it as a notice rather than an error.
var ErrNoDocuments = errors.New("no document to remove")

// DocumentSet owns the documents scoped to the active conversation.
// Membership is a set keyed by id; removal is idempotent.
type DocumentSet struct {
	mu     sync.Mutex
	docs   []api.Document
	client *api.Client
	adopt  func(conversationID string)
	log    *logging.Logger
}

// NewDocumentSet returns an empty set. adopt is invoked when an upload
// reports a newly minted conversation id; the registry supplies it.
func NewDocumentSet(client *api.Client, adopt func(string)) *DocumentSet {
	return &DocumentSet{
		client: client,
		adopt:  adopt,
		log:    logging.Get(logging.CategoryDocuments),
	}
}

// Documents returns a copy of the set in upload order.
func (d *DocumentSet) Documents() []api.Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]api.Document, len(d.docs))
	copy(out, d.docs)
	return out
}

// Upload validates the declared media type locally, then attaches the
// file to the given conversation. If the backend minted a conversation
// id for the upload, it is adopted exactly like a send-minted id.
func (d *DocumentSet) Upload(ctx context.Context, name, mediaType string, content io.Reader, conversationID string) (api.Document, error) {
	if !AcceptedDocumentTypes[mediaType] {
		return api.Document{}, &api.ValidationError{
			Detail: fmt.Sprintf("unsupported file type %q: upload a PDF, DOCX, TXT, CSV, XLS, or XLSX file", mediaType),
		}
	}
	res, err := d.client.UploadDocument(ctx, name, content, conversationID)
	if err != nil {
		return api.Document{}, err
	}
	doc := api.Document{ID: res.DocumentID, Name: name}

	d.mu.Lock()
	exists := false
	for _, have := range d.docs {
		if have.ID == doc.ID {
			exists = true
			break
		}
	}
	if !exists {
		d.docs = append(d.docs, doc)
	}
	d.mu.Unlock()

	if res.ConversationID != "" && d.adopt != nil {
		d.adopt(res.ConversationID)
	}
	d.log.Info("document %s attached", doc.ID)
	return doc, nil
}

// RemoveLast detaches the most recently added document. On an empty
// set it returns ErrNoDocuments without issuing a network call.
func (d *DocumentSet) RemoveLast(ctx context.Context) error {
	d.mu.Lock()
	if len(d.docs) == 0 {
		d.mu.Unlock()
		return ErrNoDocuments
	}
	last := d.docs[len(d.docs)-1]
	d.mu.Unlock()
	return d.RemoveByID(ctx, last.ID)
}

// RemoveByID detaches a specific document. Removing an id not in the
// local set is a silent no-op locally.
func (d *DocumentSet) RemoveByID(ctx context.Context, id string) error {
	if err := d.client.RemoveDocument(ctx, id); err != nil {
		return err
	}
	d.mu.Lock()
	kept := d.docs[:0]
	for _, doc := range d.docs {
		if doc.ID != id {
			kept = append(kept, doc)
		}
	}
	d.docs = kept
	d.mu.Unlock()
	d.log.Info("document %s removed", id)
	return nil
}

// replaceAll installs the documents of a freshly switched
// conversation.
func (d *DocumentSet) replaceAll(docs []api.Document) {
	d.mu.Lock()
	d.docs = make([]api.Document, 0, len(docs))
	seen := make(map[string]bool, len(docs))
	for _, doc := range docs {
		if !seen[doc.ID] {
			seen[doc.ID] = true
			d.docs = append(d.docs, doc)
		}
	}
	d.mu.Unlock()
}

func (d *DocumentSet) clear() {
	d.mu.Lock()
	d.docs = nil
	d.mu.Unlock()
}
