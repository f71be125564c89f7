package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"docterm/internal/logging"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// DefaultTimeout bounds every backend call. The controller imposes no
// timeouts of its own.
const DefaultTimeout = 2 * time.Minute

// Transport performs authenticated HTTP calls against the backend. It
// owns the only mutable credential slot in the process: the session
// manager writes it, every request reads it fresh at dispatch time.
// Any response with status 401 invokes the rejection hook, once per
// response, before the error is returned to the caller.
type Transport struct {
	rc *resty.Client

	mu         sync.RWMutex
	token      string
	onRejected func()
}

// NewTransport builds a transport for the given base URL.
func NewTransport(baseURL string) *Transport {
	t := &Transport{}
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(DefaultTimeout)
	rc.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		if resp.StatusCode() == http.StatusUnauthorized {
			t.rejected()
		}
		return nil
	})
	t.rc = rc
	return t
}

// SetToken replaces the credential attached to subsequent requests.
// An empty string detaches the credential entirely.
func (t *Transport) SetToken(token string) {
	t.mu.Lock()
	t.token = token
	t.mu.Unlock()
}

// Token returns the credential currently attached to requests.
func (t *Transport) Token() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.token
}

// OnAuthRejected registers the hook invoked whenever the backend
// rejects the credential. The hook must be idempotent; it may fire
// concurrently from overlapping in-flight calls.
func (t *Transport) OnAuthRejected(fn func()) {
	t.mu.Lock()
	t.onRejected = fn
	t.mu.Unlock()
}

func (t *Transport) rejected() {
	t.mu.RLock()
	fn := t.onRejected
	t.mu.RUnlock()
	if fn != nil {
		logging.Get(logging.CategoryAPI).Warn("credential rejected by backend")
		fn()
	}
}

// request builds a request carrying the current credential and a
// correlation id. The token is read here, not at client construction,
// so every call sees the latest credential.
func (t *Transport) request(ctx context.Context) *resty.Request {
	req := t.rc.R().SetContext(ctx)
	if tok := t.Token(); tok != "" {
		req.SetAuthToken(tok)
	}
	req.SetHeader("X-Request-ID", uuid.NewString())
	return req
}

// classify maps a failed exchange to the client error taxonomy.
func classify(op string, resp *resty.Response, err error) error {
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	switch resp.StatusCode() {
	case http.StatusUnauthorized:
		return &AuthError{Op: op}
	case http.StatusNotFound:
		return &NotFoundError{Op: op, ID: "resource"}
	default:
		return &TransportError{Op: op, Status: resp.StatusCode()}
	}
}
