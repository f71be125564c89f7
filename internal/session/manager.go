package session

import (
	"context"
	"sync"

	"docterm/internal/api"
	"docterm/internal/logging"
)

// Manager owns the current credential and the authenticated identity.
// It is the only writer of the transport's token slot; every other
// component reads the credential indirectly through the transport.
//
// Mutation order is fixed: in-memory credential, then transport token,
// then persisted store. A concurrent reader therefore observes either
// the fully-old or fully-new triple, never a mix.
type Manager struct {
	mu       sync.Mutex
	client   *api.Client
	store    *Store
	token    string
	identity *api.Identity
	log      *logging.Logger
}

// NewManager wires a manager to a client and a token store. Any token
// persisted from an earlier run is restored into the transport, and
// the transport's rejection hook is pointed at Invalidate so a 401 on
// any call clears the session.
func NewManager(client *api.Client, store *Store) *Manager {
	m := &Manager{
		client: client,
		store:  store,
		log:    logging.Get(logging.CategorySession),
	}
	if tok := store.Get(); tok != "" {
		m.token = tok
		client.Transport().SetToken(tok)
	}
	client.Transport().OnAuthRejected(m.Invalidate)
	return m
}

// Login exchanges credentials for a token, installs it, and resolves
// the identity behind it.
func (m *Manager) Login(ctx context.Context, username, password string) error {
	token, err := m.client.Login(ctx, username, password)
	if err != nil {
		return err
	}
	m.setToken(token)
	ident, err := m.client.GetIdentity(ctx)
	if err != nil {
		// Token accepted but identity unreadable; keep the token,
		// identity resolves on the next successful call.
		m.log.Warn("identity resolution failed after login: %v", err)
		return nil
	}
	m.mu.Lock()
	m.identity = ident
	m.mu.Unlock()
	m.log.Info("session established for %s", ident.Username)
	return nil
}

// Register creates an account. The caller logs in separately.
func (m *Manager) Register(ctx context.Context, username, password string) error {
	return m.client.Register(ctx, username, password)
}

// Logout notifies the backend and unconditionally clears local state.
// A failed network call never blocks local sign-out.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.client.Logout(ctx); err != nil {
		m.log.Warn("logout call failed, clearing locally anyway: %v", err)
	}
	m.clear()
}

// Invalidate is the global rejection path: the credential was refused
// by the backend, so the session is torn down locally. Idempotent;
// overlapping in-flight 401s may invoke it more than once.
func (m *Manager) Invalidate() {
	m.log.Warn("session invalidated")
	m.clear()
}

// ResolveIdentity refreshes the identity from the backend. Used on
// startup when a persisted token was restored.
func (m *Manager) ResolveIdentity(ctx context.Context) (*api.Identity, error) {
	if !m.Authenticated() {
		return nil, nil
	}
	ident, err := m.client.GetIdentity(ctx)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.identity = ident
	m.mu.Unlock()
	return ident, nil
}

// CurrentIdentity returns the resolved identity, or nil when the
// credential is absent or was rejected.
func (m *Manager) CurrentIdentity() *api.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity
}

// Authenticated reports whether a credential is held. The credential
// may still be rejected by the next call; callers observe that through
// CurrentIdentity turning nil.
func (m *Manager) Authenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token != ""
}

func (m *Manager) setToken(token string) {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	m.client.Transport().SetToken(token)
	if err := m.store.Set(token); err != nil {
		m.log.Warn("failed to persist token: %v", err)
	}
}

func (m *Manager) clear() {
	m.mu.Lock()
	m.token = ""
	m.identity = nil
	m.mu.Unlock()
	m.client.Transport().SetToken("")
	if err := m.store.Remove(); err != nil {
		m.log.Warn("failed to remove persisted token: %v", err)
	}
}
