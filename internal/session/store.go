// Package session owns the credential lifecycle: the persisted token
// mirror, login/register/logout, identity resolution, and the
// cooperative invalidation path taken when the backend rejects the
// credential mid-session.
package session

import (
	"encoding/json"
	"os"
	"path/filepath"
)

const tokenFile = "token.json"

// Store persists the bearer token under the config directory. It is a
// write-through mirror of the in-memory credential: Set and Remove are
// called in the same operation that mutates the live value, so the
// file never lags.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. The directory is created
// lazily on first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

type tokenRecord struct {
	Token string `json:"token"`
}

// Get returns the persisted token, or "" when none is stored.
func (s *Store) Get() string {
	data, err := os.ReadFile(filepath.Join(s.dir, tokenFile))
	if err != nil {
		return ""
	}
	var rec tokenRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return ""
	}
	return rec.Token
}

// Set writes the token. 0600: the token is a live credential.
func (s *Store) Set(token string) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}
	data, err := json.Marshal(tokenRecord{Token: token})
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, tokenFile), data, 0600)
}

// Remove deletes the persisted token. Removing an absent token is a
// no-op.
func (s *Store) Remove() error {
	err := os.Remove(filepath.Join(s.dir, tokenFile))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
