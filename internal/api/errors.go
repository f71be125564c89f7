package api

import "fmt"

// AuthError covers bad credentials and rejected sessions. Any
// authenticated call can fail with it; the transport's rejection hook
// fires before the error reaches the caller.
type AuthError struct {
	Op     string
	Detail string
}

func (e *AuthError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: authentication rejected", e.Op)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Detail)
}

// ValidationError is raised locally, before any network call, for
// input the client can reject on its own (empty text, unsupported
// file type).
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string { return e.Detail }

// NotFoundError reports an operation against a conversation, message
// or document the backend no longer knows.
type NotFoundError struct {
	Op string
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s not found", e.Op, e.ID)
}

// TransportError is the fallback classification for network and
// server failures.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: server returned %d", e.Op, e.Status)
}

func (e *TransportError) Unwrap() error { return e.Err }
