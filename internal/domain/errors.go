package domain

import "fmt"

// AuthError means the upstream rejected every credential variant we tried,
// or authentication could not be attempted at all.
type AuthError struct {
	// Kind distinguishes a configuration problem ("config", fails fast,
	// never retried) from an upstream rejection ("login").
	Kind string
	Msg  string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth (%s): %s", e.Kind, e.Msg)
}

// NewConfigError reports missing required credentials. It is a kind of
// AuthError so callers that only check for AuthError still catch it.
func NewConfigError(msg string) *AuthError {
	return &AuthError{Kind: "config", Msg: msg}
}

// NewLoginError reports an upstream login rejection.
func NewLoginError(msg string) *AuthError {
	return &AuthError{Kind: "login", Msg: msg}
}

// IsConfigError reports whether err is an AuthError caused by missing
// configuration rather than an upstream rejection.
func IsConfigError(err error) bool {
	ae, ok := err.(*AuthError)
	return ok && ae.Kind == "config"
}

// UpstreamError means the telemetry fetch failed or returned an unusable
// shape. It is not retried within a request.
type UpstreamError struct {
	Msg string
}

func (e *UpstreamError) Error() string {
	return "upstream: " + e.Msg
}

// StorageError wraps a cache read/write failure. Callers always swallow it;
// the cache is best-effort and never required for correctness.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
