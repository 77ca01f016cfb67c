// Package errs defines the error values handlers return to shape the
// response a client sees.
package errs

import "errors"

// Response is the form used for API responses from failures in the API.
type Response struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Trusted is an error whose message is safe to hand back to the client.
type Trusted struct {
	Err    error
	Status int
}

// NewTrusted wraps err with the status the client should receive. Its message
// is shown to the client verbatim, so use it only for expected failures such
// as a missing block or a malformed request.
func NewTrusted(err error, status int) error {
	return &Trusted{err, status}
}

// Error implements the error interface.
func (te *Trusted) Error() string {
	return te.Err.Error()
}

// Unwrap provides access to the wrapped error so callers can match the
// underlying chain errors.
func (te *Trusted) Unwrap() error {
	return te.Err
}

// AsTrusted finds the first Trusted error in the chain. The boolean is false
// when the error should be treated as internal.
func AsTrusted(err error) (*Trusted, bool) {
	var te *Trusted
	if !errors.As(err, &te) {
		return nil, false
	}
	return te, true
}
