// Package hasher provides the deterministic content hash used to bind blocks
// to their contents and to their parent.
package hasher

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrSerialization is the sentinel matched by every SerializationError.
var ErrSerialization = errors.New("serialization failed")

// SerializationError is returned when a value can't be canonically encoded.
type SerializationError struct {
	Err error
}

// Error implements the error interface.
func (se *SerializationError) Error() string {
	return fmt.Sprintf("serialization failed: %s", se.Err)
}

// Unwrap provides access to the underlying encoder error.
func (se *SerializationError) Unwrap() error {
	return se.Err
}

// Is allows errors.Is to match against ErrSerialization.
func (se *SerializationError) Is(target error) bool {
	return target == ErrSerialization
}

// =============================================================================

// Hash returns the unique hex encoded SHA-256 digest for the value. Values
// that are structurally identical produce the same hash regardless of the
// order their map keys were inserted or their struct fields were declared.
func Hash(value any) (string, error) {
	data, err := Canonical(value)
	if err != nil {
		return "", err
	}

	hash := sha256.Sum256(data)
	return hexutil.Encode(hash[:]), nil
}

// Canonical returns the canonical JSON encoding of the value. Every object
// at every depth has its keys sorted lexicographically.
func Canonical(value any) ([]byte, error) {

	// Marshal the value once to resolve struct tags and custom marshalers.
	data, err := json.Marshal(value)
	if err != nil {
		return nil, &SerializationError{Err: err}
	}

	// Decode into generic maps and slices. Numbers are kept as their literal
	// text so large integers don't lose precision through float64.
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, &SerializationError{Err: err}
	}

	// The encoder writes map keys in sorted order.
	canonical, err := json.Marshal(generic)
	if err != nil {
		return nil, &SerializationError{Err: err}
	}

	return canonical, nil
}
