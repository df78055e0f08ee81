package webpush

import (
	"errors"
	"fmt"
)

// ErrSignatureFormat is returned when the DER structure produced by the signing
// primitive cannot be converted to the raw r||s form JWS requires. It points to a
// platform or library incompatibility, so the send should not be retried blindly.
var ErrSignatureFormat = errors.New("unexpected DER signature structure")

// ErrPayloadTooLarge is returned before encryption when the plaintext cannot fit
// in a single 4096 byte record. Push services reject larger bodies anyway.
var ErrPayloadTooLarge = errors.New("payload exceeds the maximum push record size")

// DecodeError reports malformed base64url input, typically a corrupted
// subscription key or auth secret.
type DecodeError struct {
	Field string
	Err   error
}

// Error implements the error interface
func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed base64url in %s: %v", e.Field, e.Err)
}

// Unwrap returns the underlying decoding error
func (e *DecodeError) Unwrap() error { return e.Err }

// CryptoError wraps a failure from the platform crypto primitives (key import,
// ECDH agreement, HKDF expansion or AES-GCM sealing). Fatal for that send.
type CryptoError struct {
	Op  string
	Err error
}

// Error implements the error interface
func (e *CryptoError) Error() string {
	return fmt.Sprintf("webpush crypto failure in %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying crypto error
func (e *CryptoError) Unwrap() error { return e.Err }
