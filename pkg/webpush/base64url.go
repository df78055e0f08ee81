package webpush

import (
	"encoding/base64"
	"strings"
)

// EncodeBase64URL encodes bytes as unpadded base64url text, the alphabet used by
// the Web Push key material and by JWS compact serialization.
func EncodeBase64URL(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeBase64URL decodes unpadded base64url text. Browsers are inconsistent
// about padding when they export subscription keys, so both padded and unpadded
// inputs are accepted.
func DecodeBase64URL(field, s string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, &DecodeError{Field: field, Err: err}
	}
	return b, nil
}
