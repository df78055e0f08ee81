package webpush

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"math/big"
	"net/url"
	"time"
)

// TokenTTL is the validity window claimed in every VAPID JWT. Push services
// reject tokens claiming more than 24 hours.
const TokenTTL = 12 * time.Hour

const rawSignatureComponentSize = 32

// VAPIDKeys is the process-wide signing identity presented to push services.
// PublicKey is a base64url 65 byte uncompressed P-256 point, PrivateKey the
// matching base64url 32 byte scalar. Subject is a mailto: or https: contact URI.
type VAPIDKeys struct {
	PublicKey  string
	PrivateKey string
	Subject    string
}

// GenerateVAPIDKeys creates a fresh private and public VAPID key pair, both in
// the base64url form subscriptions and configuration expect.
func GenerateVAPIDKeys() (privateKey, publicKey string, err error) {
	curve := elliptic.P256()

	private, x, y, err := elliptic.GenerateKey(curve, rand.Reader)
	if err != nil {
		return "", "", &CryptoError{Op: "vapid key generation", Err: err}
	}
	public := elliptic.Marshal(curve, x, y)

	return EncodeBase64URL(private), EncodeBase64URL(public), nil
}

// Audience derives the JWT audience for an endpoint: scheme and host only.
// Push services key-scope VAPID tokens by origin, never by the full endpoint URL.
func Audience(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parsing endpoint: %w", err)
	}
	return u.Scheme + "://" + u.Host, nil
}

type vapidClaims struct {
	Aud string `json:"aud"`
	Exp int64  `json:"exp"`
	Sub string `json:"sub"`
}

// BuildAuthorization produces the value for the Authorization header of a push
// request: "vapid t=<jwt>, k=<public key>". The JWT asserts control of the key
// pair towards the origin of endpoint and expires TokenTTL after now. now is
// explicit so callers can pin it in tests and cache headers per origin.
func BuildAuthorization(endpoint string, keys VAPIDKeys, now time.Time) (string, error) {
	audience, err := Audience(endpoint)
	if err != nil {
		return "", err
	}

	header, err := json.Marshal(map[string]string{"typ": "JWT", "alg": "ES256"})
	if err != nil {
		return "", err
	}
	claims, err := json.Marshal(vapidClaims{
		Aud: audience,
		Exp: now.Add(TokenTTL).Unix(),
		Sub: keys.Subject,
	})
	if err != nil {
		return "", err
	}

	signingInput := EncodeBase64URL(header) + "." + EncodeBase64URL(claims)

	signature, err := signES256(keys.PrivateKey, []byte(signingInput))
	if err != nil {
		return "", err
	}

	jwt := signingInput + "." + EncodeBase64URL(signature)

	return "vapid t=" + jwt + ", k=" + keys.PublicKey, nil
}

// signES256 signs input with ECDSA P-256 / SHA-256 and returns the fixed size
// raw r||s signature required by JWS.
func signES256(privateKey string, input []byte) ([]byte, error) {
	key, err := parseSigningKey(privateKey)
	if err != nil {
		return nil, err
	}

	digest := sha256.Sum256(input)
	der, err := ecdsa.SignASN1(rand.Reader, key, digest[:])
	if err != nil {
		return nil, &CryptoError{Op: "ecdsa signing", Err: err}
	}

	return rawSignatureFromDER(der)
}

// parseSigningKey rebuilds the ECDSA private key from the base64url scalar.
func parseSigningKey(privateKey string) (*ecdsa.PrivateKey, error) {
	scalar, err := DecodeBase64URL("vapid private key", privateKey)
	if err != nil {
		return nil, err
	}

	curve := elliptic.P256()
	x, y := curve.ScalarBaseMult(scalar)

	return &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{Curve: curve, X: x, Y: y},
		D:         new(big.Int).SetBytes(scalar),
	}, nil
}

// rawSignatureFromDER converts a DER encoded ECDSA signature (ASN.1 SEQUENCE of
// two INTEGERs) to the 64 byte r||s form. Each component is left padded to 32
// bytes; a DER sign byte (leading 0x00 on a 33 byte integer) is stripped.
func rawSignatureFromDER(der []byte) ([]byte, error) {
	if len(der) < 8 || der[0] != 0x30 {
		return nil, ErrSignatureFormat
	}

	// Sequence length: short form only, signatures are way below 128 bytes.
	if int(der[1]) != len(der)-2 {
		return nil, ErrSignatureFormat
	}

	r, rest, err := readDERInteger(der[2:])
	if err != nil {
		return nil, err
	}
	s, rest, err := readDERInteger(rest)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, ErrSignatureFormat
	}

	raw := make([]byte, 2*rawSignatureComponentSize)
	copy(raw[rawSignatureComponentSize-len(r):], r)
	copy(raw[2*rawSignatureComponentSize-len(s):], s)
	return raw, nil
}

// readDERInteger consumes one INTEGER from b and returns its value with any
// sign byte stripped, plus the remaining bytes.
func readDERInteger(b []byte) (value, rest []byte, err error) {
	if len(b) < 2 || b[0] != 0x02 {
		return nil, nil, ErrSignatureFormat
	}
	length := int(b[1])
	if length == 0 || len(b) < 2+length {
		return nil, nil, ErrSignatureFormat
	}

	value = b[2 : 2+length]
	if len(value) == rawSignatureComponentSize+1 {
		if value[0] != 0x00 {
			return nil, nil, ErrSignatureFormat
		}
		value = value[1:]
	}
	if len(value) > rawSignatureComponentSize {
		return nil, nil, ErrSignatureFormat
	}

	return value, b[2+length:], nil
}
