package webpush

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"encoding/json"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeys(t *testing.T) VAPIDKeys {
	t.Helper()
	private, public, err := GenerateVAPIDKeys()
	require.NoError(t, err)
	return VAPIDKeys{
		PublicKey:  public,
		PrivateKey: private,
		Subject:    "mailto:ops@schedly.example",
	}
}

func TestAudienceStripsPath(t *testing.T) {
	for endpoint, want := range map[string]string{
		"https://fcm.googleapis.com/fcm/send/abc123":                  "https://fcm.googleapis.com",
		"https://updates.push.services.mozilla.com/wpush/v2/xyz":      "https://updates.push.services.mozilla.com",
		"https://example.com:8443/push/deep/path?query=1#frag":        "https://example.com:8443",
		"https://wns2-par02p.notify.windows.com/w/?token=secretvalue": "https://wns2-par02p.notify.windows.com",
	} {
		got, err := Audience(endpoint)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestBuildAuthorizationDeterministicSegments(t *testing.T) {
	keys := testKeys(t)
	now := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	header1, err := BuildAuthorization("https://fcm.googleapis.com/fcm/send/abc", keys, now)
	require.NoError(t, err)
	header2, err := BuildAuthorization("https://fcm.googleapis.com/fcm/send/abc", keys, now)
	require.NoError(t, err)

	jwt1 := betweenPrefixAndComma(t, header1)
	jwt2 := betweenPrefixAndComma(t, header2)

	parts1 := strings.Split(jwt1, ".")
	parts2 := strings.Split(jwt2, ".")
	require.Len(t, parts1, 3)
	require.Len(t, parts2, 3)

	// Header and claims are reproducible for a fixed clock; only the ECDSA
	// signature draws randomness.
	assert.Equal(t, parts1[0], parts2[0])
	assert.Equal(t, parts1[1], parts2[1])

	headerJSON, err := DecodeBase64URL("jwt header", parts1[0])
	require.NoError(t, err)
	var jwtHeader map[string]string
	require.NoError(t, json.Unmarshal(headerJSON, &jwtHeader))
	assert.Equal(t, "JWT", jwtHeader["typ"])
	assert.Equal(t, "ES256", jwtHeader["alg"])

	claimsJSON, err := DecodeBase64URL("jwt claims", parts1[1])
	require.NoError(t, err)
	var claims struct {
		Aud string `json:"aud"`
		Exp int64  `json:"exp"`
		Sub string `json:"sub"`
	}
	require.NoError(t, json.Unmarshal(claimsJSON, &claims))
	assert.Equal(t, "https://fcm.googleapis.com", claims.Aud)
	assert.Equal(t, now.Add(12*time.Hour).Unix(), claims.Exp)
	assert.Equal(t, "mailto:ops@schedly.example", claims.Sub)

	assert.True(t, strings.HasSuffix(header1, ", k="+keys.PublicKey))
}

func TestBuildAuthorizationSignatureVerifies(t *testing.T) {
	keys := testKeys(t)
	header, err := BuildAuthorization("https://updates.push.services.mozilla.com/wpush/v2/x", keys, time.Now())
	require.NoError(t, err)

	jwt := betweenPrefixAndComma(t, header)
	parts := strings.Split(jwt, ".")
	require.Len(t, parts, 3)

	signature, err := DecodeBase64URL("jwt signature", parts[2])
	require.NoError(t, err)
	require.Len(t, signature, 64)

	publicBytes, err := DecodeBase64URL("vapid public key", keys.PublicKey)
	require.NoError(t, err)
	x, y := elliptic.Unmarshal(elliptic.P256(), publicBytes)
	require.NotNil(t, x)
	pub := &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}

	digest := sha256.Sum256([]byte(parts[0] + "." + parts[1]))
	r := new(big.Int).SetBytes(signature[:32])
	s := new(big.Int).SetBytes(signature[32:])
	assert.True(t, ecdsa.Verify(pub, digest[:], r, s))
}

func buildDER(t *testing.T, r, s []byte) []byte {
	t.Helper()
	body := []byte{0x02, byte(len(r))}
	body = append(body, r...)
	body = append(body, 0x02, byte(len(s)))
	body = append(body, s...)
	return append([]byte{0x30, byte(len(body))}, body...)
}

func TestRawSignatureFromDERSignByte(t *testing.T) {
	r := make([]byte, 32)
	r[0] = 0xA5 // high bit set, DER adds a 0x00 sign byte
	for i := 1; i < 32; i++ {
		r[i] = byte(i)
	}
	s := make([]byte, 32)
	s[0] = 0x41
	for i := 1; i < 32; i++ {
		s[i] = byte(0xFF - i)
	}

	withSignByte := buildDER(t, append([]byte{0x00}, r...), s)
	withoutSignByte := buildDER(t, r, s)

	raw1, err := rawSignatureFromDER(withSignByte)
	require.NoError(t, err)
	raw2, err := rawSignatureFromDER(withoutSignByte)
	require.NoError(t, err)

	assert.Equal(t, raw1, raw2)
	assert.Equal(t, r, raw1[:32])
	assert.Equal(t, s, raw1[32:])
}

func TestRawSignatureFromDERShortComponents(t *testing.T) {
	// A 30 byte r must land right aligned with two leading zero bytes.
	r := make([]byte, 30)
	for i := range r {
		r[i] = byte(i + 1)
	}
	s := []byte{0x7F}

	raw, err := rawSignatureFromDER(buildDER(t, r, s))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00}, raw[:2])
	assert.Equal(t, r, raw[2:32])
	assert.Equal(t, byte(0x7F), raw[63])
	assert.Equal(t, make([]byte, 31), raw[32:63])
}

func TestRawSignatureFromDERMalformed(t *testing.T) {
	for name, der := range map[string][]byte{
		"empty":            {},
		"not a sequence":   {0x31, 0x06, 0x02, 0x01, 0x01, 0x02, 0x01, 0x01},
		"truncated":        {0x30, 0x44, 0x02, 0x20},
		"bad integer tag":  {0x30, 0x06, 0x04, 0x01, 0x01, 0x02, 0x01, 0x01},
		"trailing garbage": {0x30, 0x06, 0x02, 0x01, 0x01, 0x02, 0x01, 0x01, 0xFF},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := rawSignatureFromDER(der)
			assert.ErrorIs(t, err, ErrSignatureFormat)
		})
	}
}

func TestGenerateVAPIDKeysShape(t *testing.T) {
	private, public, err := GenerateVAPIDKeys()
	require.NoError(t, err)

	priv, err := DecodeBase64URL("private", private)
	require.NoError(t, err)
	assert.Len(t, priv, 32)

	pub, err := DecodeBase64URL("public", public)
	require.NoError(t, err)
	require.Len(t, pub, 65)
	assert.Equal(t, byte(0x04), pub[0])
}

func betweenPrefixAndComma(t *testing.T, header string) string {
	t.Helper()
	require.True(t, strings.HasPrefix(header, "vapid t="))
	rest := strings.TrimPrefix(header, "vapid t=")
	idx := strings.Index(rest, ", k=")
	require.Positive(t, idx)
	return rest[:idx]
}
