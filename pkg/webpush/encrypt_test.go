package webpush

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSubscriber struct {
	priv   *ecdh.PrivateKey
	p256dh string
	auth   string
	secret []byte
}

func newTestSubscriber(t *testing.T) *testSubscriber {
	t.Helper()
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)

	secret := make([]byte, 16)
	_, err = rand.Read(secret)
	require.NoError(t, err)

	return &testSubscriber{
		priv:   priv,
		p256dh: EncodeBase64URL(priv.PublicKey().Bytes()),
		auth:   EncodeBase64URL(secret),
		secret: secret,
	}
}

// decrypt opens an aes128gcm record the way a browser would, using the
// subscriber private key and auth secret.
func (sub *testSubscriber) decrypt(t *testing.T, record []byte) []byte {
	t.Helper()
	require.Greater(t, len(record), headerSize)

	salt := record[:16]
	senderKeyBytes := record[21:86]
	ciphertext := record[86:]

	senderPub, err := ecdh.P256().NewPublicKey(senderKeyBytes)
	require.NoError(t, err)
	sharedSecret, err := sub.priv.ECDH(senderPub)
	require.NoError(t, err)

	prkInfo := append([]byte("WebPush: info\x00"), sub.priv.PublicKey().Bytes()...)
	prkInfo = append(prkInfo, senderKeyBytes...)
	prk, err := deriveKey(sharedSecret, sub.secret, prkInfo, 32)
	require.NoError(t, err)
	cek, err := deriveKey(prk, salt, []byte("Content-Encoding: aes128gcm\x00"), 16)
	require.NoError(t, err)
	nonce, err := deriveKey(prk, salt, []byte("Content-Encoding: nonce\x00"), 12)
	require.NoError(t, err)

	block, err := aes.NewCipher(cek)
	require.NoError(t, err)
	gcm, err := cipher.NewGCM(block)
	require.NoError(t, err)

	padded, err := gcm.Open(nil, nonce, ciphertext, nil)
	require.NoError(t, err)

	require.Equal(t, byte(0x02), padded[len(padded)-1])
	return padded[:len(padded)-1]
}

func TestEncryptFraming(t *testing.T) {
	sub := newTestSubscriber(t)
	plaintext := []byte(`{"title":"Appointment reminder","body":"Tomorrow at 10:00"}`)

	record, err := Encrypt(plaintext, sub.p256dh, sub.auth)
	require.NoError(t, err)

	// salt(16) + rs(4) + idlen(1) + sender key(65) + ciphertext + tag(16)
	wantLen := 16 + 4 + 1 + 65 + len(plaintext) + 1 + 16
	assert.Len(t, record, wantLen)

	assert.Equal(t, uint32(4096), binary.BigEndian.Uint32(record[16:20]))
	assert.Equal(t, byte(65), record[20])
	assert.Equal(t, byte(0x04), record[21], "sender key must be an uncompressed point")
}

func TestEncryptRoundTrip(t *testing.T) {
	sub := newTestSubscriber(t)

	for _, plaintext := range [][]byte{
		[]byte(""),
		[]byte("x"),
		[]byte(`{"title":"Booking confirmed","body":"Haircut with Dana, Fri 14:30","data":{"appointmentId":"b7d9"}}`),
	} {
		record, err := Encrypt(plaintext, sub.p256dh, sub.auth)
		require.NoError(t, err)
		assert.Equal(t, plaintext, sub.decrypt(t, record))
	}
}

func TestEncryptNeverReusesSaltOrEphemeralKey(t *testing.T) {
	sub := newTestSubscriber(t)
	plaintext := []byte("identical input")

	record1, err := Encrypt(plaintext, sub.p256dh, sub.auth)
	require.NoError(t, err)
	record2, err := Encrypt(plaintext, sub.p256dh, sub.auth)
	require.NoError(t, err)

	assert.NotEqual(t, record1[:16], record2[:16], "salt must be fresh per message")
	assert.NotEqual(t, record1[21:86], record2[21:86], "ephemeral key must be fresh per message")
	assert.NotEqual(t, record1[86:], record2[86:], "ciphertext must differ")

	// Both still decrypt to the same plaintext.
	assert.Equal(t, plaintext, sub.decrypt(t, record1))
	assert.Equal(t, plaintext, sub.decrypt(t, record2))
}

func TestEncryptRejectsBadKeyMaterial(t *testing.T) {
	sub := newTestSubscriber(t)

	_, err := Encrypt([]byte("hi"), "!!not-base64!!", sub.auth)
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "p256dh", decodeErr.Field)

	_, err = Encrypt([]byte("hi"), sub.p256dh, "???")
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "auth", decodeErr.Field)

	// A 64 byte point (missing the 0x04 prefix) is not a valid public key.
	badPoint := EncodeBase64URL(make([]byte, 64))
	_, err = Encrypt([]byte("hi"), badPoint, sub.auth)
	var cryptoErr *CryptoError
	require.ErrorAs(t, err, &cryptoErr)
	assert.Equal(t, "subscriber key import", cryptoErr.Op)
}
