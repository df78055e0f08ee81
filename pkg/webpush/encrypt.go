package webpush

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	saltSize      = 16
	recordSize    = 4096 // fixed rs field value, the RFC 8188 default
	publicKeySize = 65   // uncompressed P-256 point
	gcmTagSize    = 16
	headerSize    = saltSize + 4 + 1 + publicKeySize

	// MaxPayloadSize is the largest plaintext that still fits a single record
	// once the header, the padding delimiter and the GCM tag are accounted for.
	MaxPayloadSize = recordSize - headerSize - gcmTagSize - 1
)

// Encrypt transforms plaintext into an aes128gcm record only the subscribing
// browser can open, per RFC 8291. p256dh is the subscriber public key and auth
// its 16 byte shared secret, both base64url as delivered by the browser.
//
// Every call draws a fresh ephemeral key pair and salt. Reusing either across
// messages would void the AEAD guarantees, so there is deliberately no way to
// inject them.
func Encrypt(plaintext []byte, p256dh, auth string) ([]byte, error) {
	subscriberKey, err := DecodeBase64URL("p256dh", p256dh)
	if err != nil {
		return nil, err
	}
	authSecret, err := DecodeBase64URL("auth", auth)
	if err != nil {
		return nil, err
	}

	subscriberPub, err := ecdh.P256().NewPublicKey(subscriberKey)
	if err != nil {
		return nil, &CryptoError{Op: "subscriber key import", Err: err}
	}

	senderPriv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, &CryptoError{Op: "ephemeral key generation", Err: err}
	}
	senderPub := senderPriv.PublicKey().Bytes()

	sharedSecret, err := senderPriv.ECDH(subscriberPub)
	if err != nil {
		return nil, &CryptoError{Op: "ecdh agreement", Err: err}
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, &CryptoError{Op: "salt generation", Err: err}
	}

	// First stage: bind the shared secret to both public keys and the auth secret.
	prkInfo := append([]byte("WebPush: info\x00"), subscriberPub.Bytes()...)
	prkInfo = append(prkInfo, senderPub...)
	prk, err := deriveKey(sharedSecret, authSecret, prkInfo, 32)
	if err != nil {
		return nil, err
	}

	// Second stage: per-message content encryption key and nonce.
	cek, err := deriveKey(prk, salt, []byte("Content-Encoding: aes128gcm\x00"), 16)
	if err != nil {
		return nil, err
	}
	nonce, err := deriveKey(prk, salt, []byte("Content-Encoding: nonce\x00"), 12)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(cek)
	if err != nil {
		return nil, &CryptoError{Op: "aes cipher", Err: err}
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, &CryptoError{Op: "gcm mode", Err: err}
	}

	// 0x02 marks the last (only) record. No extra padding for length obfuscation.
	padded := make([]byte, 0, len(plaintext)+1)
	padded = append(padded, plaintext...)
	padded = append(padded, 0x02)

	ciphertext := gcm.Seal(nil, nonce, padded, nil)

	record := make([]byte, 0, headerSize+len(ciphertext))
	record = append(record, salt...)
	record = binary.BigEndian.AppendUint32(record, recordSize)
	record = append(record, byte(publicKeySize))
	record = append(record, senderPub...)
	record = append(record, ciphertext...)

	return record, nil
}

func deriveKey(secret, salt, info []byte, size int) ([]byte, error) {
	out := make([]byte, size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, info), out); err != nil {
		return nil, &CryptoError{Op: "hkdf expansion", Err: err}
	}
	return out, nil
}
