// Package kms loads the VAPID signing key pair from one of the supported
// secret backends. The pair is read once at startup and treated as immutable
// for the process lifetime; rotating it requires re-subscribing every device.
package kms

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/schedly/push-gateway/pkg/webpush"
)

// Config provider names
const (
	ProviderLocal = "local"
	ProviderVault = "vault"
	ProviderAWS   = "aws-sm"
)

const (
	publicKeyLength  = 65
	privateKeyLength = 32
)

// Secret field names shared by the vault and aws backends
const (
	jsonPublicKey  = "public_key"
	jsonPrivateKey = "private_key"
	jsonSubject    = "subject"
)

// KeyProvider resolves the VAPID key pair from a secret backend
type KeyProvider interface {
	VAPIDKeys(ctx context.Context) (webpush.VAPIDKeys, error)
}

// Validate checks the shape of a VAPID key pair: a 65 byte uncompressed P-256
// point, a 32 byte scalar and a mailto: or https: contact subject.
func Validate(keys webpush.VAPIDKeys) error {
	public, err := webpush.DecodeBase64URL("vapid public key", keys.PublicKey)
	if err != nil {
		return err
	}
	if len(public) != publicKeyLength || public[0] != 0x04 {
		return errors.New("vapid public key is not a 65 byte uncompressed P-256 point")
	}

	private, err := webpush.DecodeBase64URL("vapid private key", keys.PrivateKey)
	if err != nil {
		return err
	}
	if len(private) != privateKeyLength {
		return errors.New("vapid private key is not a 32 byte scalar")
	}

	if !strings.HasPrefix(keys.Subject, "mailto:") && !strings.HasPrefix(keys.Subject, "https:") {
		return errors.New("vapid subject must be a mailto: or https: URI")
	}

	return nil
}

func keysFromSecretData(data map[string]string) (webpush.VAPIDKeys, error) {
	keys := webpush.VAPIDKeys{
		PublicKey:  data[jsonPublicKey],
		PrivateKey: data[jsonPrivateKey],
		Subject:    data[jsonSubject],
	}
	if keys.PublicKey == "" || keys.PrivateKey == "" || keys.Subject == "" {
		return webpush.VAPIDKeys{}, errors.New("secret is missing public_key, private_key or subject")
	}
	if err := Validate(keys); err != nil {
		return webpush.VAPIDKeys{}, err
	}
	return keys, nil
}
