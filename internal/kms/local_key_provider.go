package kms

import (
	"context"

	"github.com/schedly/push-gateway/pkg/webpush"
)

type localKeyProvider struct {
	keys webpush.VAPIDKeys
}

// NewLocalKeyProvider returns a provider serving a key pair taken straight from
// the configuration. This is the default backend.
func NewLocalKeyProvider(publicKey, privateKey, subject string) KeyProvider {
	return &localKeyProvider{
		keys: webpush.VAPIDKeys{
			PublicKey:  publicKey,
			PrivateKey: privateKey,
			Subject:    subject,
		},
	}
}

// VAPIDKeys validates and returns the configured pair
func (p *localKeyProvider) VAPIDKeys(_ context.Context) (webpush.VAPIDKeys, error) {
	if err := Validate(p.keys); err != nil {
		return webpush.VAPIDKeys{}, err
	}
	return p.keys, nil
}
