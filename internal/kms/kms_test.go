package kms

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedly/push-gateway/pkg/webpush"
)

func generatedPair(t *testing.T) (private, public string) {
	t.Helper()
	private, public, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)
	return private, public
}

func TestLocalKeyProviderHappyPath(t *testing.T) {
	private, public := generatedPair(t)
	provider := NewLocalKeyProvider(public, private, "mailto:ops@schedly.example")

	keys, err := provider.VAPIDKeys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, public, keys.PublicKey)
	assert.Equal(t, private, keys.PrivateKey)
	assert.Equal(t, "mailto:ops@schedly.example", keys.Subject)
}

func TestValidate(t *testing.T) {
	private, public := generatedPair(t)

	for name, tc := range map[string]struct {
		keys    webpush.VAPIDKeys
		wantErr string
	}{
		"ok mailto": {
			keys: webpush.VAPIDKeys{PublicKey: public, PrivateKey: private, Subject: "mailto:a@b.c"},
		},
		"ok https": {
			keys: webpush.VAPIDKeys{PublicKey: public, PrivateKey: private, Subject: "https://schedly.example"},
		},
		"bad subject": {
			keys:    webpush.VAPIDKeys{PublicKey: public, PrivateKey: private, Subject: "ops@schedly.example"},
			wantErr: "subject",
		},
		"short public key": {
			keys:    webpush.VAPIDKeys{PublicKey: webpush.EncodeBase64URL(make([]byte, 33)), PrivateKey: private, Subject: "mailto:a@b.c"},
			wantErr: "public key",
		},
		"short private key": {
			keys:    webpush.VAPIDKeys{PublicKey: public, PrivateKey: webpush.EncodeBase64URL(make([]byte, 16)), Subject: "mailto:a@b.c"},
			wantErr: "private key",
		},
		"not base64": {
			keys:    webpush.VAPIDKeys{PublicKey: "***", PrivateKey: private, Subject: "mailto:a@b.c"},
			wantErr: "base64url",
		},
	} {
		t.Run(name, func(t *testing.T) {
			err := Validate(tc.keys)
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
			}
		})
	}
}

func TestKeysFromSecretData(t *testing.T) {
	private, public := generatedPair(t)

	keys, err := keysFromSecretData(map[string]string{
		"public_key":  public,
		"private_key": private,
		"subject":     "mailto:a@b.c",
	})
	require.NoError(t, err)
	assert.Equal(t, public, keys.PublicKey)

	_, err = keysFromSecretData(map[string]string{"public_key": public})
	assert.Error(t, err)
}
