package kms

import (
	"context"
	"strings"

	"github.com/hashicorp/vault/api"
	"github.com/pkg/errors"

	"github.com/schedly/push-gateway/pkg/webpush"
)

const kvStoragePath = "secret"

type vaultKeyProvider struct {
	vaultCli   *api.Client
	secretPath string
}

// NewVaultKeyProvider returns a provider reading the VAPID pair from a vault
// KV v2 secret. The secret must carry public_key, private_key and subject.
func NewVaultKeyProvider(vaultCli *api.Client, secretPath string) KeyProvider {
	return &vaultKeyProvider{
		vaultCli:   vaultCli,
		secretPath: secretPath,
	}
}

// VAPIDKeys reads and validates the pair from vault
func (p *vaultKeyProvider) VAPIDKeys(ctx context.Context) (webpush.VAPIDKeys, error) {
	secret, err := p.vaultCli.Logical().ReadWithContext(ctx, absVaultSecretPath(p.secretPath))
	if err != nil {
		return webpush.VAPIDKeys{}, errors.WithStack(err)
	}
	if secret == nil {
		return webpush.VAPIDKeys{}, errors.Errorf("vault secret %v not found", p.secretPath)
	}

	data, err := getKVv2SecretData(secret)
	if err != nil {
		return webpush.VAPIDKeys{}, err
	}

	fields := make(map[string]string, len(data))
	for k, v := range data {
		if s, ok := v.(string); ok {
			fields[k] = s
		}
	}
	return keysFromSecretData(fields)
}

func absVaultSecretPath(path string) string {
	return kvStoragePath + "/data/" + strings.TrimPrefix(path, "/")
}

// extract data map from Secret for kv v2 storage (secret.Data["data"])
func getKVv2SecretData(secret *api.Secret) (map[string]interface{}, error) {
	if secret.Data == nil {
		return nil, errors.New("secret data is empty")
	}
	raw, ok := secret.Data["data"]
	if !ok {
		return nil, errors.New("secret data is missing the kv v2 data section")
	}
	data, ok := raw.(map[string]interface{})
	if !ok {
		return nil, errors.Errorf("unexpected kv v2 data section format: %T", raw)
	}
	return data, nil
}
