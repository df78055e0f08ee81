package kms

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/pkg/errors"

	"github.com/schedly/push-gateway/pkg/webpush"
)

// AwsKeyProviderConfig configures the AWS Secrets Manager backend.
// AccessKey and SecretKey are the AWS credentials.
type AwsKeyProviderConfig struct {
	AccessKey  string
	SecretKey  string
	Region     string
	SecretName string
}

type awsKeyProvider struct {
	secretManager *secretsmanager.Client
	secretName    string
}

// NewAwsKeyProvider returns a provider reading the VAPID pair from an AWS
// Secrets Manager secret holding a json document with public_key, private_key
// and subject.
func NewAwsKeyProvider(ctx context.Context, conf AwsKeyProviderConfig) (KeyProvider, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(conf.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(conf.AccessKey, conf.SecretKey, "")),
	)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var options []func(*secretsmanager.Options)
	if strings.ToLower(conf.Region) == "local" {
		options = append(options, func(o *secretsmanager.Options) {
			o.BaseEndpoint = aws.String("http://localhost:4566")
		})
	}

	return &awsKeyProvider{
		secretManager: secretsmanager.NewFromConfig(cfg, options...),
		secretName:    conf.SecretName,
	}, nil
}

// VAPIDKeys reads and validates the pair from secrets manager
func (p *awsKeyProvider) VAPIDKeys(ctx context.Context) (webpush.VAPIDKeys, error) {
	out, err := p.secretManager.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(p.secretName),
	})
	if err != nil {
		return webpush.VAPIDKeys{}, errors.WithStack(err)
	}
	if out.SecretString == nil {
		return webpush.VAPIDKeys{}, errors.Errorf("aws secret %v has no string value", p.secretName)
	}

	var fields map[string]string
	if err := json.Unmarshal([]byte(*out.SecretString), &fields); err != nil {
		return webpush.VAPIDKeys{}, errors.WithStack(err)
	}
	return keysFromSecretData(fields)
}
