package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schedly/push-gateway/internal/cache"
	"github.com/schedly/push-gateway/internal/config"
	"github.com/schedly/push-gateway/internal/core/event"
	"github.com/schedly/push-gateway/internal/core/ports"
	"github.com/schedly/push-gateway/internal/core/services"
	"github.com/schedly/push-gateway/internal/gateways"
	"github.com/schedly/push-gateway/internal/kms"
	"github.com/schedly/push-gateway/internal/log"
	"github.com/schedly/push-gateway/internal/providers"
	"github.com/schedly/push-gateway/internal/pubsub"
	"github.com/schedly/push-gateway/internal/redis"
	httpClient "github.com/schedly/push-gateway/pkg/http"
	"github.com/schedly/push-gateway/pkg/webpush"
)

const defaultPushTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Error(context.Background(), "cannot load config", "err", err)
		return
	}

	ctx := log.NewContext(context.Background(), cfg.Log.Level, cfg.Log.Mode, os.Stdout)

	if err := cfg.Sanitize(ctx); err != nil {
		log.Error(ctx, "there are errors in the configuration that prevent server to start", "err", err)
		return
	}

	rdb, err := redis.Open(ctx, cfg.Cache.RedisUrl)
	if err != nil {
		log.Error(ctx, "cannot connect to redis", "err", err, "host", cfg.Cache.RedisUrl)
		return
	}

	cachex := cache.NewRedisCache(rdb)
	ps := pubsub.NewRedis(rdb).WithLogger(log.Error)

	notificationService, err := newNotificationService(ctx, cfg, cachex)
	if err != nil {
		log.Error(ctx, "cannot initialize the notification service", "err", err)
		return
	}

	ps.Subscribe(ctx, event.NotificationRequested, notificationService.HandleRequested)
	log.Info(ctx, "notification worker started", "topic", event.NotificationRequested)

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	<-gracefulShutdown
	log.Info(ctx, "shutting down")
}

func newNotificationService(ctx context.Context, cfg *config.Configuration, cachex cache.Cache) (ports.NotificationService, error) {
	keyProvider, err := newKeyProvider(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("cannot initialize the key provider: %w", err)
	}

	keys, err := keyProvider.VAPIDKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot load the VAPID key pair: %w", err)
	}
	if err := kms.Validate(keys); err != nil {
		return nil, fmt.Errorf("the VAPID key pair is not usable: %w", err)
	}

	timeout := cfg.Push.Timeout
	if timeout == 0 {
		timeout = defaultPushTimeout
	}
	pushGateway := gateways.NewPushGateway(keys, cachex, &http.Client{Timeout: timeout}, webpush.Options{
		TTL:     cfg.Push.TTL,
		Urgency: cfg.Push.Urgency,
	})
	reporter := gateways.NewWebhookReporter(httpClient.DefaultHTTPClientWithRetry)

	return services.NewNotification(pushGateway, reporter), nil
}

func newKeyProvider(ctx context.Context, cfg *config.Configuration) (kms.KeyProvider, error) {
	switch cfg.KeyStore.Provider {
	case kms.ProviderLocal:
		return kms.NewLocalKeyProvider(cfg.Vapid.PublicKey, cfg.Vapid.PrivateKey, cfg.Vapid.Subject), nil
	case kms.ProviderVault:
		vaultCli, err := providers.NewVaultClient(cfg.KeyStore.VaultAddress, cfg.KeyStore.VaultToken)
		if err != nil {
			return nil, fmt.Errorf("cannot init vault client: %w", err)
		}
		return kms.NewVaultKeyProvider(vaultCli, cfg.KeyStore.VaultSecretPath), nil
	case kms.ProviderAWS:
		return kms.NewAwsKeyProvider(ctx, kms.AwsKeyProviderConfig{
			AccessKey:  cfg.KeyStore.AWSAccessKey,
			SecretKey:  cfg.KeyStore.AWSSecretKey,
			Region:     cfg.KeyStore.AWSRegion,
			SecretName: cfg.KeyStore.AWSSecretName,
		})
	default:
		return nil, fmt.Errorf("unknown keystore provider <%s>", cfg.KeyStore.Provider)
	}
}
