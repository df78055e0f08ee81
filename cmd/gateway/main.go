package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/schedly/push-gateway/internal/api"
	"github.com/schedly/push-gateway/internal/cache"
	"github.com/schedly/push-gateway/internal/config"
	"github.com/schedly/push-gateway/internal/core/services"
	"github.com/schedly/push-gateway/internal/gateways"
	"github.com/schedly/push-gateway/internal/health"
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

	keyProvider, err := newKeyProvider(ctx, cfg)
	if err != nil {
		log.Error(ctx, "cannot initialize the key provider", "err", err, "provider", cfg.KeyStore.Provider)
		return
	}

	keys, err := keyProvider.VAPIDKeys(ctx)
	if err != nil {
		log.Error(ctx, "cannot load the VAPID key pair", "err", err, "provider", cfg.KeyStore.Provider)
		return
	}
	if err := kms.Validate(keys); err != nil {
		log.Error(ctx, "the VAPID key pair is not usable", "err", err)
		return
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
	notificationService := services.NewNotification(pushGateway, reporter)

	healthStatus := health.New(redis.NewWrapper(rdb))

	mux := chi.NewRouter()
	mux.Use(
		chiMiddlewares(ctx)...,
	)
	api.NewServer(cfg, notificationService, ps, healthStatus).Attach(mux)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: mux,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info(ctx, "server started", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "starting http server", "err", err)
		}
	}()

	<-quit
	log.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "shutting down http server", "err", err)
	}
}

func chiMiddlewares(ctx context.Context) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.Recoverer,
		cors.AllowAll().Handler,
		log.ChiMiddleware(ctx),
	}
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
