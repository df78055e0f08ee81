package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/schedly/push-gateway/internal/kms"
	"github.com/schedly/push-gateway/internal/log"
)

// Configuration holds the project configuration
type Configuration struct {
	ServerUrl  string
	ServerPort int
	Log        Log      `mapstructure:"Log"`
	Cache      Cache    `mapstructure:"Cache"`
	KeyStore   KeyStore `mapstructure:"KeyStore"`
	Vapid      Vapid    `mapstructure:"Vapid"`
	Push       Push     `mapstructure:"Push"`
}

// Log holds runtime logging configuration
//
// Level: The minimum log level to show on logs. Values can be
//
//	 -4: Debug
//		0: Info
//		4: Warning
//		8: Error
//
// Mode: Log mode is the format of the log
// 1: JSON
// 2: Text
type Log struct {
	Level int `mapstructure:"Level" tip:"Minimum level to log: (-4:Debug, 0:Info, 4:Warning, 8:Error)"`
	Mode  int `mapstructure:"Mode" tip:"Log format (1: JSON, 2: Structured text)"`
}

// Cache configuration
type Cache struct {
	RedisUrl string `mapstructure:"RedisUrl" tip:"The redis url used for the cache and the pubsub"`
}

// KeyStore selects and configures the backend the VAPID key pair is read from.
// Provider is one of local, vault or aws-sm.
type KeyStore struct {
	Provider        string `mapstructure:"Provider" tip:"VAPID key backend: local, vault or aws-sm"`
	VaultAddress    string `mapstructure:"VaultAddress" tip:"Vault address"`
	VaultToken      string `mapstructure:"VaultToken" tip:"Vault access token"`
	VaultSecretPath string `mapstructure:"VaultSecretPath" tip:"Path of the kv v2 secret holding the VAPID pair"`
	AWSAccessKey    string `mapstructure:"AWSAccessKey" tip:"AWS access key"`
	AWSSecretKey    string `mapstructure:"AWSSecretKey" tip:"AWS secret key"`
	AWSRegion       string `mapstructure:"AWSRegion" tip:"AWS region (local points to localstack)"`
	AWSSecretName   string `mapstructure:"AWSSecretName" tip:"Secrets Manager secret holding the VAPID pair"`
}

// Vapid is the signing identity used with the local keystore provider
type Vapid struct {
	PublicKey  string `mapstructure:"PublicKey" tip:"base64url 65 byte uncompressed P-256 point"`
	PrivateKey string `mapstructure:"PrivateKey" tip:"base64url 32 byte scalar"`
	Subject    string `mapstructure:"Subject" tip:"Contact URI presented to push services (mailto: or https:)"`
}

// Push tunes outgoing push requests
type Push struct {
	TTL           int           `mapstructure:"TTL" tip:"Seconds the push service may retain a message"`
	Urgency       string        `mapstructure:"Urgency" tip:"Urgency header: very-low, low, normal or high. Empty omits the header"`
	Timeout       time.Duration `mapstructure:"Timeout" tip:"Per-send http timeout"`
	AsyncDelivery bool          `mapstructure:"AsyncDelivery" tip:"Queue sends through the pubsub worker instead of sending inline"`
}

// Sanitize performs some basic checks and sanitizations in the configuration.
// Returns nil if config is acceptable, error otherwise.
func (c *Configuration) Sanitize(ctx context.Context) error {
	if c.ServerPort == 0 {
		return fmt.Errorf("serverPort is required")
	}
	if _, err := url.Parse(c.ServerUrl); c.ServerUrl != "" && err != nil {
		return fmt.Errorf("serverUrl is not a valid URL <%s>: %w", c.ServerUrl, err)
	}

	switch c.KeyStore.Provider {
	case kms.ProviderLocal:
		// Key shape is validated by the provider itself, but an obviously empty
		// pair is a configuration mistake worth naming here.
		if c.Vapid.PublicKey == "" || c.Vapid.PrivateKey == "" {
			return fmt.Errorf("keystore provider is local but the Vapid key pair is not configured")
		}
	case kms.ProviderVault:
		if c.KeyStore.VaultAddress == "" || c.KeyStore.VaultSecretPath == "" {
			return fmt.Errorf("keystore provider is vault but VaultAddress or VaultSecretPath is missing")
		}
	case kms.ProviderAWS:
		if c.KeyStore.AWSRegion == "" || c.KeyStore.AWSSecretName == "" {
			return fmt.Errorf("keystore provider is aws-sm but AWSRegion or AWSSecretName is missing")
		}
	default:
		return fmt.Errorf("unknown keystore provider <%s>", c.KeyStore.Provider)
	}

	if c.Push.TTL < 0 {
		return fmt.Errorf("push TTL cannot be negative")
	}
	switch c.Push.Urgency {
	case "", "very-low", "low", "normal", "high":
	default:
		log.Warn(ctx, "unknown push urgency, push services may reject it", "urgency", c.Push.Urgency)
	}

	return nil
}

// Load loads the configuration from a file, with environment variables taking
// precedence. An empty fileName loads the default config file.
func Load(fileName string) (*Configuration, error) {
	bindEnv()
	pathFlag := viper.GetString("config")
	if _, err := os.Stat(pathFlag); err == nil {
		ext := filepath.Ext(pathFlag)
		if len(ext) > 1 {
			ext = ext[1:]
		}
		name := strings.Split(filepath.Base(pathFlag), ".")[0]
		viper.AddConfigPath(".")
		viper.SetConfigName(name)
		viper.SetConfigType(ext)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("toml")
		if fileName == "" {
			viper.SetConfigName("config")
		} else {
			viper.SetConfigName(fileName)
		}
	}

	config := &Configuration{
		Log: Log{
			Level: log.LevelDebug,
			Mode:  log.OutputText,
		},
		KeyStore: KeyStore{
			Provider: kms.ProviderLocal,
		},
	}
	ctx := context.Background()
	if err := viper.ReadInConfig(); err != nil {
		log.Info(ctx, "config file not loaded, relying on env vars", "err", err)
	}
	if err := viper.Unmarshal(config); err != nil {
		return nil, err
	}
	return config, nil
}

func bindEnv() {
	viper.SetEnvPrefix("PUSHGATEWAY")
	_ = viper.BindEnv("ServerUrl", "PUSHGATEWAY_SERVER_URL")
	_ = viper.BindEnv("ServerPort", "PUSHGATEWAY_SERVER_PORT")

	_ = viper.BindEnv("Log.Level", "PUSHGATEWAY_LOG_LEVEL")
	_ = viper.BindEnv("Log.Mode", "PUSHGATEWAY_LOG_MODE")

	_ = viper.BindEnv("Cache.RedisUrl", "PUSHGATEWAY_REDIS_URL")

	_ = viper.BindEnv("KeyStore.Provider", "PUSHGATEWAY_KEY_STORE_PROVIDER")
	_ = viper.BindEnv("KeyStore.VaultAddress", "PUSHGATEWAY_KEY_STORE_VAULT_ADDRESS")
	_ = viper.BindEnv("KeyStore.VaultToken", "PUSHGATEWAY_KEY_STORE_VAULT_TOKEN")
	_ = viper.BindEnv("KeyStore.VaultSecretPath", "PUSHGATEWAY_KEY_STORE_VAULT_SECRET_PATH")
	_ = viper.BindEnv("KeyStore.AWSAccessKey", "PUSHGATEWAY_KEY_STORE_AWS_ACCESS_KEY")
	_ = viper.BindEnv("KeyStore.AWSSecretKey", "PUSHGATEWAY_KEY_STORE_AWS_SECRET_KEY")
	_ = viper.BindEnv("KeyStore.AWSRegion", "PUSHGATEWAY_KEY_STORE_AWS_REGION")
	_ = viper.BindEnv("KeyStore.AWSSecretName", "PUSHGATEWAY_KEY_STORE_AWS_SECRET_NAME")

	_ = viper.BindEnv("Vapid.PublicKey", "PUSHGATEWAY_VAPID_PUBLIC_KEY")
	_ = viper.BindEnv("Vapid.PrivateKey", "PUSHGATEWAY_VAPID_PRIVATE_KEY")
	_ = viper.BindEnv("Vapid.Subject", "PUSHGATEWAY_VAPID_SUBJECT")

	_ = viper.BindEnv("Push.TTL", "PUSHGATEWAY_PUSH_TTL")
	_ = viper.BindEnv("Push.Urgency", "PUSHGATEWAY_PUSH_URGENCY")
	_ = viper.BindEnv("Push.Timeout", "PUSHGATEWAY_PUSH_TIMEOUT")
	_ = viper.BindEnv("Push.AsyncDelivery", "PUSHGATEWAY_PUSH_ASYNC_DELIVERY")
}
