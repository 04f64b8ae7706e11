package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment   string              `mapstructure:"environment"`
	AppURL        string              `mapstructure:"app_url"`
	Server        ServerConfig        `mapstructure:"server"`
	PrestaShop    PrestaShopConfig    `mapstructure:"prestashop"`
	Stripe        StripeConfig        `mapstructure:"stripe"`
	PayU          PayUConfig          `mapstructure:"payu"`
	InPost        InPostConfig        `mapstructure:"inpost"`
	Furgonetka    FurgonetkaConfig    `mapstructure:"furgonetka"`
	Checkout      CheckoutConfig      `mapstructure:"checkout"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type PrestaShopConfig struct {
	URL        string        `mapstructure:"url"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	LanguageID int           `mapstructure:"language_id"`
	CurrencyID int           `mapstructure:"currency_id"`
	CountryID  int           `mapstructure:"country_id"`
}

type StripeConfig struct {
	SecretKey      string `mapstructure:"secret_key"`
	PublishableKey string `mapstructure:"publishable_key"`
	WebhookSecret  string `mapstructure:"webhook_secret"`
}

type PayUConfig struct {
	PosID             string `mapstructure:"pos_id"`
	SecondKey         string `mapstructure:"second_key"`
	OAuthClientID     string `mapstructure:"oauth_client_id"`
	OAuthClientSecret string `mapstructure:"oauth_client_secret"`
	Sandbox           bool   `mapstructure:"sandbox"`
}

type InPostConfig struct {
	APIToken       string `mapstructure:"api_token"`
	OrganizationID string `mapstructure:"organization_id"`
	Sandbox        bool   `mapstructure:"sandbox"`
}

type FurgonetkaConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Sandbox      bool   `mapstructure:"sandbox"`
}

type CheckoutConfig struct {
	DefaultShippingMethod string         `mapstructure:"default_shipping_method"`
	DefaultCarrierID      int            `mapstructure:"default_carrier_id"`
	CarrierIDs            map[string]int `mapstructure:"carrier_ids"`
	IdempotencyTTL        time.Duration  `mapstructure:"idempotency_ttl"`
}

type RedisConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	DB                int           `mapstructure:"db"`
	Password          string        `mapstructure:"password"`
	ConnectRetries    int           `mapstructure:"connect_retries"`
	ConnectRetryDelay time.Duration `mapstructure:"connect_retry_delay"`
}

type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	EnableMetrics  bool   `mapstructure:"enable_metrics"`
	EnableTracing  bool   `mapstructure:"enable_tracing"`
}

func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("CHECKOUT")
	v.AutomaticEnv()
	bindLegacyEnv(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/checkout-gateway")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// bindLegacyEnv keeps the flat env var names the storefront deployments
// already use, alongside the CHECKOUT_* prefixed ones.
func bindLegacyEnv(v *viper.Viper) {
	v.BindEnv("environment", "ENV", "NODE_ENV")
	v.BindEnv("app_url", "APP_URL")
	v.BindEnv("prestashop.url", "PRESTASHOP_URL")
	v.BindEnv("prestashop.api_key", "PRESTASHOP_API_KEY")
	v.BindEnv("stripe.secret_key", "STRIPE_SECRET_KEY")
	v.BindEnv("stripe.publishable_key", "STRIPE_PUBLISHABLE_KEY")
	v.BindEnv("stripe.webhook_secret", "STRIPE_WEBHOOK_SECRET")
	v.BindEnv("payu.pos_id", "PAYU_POS_ID")
	v.BindEnv("payu.second_key", "PAYU_SECOND_KEY")
	v.BindEnv("payu.oauth_client_id", "PAYU_OAUTH_CLIENT_ID")
	v.BindEnv("payu.oauth_client_secret", "PAYU_OAUTH_CLIENT_SECRET")
	v.BindEnv("payu.sandbox", "PAYU_SANDBOX")
	v.BindEnv("inpost.api_token", "INPOST_API_TOKEN")
	v.BindEnv("inpost.organization_id", "INPOST_ORGANIZATION_ID")
	v.BindEnv("inpost.sandbox", "INPOST_SANDBOX")
	v.BindEnv("furgonetka.client_id", "FURGONETKA_CLIENT_ID")
	v.BindEnv("furgonetka.client_secret", "FURGONETKA_CLIENT_SECRET")
	v.BindEnv("furgonetka.username", "FURGONETKA_USERNAME")
	v.BindEnv("furgonetka.password", "FURGONETKA_PASSWORD")
	v.BindEnv("furgonetka.sandbox", "FURGONETKA_SANDBOX")
}

// IsProduction reports whether the service runs with production semantics.
// Controls, among other things, whether PayU webhooks without verification
// material are rejected outright.
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.read_timeout must be positive"))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.write_timeout must be positive"))
	}
	if c.Checkout.DefaultShippingMethod == "" {
		errs = append(errs, fmt.Errorf("checkout.default_shipping_method is required"))
	}
	if c.Redis.Enabled && c.Redis.Port <= 0 {
		errs = append(errs, fmt.Errorf("redis.port must be positive"))
	}

	if c.IsProduction() {
		if c.PrestaShop.URL == "" {
			errs = append(errs, fmt.Errorf("prestashop.url required in production"))
		}
		if c.PrestaShop.APIKey == "" {
			errs = append(errs, fmt.Errorf("prestashop.api_key required in production"))
		}
		if c.PayU.PosID != "" && c.PayU.SecondKey == "" {
			errs = append(errs, fmt.Errorf("payu.second_key required in production when payu is configured"))
		}
	}

	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.cors.allow_credentials", false)

	// PrestaShop defaults (Polish storefront)
	v.SetDefault("prestashop.timeout", "30s")
	v.SetDefault("prestashop.language_id", 1)
	v.SetDefault("prestashop.currency_id", 1)
	v.SetDefault("prestashop.country_id", 14) // Poland

	// Checkout defaults
	v.SetDefault("checkout.default_shipping_method", "dpd_courier")
	v.SetDefault("checkout.default_carrier_id", 1)
	v.SetDefault("checkout.idempotency_ttl", "24h")

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.connect_retries", 5)
	v.SetDefault("redis.connect_retry_delay", "1s")

	// Observability defaults
	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.enable_tracing", false)
}

func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
