package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"healthmatch/pkg/client"
	"healthmatch/pkg/logger"

	"github.com/joho/godotenv"
)

const minJWTSecretLength = 16

type Config struct {
	ServiceName string
	Port        string

	StoreDriver string

	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	PostgresDSN string

	JWTSecret       string
	ServiceTokenTTL time.Duration

	UsersServiceURL        string
	CatalogServiceURL      string
	NotificationServiceURL string
	PaymentServiceURL      string
	CollaboratorTimeout    time.Duration

	KafkaEnabled          bool
	NotificationTransport string

	CancellationWindow      time.Duration
	CancellationWindowScope string
	PaymentFailurePolicy    string
	DefaultCurrency         string

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Log    *logger.Logger
	Client *client.Client
}

// Load reads an optional .env file, then the environment. Invalid configuration is fatal.
func Load(serviceName string) *Config {
	envFileErr := godotenv.Load()

	cfg := FromEnv(serviceName)
	cfg.Log = logger.New(logger.Config{
		Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
		Format:    logger.JSON,
		AddSource: true,
		Service:   serviceName,
	})
	cfg.Client = client.NewClient()

	if envFileErr != nil && !errors.Is(envFileErr, fs.ErrNotExist) {
		cfg.Log.Warn("Failed to read .env file", "error", envFileErr)
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// FromEnv builds a Config from environment variables without validating it.
func FromEnv(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Port:        getEnvStr(EnvPort, DefaultPort),

		StoreDriver: strings.ToLower(getEnvStr(EnvStoreDriver, DefaultStoreDriver)),

		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		PostgresDSN: getEnvStr(EnvPostgresDSN, DefaultPostgresDSN),

		JWTSecret:       getEnvStr(EnvJWTSecret, ""),
		ServiceTokenTTL: getEnvDuration(EnvServiceTokenTTL, DefaultServiceTokenTTL),

		UsersServiceURL:        strings.TrimRight(getEnvStr(EnvUsersServiceURL, DefaultUsersServiceURL), "/"),
		CatalogServiceURL:      strings.TrimRight(getEnvStr(EnvCatalogServiceURL, DefaultCatalogServiceURL), "/"),
		NotificationServiceURL: strings.TrimRight(getEnvStr(EnvNotificationServiceURL, DefaultNotificationServiceURL), "/"),
		PaymentServiceURL:      strings.TrimRight(getEnvStr(EnvPaymentServiceURL, DefaultPaymentServiceURL), "/"),
		CollaboratorTimeout:    getEnvDuration(EnvCollaboratorTimeout, DefaultCollaboratorTimeout),

		KafkaEnabled:          getEnvBool(EnvKafkaEnabled, DefaultKafkaEnabled),
		NotificationTransport: strings.ToLower(getEnvStr(EnvNotificationTransport, DefaultNotificationTransport)),

		CancellationWindow:      getEnvDuration(EnvCancellationWindow, DefaultCancellationWindow),
		CancellationWindowScope: strings.ToLower(getEnvStr(EnvCancellationWindowScope, DefaultCancellationWindowScope)),
		PaymentFailurePolicy:    strings.ToLower(getEnvStr(EnvPaymentFailurePolicy, DefaultPaymentFailurePolicy)),
		DefaultCurrency:         strings.ToLower(getEnvStr(EnvDefaultCurrency, DefaultCurrency)),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),
	}
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetPostgres() {
	cfg.Client.SetPostgres(cfg.Log, cfg.PostgresDSN)
}

// SetStore connects the backend selected by STORE_DRIVER.
func (cfg *Config) SetStore() {
	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		cfg.SetPostgres()
	default:
		cfg.SetMongo()
	}
}

func (cfg *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	switch cfg.StoreDriver {
	case StoreDriverMongo:
		if cfg.MongoURI == "" {
			errs = append(errs, "MongoURI cannot be empty")
		} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
			errs = append(errs, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
		}
		if cfg.MongoDatabaseName == "" {
			errs = append(errs, "MongoDatabaseName cannot be empty")
		}
		if cfg.MongoConnTimeout <= 0 {
			errs = append(errs, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
		}
	case StoreDriverPostgres:
		if !regexp.MustCompile(`^postgres(ql)?://`).MatchString(cfg.PostgresDSN) {
			errs = append(errs, "PostgresDSN must start with 'postgres://' or 'postgresql://'")
		}
	default:
		errs = append(errs, fmt.Sprintf("StoreDriver must be one of [%s, %s], got: %s", StoreDriverMongo, StoreDriverPostgres, cfg.StoreDriver))
	}

	if len(cfg.JWTSecret) < minJWTSecretLength {
		errs = append(errs, fmt.Sprintf("JWTSecret must be at least %d characters", minJWTSecretLength))
	}
	if cfg.ServiceTokenTTL <= 0 {
		errs = append(errs, fmt.Sprintf("ServiceTokenTTL must be positive, got: %s", cfg.ServiceTokenTTL))
	}

	urls := map[string]string{
		"UsersServiceURL":        cfg.UsersServiceURL,
		"CatalogServiceURL":      cfg.CatalogServiceURL,
		"NotificationServiceURL": cfg.NotificationServiceURL,
		"PaymentServiceURL":      cfg.PaymentServiceURL,
	}
	for _, name := range []string{"UsersServiceURL", "CatalogServiceURL", "NotificationServiceURL", "PaymentServiceURL"} {
		if !strings.HasPrefix(urls[name], "http://") && !strings.HasPrefix(urls[name], "https://") {
			errs = append(errs, fmt.Sprintf("%s must be an http(s) URL, got: %s", name, urls[name]))
		}
	}
	if cfg.CollaboratorTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("CollaboratorTimeout must be positive, got: %s", cfg.CollaboratorTimeout))
	}

	switch cfg.NotificationTransport {
	case TransportHTTP:
	case TransportKafka:
		if !cfg.KafkaEnabled {
			errs = append(errs, "NotificationTransport 'kafka' requires KAFKA_ENABLED=true")
		}
	default:
		errs = append(errs, fmt.Sprintf("NotificationTransport must be one of [%s, %s], got: %s", TransportHTTP, TransportKafka, cfg.NotificationTransport))
	}

	if cfg.CancellationWindow < 0 {
		errs = append(errs, fmt.Sprintf("CancellationWindow cannot be negative, got: %s", cfg.CancellationWindow))
	}
	if cfg.CancellationWindowScope != CancellationScopeCancelOnly && cfg.CancellationWindowScope != CancellationScopeAllUpdates {
		errs = append(errs, fmt.Sprintf("CancellationWindowScope must be one of [%s, %s], got: %s", CancellationScopeCancelOnly, CancellationScopeAllUpdates, cfg.CancellationWindowScope))
	}
	if cfg.PaymentFailurePolicy != PaymentPolicyCompensate && cfg.PaymentFailurePolicy != PaymentPolicyKeep {
		errs = append(errs, fmt.Sprintf("PaymentFailurePolicy must be one of [%s, %s], got: %s", PaymentPolicyCompensate, PaymentPolicyKeep, cfg.PaymentFailurePolicy))
	}
	if !regexp.MustCompile(`^[a-z]{3}$`).MatchString(cfg.DefaultCurrency) {
		errs = append(errs, fmt.Sprintf("DefaultCurrency must be a 3-letter ISO code, got: %s", cfg.DefaultCurrency))
	}

	if cfg.RequestTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errs = append(errs, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.MaxRequestSize <= 0 {
		errs = append(errs, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.ReadTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if len(errs) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errs {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"port", cfg.Port,
		"store_driver", cfg.StoreDriver,
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"postgres_dsn", redactPostgresDSN(cfg.PostgresDSN),
		"jwt_secret_set", cfg.JWTSecret != "",
		"service_token_ttl", cfg.ServiceTokenTTL,
		"users_service_url", cfg.UsersServiceURL,
		"catalog_service_url", cfg.CatalogServiceURL,
		"notification_service_url", cfg.NotificationServiceURL,
		"payment_service_url", cfg.PaymentServiceURL,
		"collaborator_timeout", cfg.CollaboratorTimeout,
		"kafka_enabled", cfg.KafkaEnabled,
		"notification_transport", cfg.NotificationTransport,
		"cancellation_window", cfg.CancellationWindow,
		"cancellation_window_scope", cfg.CancellationWindowScope,
		"payment_failure_policy", cfg.PaymentFailurePolicy,
		"default_currency", cfg.DefaultCurrency,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func redactPostgresDSN(dsn string) string {
	credentialRegex := regexp.MustCompile(`(postgres(ql)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(dsn, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		return DefaultPaginationLimit
	}
	return min(limit, MaxPaginationLimit)
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
