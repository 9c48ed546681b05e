package config

const (
	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvStoreDriver = "STORE_DRIVER"

	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPostgresDSN = "POSTGRES_DSN"

	EnvJWTSecret       = "JWT_SECRET"
	EnvServiceTokenTTL = "SERVICE_TOKEN_TTL"

	EnvUsersServiceURL        = "USERS_SERVICE_URL"
	EnvCatalogServiceURL      = "CATALOG_SERVICE_URL"
	EnvNotificationServiceURL = "NOTIFICATION_SERVICE_URL"
	EnvPaymentServiceURL      = "PAYMENT_SERVICE_URL"
	EnvCollaboratorTimeout    = "COLLABORATOR_TIMEOUT"

	EnvKafkaEnabled          = "KAFKA_ENABLED"
	EnvNotificationTransport = "NOTIFICATION_TRANSPORT"

	EnvCancellationWindow      = "CANCELLATION_WINDOW"
	EnvCancellationWindowScope = "CANCELLATION_WINDOW_SCOPE"
	EnvPaymentFailurePolicy    = "PAYMENT_FAILURE_POLICY"
	EnvDefaultCurrency         = "DEFAULT_CURRENCY"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
