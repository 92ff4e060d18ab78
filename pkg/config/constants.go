package config

// EnvPrefix namespaces every environment variable consumed by the service.
const EnvPrefix = "VENDORA"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "VENDORA_APP_ENV"
	EnvPort     = "VENDORA_APP_PORT"
	EnvDBDSN    = "VENDORA_DB_DSN"
	EnvDBHost   = "VENDORA_DB_HOST"
	EnvDBUser   = "VENDORA_DB_USER"
	EnvDBName   = "VENDORA_DB_NAME"
	EnvRedisURL = "VENDORA_REDIS_URL"

	EnvJWTSecret  = "VENDORA_JWT_SECRET"
	EnvJWTIssuer  = "VENDORA_JWT_ISSUER"
	EnvJWTExpMins = "VENDORA_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID = "VENDORA_GCP_PROJECT_ID"

	EnvPubSubSettlementTopic        = "VENDORA_PUBSUB_SETTLEMENT_TOPIC"
	EnvPubSubSettlementSubscription = "VENDORA_PUBSUB_SETTLEMENT_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
