package config

const EnvPrefix = "AGRISTORE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	BackendDriverFirebase = "firebase"
	BackendDriverMemory   = "memory"
)

const (
	EnvAppEnv                 = "AGRISTORE_APP_ENV"
	EnvPort                   = "AGRISTORE_APP_PORT"
	EnvBackendDriver          = "AGRISTORE_BACKEND_DRIVER"
	EnvRedisURL               = "AGRISTORE_REDIS_URL"
	EnvJWTSecret              = "AGRISTORE_JWT_SECRET"
	EnvJWTIssuer              = "AGRISTORE_JWT_ISSUER"
	EnvJWTExpMins             = "AGRISTORE_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "AGRISTORE_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCPProjectID           = "AGRISTORE_GCP_PROJECT_ID"
	EnvGCSBucket              = "AGRISTORE_GCS_BUCKET_NAME"
	EnvFirebaseWebAPIKey      = "AGRISTORE_FIREBASE_WEB_API_KEY"
	EnvMaxUploadMB            = "AGRISTORE_MAX_UPLOAD_MB"
	EnvWhatsAppOrderPhone     = "AGRISTORE_WHATSAPP_ORDER_PHONE"
)

var firebaseEnvVars = []string{
	EnvGCPProjectID,
	EnvGCSBucket,
	EnvFirebaseWebAPIKey,
}
