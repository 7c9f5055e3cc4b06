package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Backend       BackendConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	GCP           GCPConfig
	Firebase      FirebaseConfig
	GCS           GCSConfig
	Media         MediaConfig
	Storefront    StorefrontConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"AGRISTORE_APP_ENV" required:"true"`
	Port         string `envconfig:"AGRISTORE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"AGRISTORE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"AGRISTORE_LOG_WARN_STACK" default:"false"`
	CORSOrigins  string `envconfig:"AGRISTORE_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AllowedOrigins splits the comma separated CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(a.CORSOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// BackendConfig selects the managed backend implementation.
type BackendConfig struct {
	Driver string `envconfig:"AGRISTORE_BACKEND_DRIVER" default:"firebase"`
}

func (b BackendConfig) IsMemory() bool {
	return strings.EqualFold(strings.TrimSpace(b.Driver), BackendDriverMemory)
}

type RedisConfig struct {
	URL          string        `envconfig:"AGRISTORE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"AGRISTORE_REDIS_ADDR"`
	Password     string        `envconfig:"AGRISTORE_REDIS_PASSWORD"`
	DB           int           `envconfig:"AGRISTORE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AGRISTORE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AGRISTORE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AGRISTORE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AGRISTORE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AGRISTORE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"AGRISTORE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"AGRISTORE_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"AGRISTORE_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"AGRISTORE_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// AccessTokenTTL is the lifetime of a minted access token.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

// PasswordConfig tunes argon2id for the in-memory identity provider.
type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"AGRISTORE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"AGRISTORE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"AGRISTORE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"AGRISTORE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"AGRISTORE_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"AGRISTORE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"AGRISTORE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"AGRISTORE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"AGRISTORE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"AGRISTORE_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"AGRISTORE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"AGRISTORE_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"AGRISTORE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"AGRISTORE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type FirebaseConfig struct {
	// WebAPIKey authorizes password sign-in against the Identity Toolkit.
	WebAPIKey   string `envconfig:"AGRISTORE_FIREBASE_WEB_API_KEY"`
	DatabaseID  string `envconfig:"AGRISTORE_FIRESTORE_DATABASE_ID" default:"(default)"`
	EmulatorEnv bool   `envconfig:"AGRISTORE_FIREBASE_EMULATOR" default:"false"`
}

type GCSConfig struct {
	BucketName    string `envconfig:"AGRISTORE_GCS_BUCKET_NAME"`
	PublicBaseURL string `envconfig:"AGRISTORE_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
}

type MediaConfig struct {
	MaxUploadMB int    `envconfig:"AGRISTORE_MAX_UPLOAD_MB" default:"10"`
	ImagePrefix string `envconfig:"AGRISTORE_MEDIA_IMAGE_PREFIX" default:"product_images"`
}

// MaxUploadBytes converts the configured megabyte limit.
func (m MediaConfig) MaxUploadBytes() int64 {
	if m.MaxUploadMB <= 0 {
		return 10 << 20
	}
	return int64(m.MaxUploadMB) << 20
}

// StorefrontConfig carries the shop contact used for WhatsApp handoffs.
type StorefrontConfig struct {
	WhatsAppOrderPhone   string `envconfig:"AGRISTORE_WHATSAPP_ORDER_PHONE" default:"6285173342484"`
	WhatsAppInquiryPhone string `envconfig:"AGRISTORE_WHATSAPP_INQUIRY_PHONE" default:"6281234567890"`
}

func (c *Config) validate() error {
	if c.Backend.IsMemory() {
		return nil
	}
	if !strings.EqualFold(strings.TrimSpace(c.Backend.Driver), BackendDriverFirebase) {
		return fmt.Errorf("unsupported %s %q", EnvBackendDriver, c.Backend.Driver)
	}

	missing := []string{}
	required := map[string]string{
		EnvGCPProjectID:      c.GCP.ProjectID,
		EnvGCSBucket:         c.GCS.BucketName,
		EnvFirebaseWebAPIKey: c.Firebase.WebAPIKey,
	}
	for _, env := range firebaseEnvVars {
		if strings.TrimSpace(required[env]) == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s=%s requires %s", EnvBackendDriver, BackendDriverFirebase, strings.Join(missing, ", "))
	}
	return nil
}
