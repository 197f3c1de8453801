package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Defaults      DefaultsConfig
	Frontend      FrontendConfig
	Reset         ResetConfig
	Booking       BookingConfig
	GCP           GCPConfig
	GCS           GCSConfig
	PubSub        PubSubConfig
	Resend        ResendConfig
	Outbox        OutboxConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"KRC_APP_ENV" required:"true"`
	Port         string `envconfig:"KRC_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"KRC_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"KRC_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"KRC_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"KRC_DB_DSN"`
	Driver string `envconfig:"KRC_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"KRC_DB_HOST"`
	LegacyPort     int    `envconfig:"KRC_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"KRC_DB_USER"`
	LegacyPassword string `envconfig:"KRC_DB_PASSWORD"`
	LegacyName     string `envconfig:"KRC_DB_NAME"`
	LegacySSLMode  string `envconfig:"KRC_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"KRC_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"KRC_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"KRC_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"KRC_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"KRC_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"KRC_REDIS_URL" required:"true"`
	Address      string        `envconfig:"KRC_REDIS_ADDR"`
	Password     string        `envconfig:"KRC_REDIS_PASSWORD"`
	DB           int           `envconfig:"KRC_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"KRC_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"KRC_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"KRC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"KRC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"KRC_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"KRC_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"KRC_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"KRC_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"KRC_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"KRC_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"KRC_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"KRC_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"KRC_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"KRC_ARGON_KEY_LEN" default:"32"`
	MinLength        int `envconfig:"KRC_PASSWORD_MIN_LENGTH" default:"6"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"KRC_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"KRC_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"KRC_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"KRC_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"KRC_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"KRC_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	ResetWindow        time.Duration `envconfig:"KRC_AUTH_RATE_LIMIT_RESET_WINDOW" default:"15m"`
	ResetEmailLimit    int           `envconfig:"KRC_AUTH_RATE_LIMIT_RESET_EMAIL_LIMIT" default:"3"`
	ResetIPLimit       int           `envconfig:"KRC_AUTH_RATE_LIMIT_RESET_IP_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	UseSQLite    bool `envconfig:"KRC_USE_SQLITE" default:"false"`
	AutoMigrate  bool `envconfig:"KRC_AUTO_MIGRATE" default:"false"`
	UploadPhotos bool `envconfig:"KRC_UPLOAD_PHOTOS" default:"true"`
}

// DefaultsConfig holds the process-wide business defaults. Services receive a
// copy at construction time.
type DefaultsConfig struct {
	Company          string `envconfig:"KRC_DEFAULT_COMPANY" default:"Krishna Royal Club"`
	Territory        string `envconfig:"KRC_DEFAULT_TERRITORY" default:"All Territories"`
	ItemGroup        string `envconfig:"KRC_DEFAULT_ITEM_GROUP" default:"Services"`
	SellingPriceList string `envconfig:"KRC_DEFAULT_SELLING_PRICE_LIST"`
	Country          string `envconfig:"KRC_DEFAULT_COUNTRY" default:"India"`
	CustomerGroup    string `envconfig:"KRC_DEFAULT_CUSTOMER_GROUP" default:"Individual"`
	CustomerType     string `envconfig:"KRC_DEFAULT_CUSTOMER_TYPE" default:"Individual"`
	UOM              string `envconfig:"KRC_DEFAULT_UOM" default:"Day"`
}

type FrontendConfig struct {
	BaseURL string `envconfig:"KRC_FRONTEND_URL" default:"http://localhost:3000"`
}

type ResetConfig struct {
	TokenLength int           `envconfig:"KRC_RESET_TOKEN_LENGTH" default:"32"`
	TokenTTL    time.Duration `envconfig:"KRC_RESET_TOKEN_TTL" default:"24h"`
}

type BookingConfig struct {
	CustomerLockTTL  time.Duration `envconfig:"KRC_BOOKING_CUSTOMER_LOCK_TTL" default:"30s"`
	CustomerLockWait time.Duration `envconfig:"KRC_BOOKING_CUSTOMER_LOCK_WAIT" default:"3s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"KRC_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"KRC_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"KRC_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName    string `envconfig:"KRC_GCS_BUCKET_NAME"`
	PublicBaseURL string `envconfig:"KRC_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
	PhotoPrefix   string `envconfig:"KRC_GCS_PHOTO_PREFIX" default:"guest-onboarding"`
	MaxPhotoMB    int    `envconfig:"KRC_GCS_MAX_PHOTO_MB" default:"10"`
}

type PubSubConfig struct {
	DomainTopic string `envconfig:"KRC_PUBSUB_DOMAIN_TOPIC" default:"krc-domain-events"`
}

type ResendConfig struct {
	APIKey      string `envconfig:"KRC_RESEND_API_KEY"`
	DefaultFrom string `envconfig:"KRC_RESEND_FROM_EMAIL" default:"Krishna Royal Club <no-reply@krishnaroyalclub.com>"`
}

// Enabled reports whether outbound email is configured.
func (r ResendConfig) Enabled() bool {
	return strings.TrimSpace(r.APIKey) != ""
}

type CronConfig struct {
	Interval                  time.Duration `envconfig:"KRC_CRON_INTERVAL" default:"1h"`
	LockTTL                   time.Duration `envconfig:"KRC_CRON_LOCK_TTL" default:"55m"`
	OutboxRetentionDays       int           `envconfig:"KRC_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
	NotificationRetentionDays int           `envconfig:"KRC_CRON_NOTIFICATION_RETENTION_DAYS" default:"90"`
	DLQRetentionDays          int           `envconfig:"KRC_CRON_DLQ_RETENTION_DAYS" default:"90"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"KRC_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"KRC_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"KRC_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DBDriverSQLite
		if db.DSN == "" {
			db.DSN = defaultSQLiteDSN
		}
		return nil
	}
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
