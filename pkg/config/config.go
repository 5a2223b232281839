package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "CLASSPULSE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv                 = "CLASSPULSE_APP_ENV"
	EnvPort                   = "CLASSPULSE_APP_PORT"
	EnvDBDSN                  = "CLASSPULSE_DB_DSN"
	EnvDBHost                 = "CLASSPULSE_DB_HOST"
	EnvDBUser                 = "CLASSPULSE_DB_USER"
	EnvDBName                 = "CLASSPULSE_DB_NAME"
	EnvRedisURL               = "CLASSPULSE_REDIS_URL"
	EnvJWTSecret              = "CLASSPULSE_JWT_SECRET"
	EnvJWTIssuer              = "CLASSPULSE_JWT_ISSUER"
	EnvJWTExpMins             = "CLASSPULSE_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "CLASSPULSE_REFRESH_TOKEN_TTL_MINUTES"
	EnvGoogleClientID         = "CLASSPULSE_GOOGLE_CLIENT_ID"
	EnvGCPProjectID           = "CLASSPULSE_GCP_PROJECT_ID"
	EnvPubSubAttendanceTopic  = "CLASSPULSE_PUBSUB_ATTENDANCE_TOPIC"
	EnvPubSubAttendanceSub    = "CLASSPULSE_PUBSUB_ATTENDANCE_SUBSCRIPTION"
	EnvPubSubNotificationsTop = "CLASSPULSE_PUBSUB_NOTIFICATION_TOPIC"
	EnvPubSubNotificationsSub = "CLASSPULSE_PUBSUB_NOTIFICATION_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Google        GoogleConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	Outbox        OutboxConfig
	Rankings      RankingsConfig
	Attendance    AttendanceConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CLASSPULSE_APP_ENV" required:"true"`
	Port         string `envconfig:"CLASSPULSE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CLASSPULSE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CLASSPULSE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"CLASSPULSE_DB_DSN"`
	Driver string `envconfig:"CLASSPULSE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CLASSPULSE_DB_HOST"`
	LegacyPort     int    `envconfig:"CLASSPULSE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CLASSPULSE_DB_USER"`
	LegacyPassword string `envconfig:"CLASSPULSE_DB_PASSWORD"`
	LegacyName     string `envconfig:"CLASSPULSE_DB_NAME"`
	LegacySSLMode  string `envconfig:"CLASSPULSE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CLASSPULSE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CLASSPULSE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CLASSPULSE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CLASSPULSE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CLASSPULSE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CLASSPULSE_REDIS_ADDR"`
	Password     string        `envconfig:"CLASSPULSE_REDIS_PASSWORD"`
	DB           int           `envconfig:"CLASSPULSE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CLASSPULSE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CLASSPULSE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CLASSPULSE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CLASSPULSE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CLASSPULSE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"CLASSPULSE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"CLASSPULSE_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"CLASSPULSE_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"CLASSPULSE_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"CLASSPULSE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"CLASSPULSE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"CLASSPULSE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"CLASSPULSE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"CLASSPULSE_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"CLASSPULSE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"CLASSPULSE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"CLASSPULSE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"CLASSPULSE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"CLASSPULSE_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"CLASSPULSE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CLASSPULSE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CLASSPULSE_AUTO_MIGRATE" default:"false"`
}

// GoogleConfig configures verification of Google Sign-In ID tokens.
type GoogleConfig struct {
	ClientID string `envconfig:"CLASSPULSE_GOOGLE_CLIENT_ID"`
	Issuer   string `envconfig:"CLASSPULSE_GOOGLE_ISSUER" default:"https://accounts.google.com"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"CLASSPULSE_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"CLASSPULSE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"CLASSPULSE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	AttendanceTopic          string `envconfig:"CLASSPULSE_PUBSUB_ATTENDANCE_TOPIC" required:"true"`
	AttendanceSubscription   string `envconfig:"CLASSPULSE_PUBSUB_ATTENDANCE_SUBSCRIPTION" required:"true"`
	NotificationTopic        string `envconfig:"CLASSPULSE_PUBSUB_NOTIFICATION_TOPIC" default:"cp-notification-events"`
	NotificationSubscription string `envconfig:"CLASSPULSE_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type BigQueryConfig struct {
	Dataset              string `envconfig:"CLASSPULSE_BIGQUERY_DATASET" default:"classpulse"`
	AttendanceFactsTable string `envconfig:"CLASSPULSE_BIGQUERY_ATTENDANCE_TABLE" default:"attendance_facts"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"CLASSPULSE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollInterval   time.Duration `envconfig:"CLASSPULSE_OUTBOX_PUBLISH_POLL_INTERVAL" default:"500ms"`
	MaxAttempts    int           `envconfig:"CLASSPULSE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int           `envconfig:"CLASSPULSE_OUTBOX_RETENTION_DAYS" default:"14"`
	IdempotencyTTL time.Duration `envconfig:"CLASSPULSE_OUTBOX_IDEMPOTENCY_TTL" default:"720h"`
}

type RankingsConfig struct {
	CacheTTL time.Duration `envconfig:"CLASSPULSE_RANKINGS_CACHE_TTL" default:"10m"`
}

type AttendanceConfig struct {
	IdempotencyTTL time.Duration `envconfig:"CLASSPULSE_ATTENDANCE_IDEMPOTENCY_TTL" default:"24h"`
}

type CronConfig struct {
	SessionAutocloseInterval    time.Duration `envconfig:"CLASSPULSE_CRON_SESSION_AUTOCLOSE_INTERVAL" default:"1m"`
	RankingRefreshInterval      time.Duration `envconfig:"CLASSPULSE_CRON_RANKING_REFRESH_INTERVAL" default:"10m"`
	NotificationCleanupInterval time.Duration `envconfig:"CLASSPULSE_CRON_NOTIFICATION_CLEANUP_INTERVAL" default:"1h"`
	OutboxRetentionInterval     time.Duration `envconfig:"CLASSPULSE_CRON_OUTBOX_RETENTION_INTERVAL" default:"1h"`
	NotificationRetentionDays   int           `envconfig:"CLASSPULSE_NOTIFICATION_RETENTION_DAYS" default:"90"`
	LockTTL                     time.Duration `envconfig:"CLASSPULSE_CRON_LOCK_TTL" default:"5m"`
}

func (db *DBConfig) ensureDSN() error {
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
