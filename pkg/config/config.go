package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Scheduler    SchedulerConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
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
	Env          string `envconfig:"CARESUPPLY_APP_ENV" required:"true"`
	Port         string `envconfig:"CARESUPPLY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CARESUPPLY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CARESUPPLY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CARESUPPLY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CARESUPPLY_DB_DSN"`
	Driver string `envconfig:"CARESUPPLY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CARESUPPLY_DB_HOST"`
	LegacyPort     int    `envconfig:"CARESUPPLY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CARESUPPLY_DB_USER"`
	LegacyPassword string `envconfig:"CARESUPPLY_DB_PASSWORD"`
	LegacyName     string `envconfig:"CARESUPPLY_DB_NAME"`
	LegacySSLMode  string `envconfig:"CARESUPPLY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CARESUPPLY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CARESUPPLY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CARESUPPLY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CARESUPPLY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CARESUPPLY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CARESUPPLY_REDIS_ADDR"`
	Password     string        `envconfig:"CARESUPPLY_REDIS_PASSWORD"`
	DB           int           `envconfig:"CARESUPPLY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CARESUPPLY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CARESUPPLY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CARESUPPLY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CARESUPPLY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CARESUPPLY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"CARESUPPLY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CARESUPPLY_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"CARESUPPLY_JWT_EXPIRATION_MINUTES" required:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CARESUPPLY_AUTO_MIGRATE" default:"false"`
}

// SchedulerConfig tunes the daily cron worker.
type SchedulerConfig struct {
	Interval time.Duration `envconfig:"CARESUPPLY_SCHEDULER_INTERVAL" default:"24h"`
	LockTTL  time.Duration `envconfig:"CARESUPPLY_SCHEDULER_LOCK_TTL" default:"25h"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"CARESUPPLY_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	NotificationTopic string `envconfig:"CARESUPPLY_PUBSUB_NOTIFICATION_TOPIC" default:"cs-recurring-notices"`
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
