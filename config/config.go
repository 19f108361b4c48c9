package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full runtime configuration of the permit portal services.
type Config struct {
	Environment string         `mapstructure:"environment"`
	Server      ServerConfig   `mapstructure:"server"`
	Database    DatabaseConfig `mapstructure:"database"`
	Storage     StorageConfig  `mapstructure:"storage"`
	Lock        LockConfig     `mapstructure:"lock"`
	Workflow    WorkflowConfig `mapstructure:"workflow"`
	Logging     LoggingConfig  `mapstructure:"logging"`
	Auth        AuthConfig     `mapstructure:"auth"`
	Tracing     TracingConfig  `mapstructure:"tracing"`
}

type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	GinMode        string   `mapstructure:"gin_mode"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MaxUploadBytes int64    `mapstructure:"max_upload_bytes"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // mysql | memory
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	Name         string `mapstructure:"name"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	DebugSQL     bool   `mapstructure:"debug_sql"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// DSN returns the MySQL data source name.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local&clientFoundRows=true",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.Name,
	)
}

type StorageConfig struct {
	Driver        string `mapstructure:"driver"` // local | s3
	LocalRoot     string `mapstructure:"local_root"`
	PublicBaseURL string `mapstructure:"public_base_url"`
	S3Bucket      string `mapstructure:"s3_bucket"`
	S3Region      string `mapstructure:"s3_region"`
	S3Prefix      string `mapstructure:"s3_prefix"`
	S3Endpoint    string `mapstructure:"s3_endpoint"`
}

type LockConfig struct {
	Driver        string        `mapstructure:"driver"` // local | mysql | redis
	WaitTimeout   time.Duration `mapstructure:"wait_timeout"`
	TTL           time.Duration `mapstructure:"ttl"`
	RedisAddress  string        `mapstructure:"redis_address"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
}

type WorkflowConfig struct {
	PaymentWindow    time.Duration `mapstructure:"payment_window"`
	RenoticeWindow   time.Duration `mapstructure:"renotice_window"`
	RevisionWindow   time.Duration `mapstructure:"revision_window"`
	ReconcileEnabled bool          `mapstructure:"reconcile_enabled"`
	ReconcileCron    string        `mapstructure:"reconcile_cron"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json | console
	File   string `mapstructure:"file"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

// legacyEnv maps the env names used by earlier deployments onto config keys.
var legacyEnv = map[string]string{
	"environment":        "ENVIRONMENT",
	"server.port":        "SERVER_PORT",
	"server.gin_mode":    "GIN_MODE",
	"database.host":      "DB_HOST",
	"database.port":      "DB_PORT",
	"database.name":      "DB_DATABASE",
	"database.user":      "DB_USERNAME",
	"database.password":  "DB_PASSWORD",
	"database.debug_sql": "DEBUG_SQL",
	"storage.local_root": "UPLOAD_PATH",
	"auth.jwt_secret":    "JWT_SECRET",
}

// Load reads .env, config.yaml and config.<environment>.yaml, then environment
// overrides, and returns a validated Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range legacyEnv {
		if err := v.BindEnv(key, strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := strings.ToLower(v.GetString("environment"))
	v.SetConfigName("config." + env)
	_ = v.MergeInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.gin_mode", "debug")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.max_upload_bytes", 20<<20)
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", "3306")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.local_root", "./uploads")
	v.SetDefault("storage.public_base_url", "/files")
	v.SetDefault("storage.s3_bucket", "")
	v.SetDefault("storage.s3_region", "")
	v.SetDefault("storage.s3_prefix", "")
	v.SetDefault("storage.s3_endpoint", "")
	v.SetDefault("lock.driver", "local")
	v.SetDefault("lock.wait_timeout", 5*time.Second)
	v.SetDefault("lock.ttl", 2*time.Minute)
	v.SetDefault("lock.redis_address", "")
	v.SetDefault("lock.redis_password", "")
	v.SetDefault("lock.redis_db", 0)
	v.SetDefault("workflow.payment_window", 7*24*time.Hour)
	v.SetDefault("workflow.renotice_window", 3*24*time.Hour)
	v.SetDefault("workflow.revision_window", 14*24*time.Hour)
	v.SetDefault("workflow.reconcile_enabled", false)
	v.SetDefault("workflow.reconcile_cron", "*/15 * * * *")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file", LogFilePath())
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "permit-portal-api")
}

// Validate rejects combinations the services cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql":
		if c.Database.Name == "" {
			return errors.New("database.name is required for the mysql driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}

	switch c.Storage.Driver {
	case "local":
		if c.Storage.LocalRoot == "" {
			return errors.New("storage.local_root is required for the local driver")
		}
	case "s3":
		if c.Storage.S3Bucket == "" {
			return errors.New("storage.s3_bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("unsupported storage.driver %q", c.Storage.Driver)
	}

	switch c.Lock.Driver {
	case "local":
	case "mysql":
		if c.Database.Driver != "mysql" {
			return errors.New("lock.driver mysql requires database.driver mysql")
		}
	case "redis":
		if c.Lock.RedisAddress == "" {
			return errors.New("lock.redis_address is required for the redis driver")
		}
	default:
		return fmt.Errorf("unsupported lock.driver %q", c.Lock.Driver)
	}

	if c.Server.MaxUploadBytes <= 0 {
		return errors.New("server.max_upload_bytes must be positive")
	}
	if c.Workflow.PaymentWindow <= 0 || c.Workflow.RenoticeWindow <= 0 || c.Workflow.RevisionWindow <= 0 {
		return errors.New("workflow deadline windows must be positive")
	}
	return nil
}

// IsProduction reports whether the environment is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}
