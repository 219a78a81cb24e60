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

const (
	StoreFile     = "file"
	StorePostgres = "postgres"

	HQNodeID = "hq"
)

type Config struct {
	AppEnv  string `mapstructure:"APP_ENV"`
	AppPort string `mapstructure:"APP_PORT"`

	// --- Узел ---
	NodeID      string `mapstructure:"NODE_ID"`
	DataDir     string `mapstructure:"DATA_DIR"`
	StoreDriver string `mapstructure:"STORE_DRIVER"`

	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     int    `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBScheme   string `mapstructure:"DB_SCHEME"`

	// --- Redis ---
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	// --- S3 ---
	S3Endpoint  string `mapstructure:"S3_ENDPOINT"`
	S3Region    string `mapstructure:"S3_REGION"`
	S3Bucket    string `mapstructure:"S3_BUCKET"`
	S3AccessKey string `mapstructure:"S3_ACCESS_KEY"`
	S3SecretKey string `mapstructure:"S3_SECRET_KEY"`
	S3UseSSL    bool   `mapstructure:"S3_USE_SSL"`
	S3PathStyle bool   `mapstructure:"S3_PATH_STYLE"`

	// --- Синхронизация с HQ ---
	HQURL        string        `mapstructure:"HQ_URL"`
	SyncInterval time.Duration `mapstructure:"SYNC_INTERVAL"`
	HTTPTimeout  time.Duration `mapstructure:"HTTP_TIMEOUT"`

	LogLevel string `mapstructure:"LOG_LEVEL"`
	LogFile  string `mapstructure:"LOG_FILE"`
}

// IsHQ — узел обслуживает hq.json
func (c *Config) IsHQ() bool {
	return c.NodeID == "" || strings.EqualFold(c.NodeID, HQNodeID)
}

// String реализует интерфейс Stringer
func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  AppEnv: %s\n", c.AppEnv))
	sb.WriteString(fmt.Sprintf("  AppPort: %s\n", c.AppPort))
	sb.WriteString(fmt.Sprintf("  NodeID: %s\n", c.NodeID))
	sb.WriteString(fmt.Sprintf("  DataDir: %s\n", c.DataDir))
	sb.WriteString(fmt.Sprintf("  StoreDriver: %s\n", c.StoreDriver))

	if c.StoreDriver == StorePostgres {
		sb.WriteString(fmt.Sprintf("  DBHost: %s\n", c.DBHost))
		sb.WriteString(fmt.Sprintf("  DBPort: %d\n", c.DBPort))
		sb.WriteString(fmt.Sprintf("  DBUser: %s\n", c.DBUser))
		sb.WriteString(fmt.Sprintf("  DBName: %s\n", c.DBName))
		sb.WriteString(fmt.Sprintf("  DBScheme: %s\n", c.DBScheme))
		sb.WriteString("  DBPassword: " + mask(c.DBPassword) + "\n")
	}

	sb.WriteString(fmt.Sprintf("  RedisAddr: %s\n", c.RedisAddr))
	sb.WriteString(fmt.Sprintf("  RedisDB: %d\n", c.RedisDB))
	sb.WriteString("  RedisPassword: " + mask(c.RedisPassword) + "\n")

	// S3
	sb.WriteString(fmt.Sprintf("  S3Endpoint: %s\n", c.S3Endpoint))
	sb.WriteString(fmt.Sprintf("  S3Region: %s\n", c.S3Region))
	sb.WriteString(fmt.Sprintf("  S3Bucket: %s\n", c.S3Bucket))
	sb.WriteString("  S3AccessKey: " + mask(c.S3AccessKey) + "\n")
	sb.WriteString("  S3SecretKey: " + mask(c.S3SecretKey) + "\n")
	sb.WriteString(fmt.Sprintf("  S3UseSSL: %v\n", c.S3UseSSL))
	sb.WriteString(fmt.Sprintf("  S3PathStyle: %v\n", c.S3PathStyle))

	sb.WriteString(fmt.Sprintf("  HQURL: %s\n", c.HQURL))
	sb.WriteString(fmt.Sprintf("  SyncInterval: %s\n", c.SyncInterval))
	sb.WriteString(fmt.Sprintf("  HTTPTimeout: %s\n", c.HTTPTimeout))
	sb.WriteString(fmt.Sprintf("  LogLevel: %s\n", c.LogLevel))
	sb.WriteString(fmt.Sprintf("  LogFile: %s\n", c.LogFile))

	return sb.String()
}

func mask(secret string) string {
	if secret == "" {
		return "(empty)"
	}
	return "********"
}

// LoadFromEnv загружает конфигурацию из переменных окружения
func LoadFromEnv() (*Config, error) {
	// Загружаем .env только для локальной разработки
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, errors.New("failed to load .env")
		}
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("APP_PORT", "3000")
	v.SetDefault("NODE_ID", HQNodeID)
	v.SetDefault("DATA_DIR", "data")
	v.SetDefault("STORE_DRIVER", StoreFile)
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("S3_BUCKET", "pos-backups")
	v.SetDefault("HQ_URL", "http://localhost:3000")
	v.SetDefault("SYNC_INTERVAL", "0s")
	v.SetDefault("HTTP_TIMEOUT", "15s")
	v.SetDefault("LOG_LEVEL", "info")

	// Регистрируем интересующие ключи окружения
	keys := []string{
		"APP_ENV", "APP_PORT",
		"NODE_ID", "DATA_DIR", "STORE_DRIVER",
		"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SCHEME",
		"REDIS_ADDR", "REDIS_DB", "REDIS_PASSWORD",
		"S3_ENDPOINT", "S3_REGION", "S3_BUCKET", "S3_ACCESS_KEY", "S3_SECRET_KEY",
		"S3_USE_SSL", "S3_PATH_STYLE",
		"HQ_URL", "SYNC_INTERVAL", "HTTP_TIMEOUT",
		"LOG_LEVEL", "LOG_FILE",
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.NodeID = strings.ToLower(strings.TrimSpace(cfg.NodeID))
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreFile, StorePostgres:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.StoreDriver == StorePostgres && (c.DBHost == "" || c.DBName == "") {
		return errors.New("STORE_DRIVER=postgres requires DB_HOST and DB_NAME")
	}
	if c.SyncInterval < 0 {
		return errors.New("SYNC_INTERVAL must not be negative")
	}
	return nil
}

func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser,
		c.DBPassword,
		c.DBHost,
		c.DBPort,
		c.DBName,
	)
}
