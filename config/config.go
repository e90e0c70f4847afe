package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ilyakaznacheev/cleanenv"
	"go.uber.org/zap/zapcore"
)

const (
	BackendLoose  = "loose"
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
	BackendPebble = "pebble"
	BackendMinio  = "minio"
)

var Backends = []string{BackendLoose, BackendBadger, BackendSQLite, BackendPebble, BackendMinio}

type Config struct {
	Dir      string      `yaml:"dir" json:"dir" env:"ZWAGIT_DIR" env-default:".zwagit" env-description:"repository directory"`
	Backend  string      `yaml:"backend" json:"backend" env:"ZWAGIT_BACKEND" env-default:"loose" env-description:"object backend"`
	LogLevel string      `yaml:"log_level" json:"log_level" env:"ZWAGIT_LOG_LEVEL" env-default:"warn" env-description:"log level"`
	Minio    MinioConfig `yaml:"minio" json:"minio"`
}

// MinioConfig falls back to the unprefixed names S3-compatible hosts
// usually inject.
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint" json:"endpoint" env:"MINIO_ENDPOINT,ENDPOINT"`
	AccessKey string `yaml:"access_key" json:"access_key" env:"MINIO_ACCESS_KEY,ACCESS_KEY_ID"`
	SecretKey string `yaml:"secret_key" json:"secret_key" env:"MINIO_SECRET_KEY,SECRET_ACCESS_KEY"`
	Bucket    string `yaml:"bucket" json:"bucket" env:"MINIO_BUCKET,BUCKET"`
	UseSSL    bool   `yaml:"use_ssl" json:"use_ssl" env:"MINIO_USE_SSL" env-default:"true"`
}

// Configured reports whether enough is set to reach a bucket.
func (m MinioConfig) Configured() bool {
	return m.Endpoint != "" && m.Bucket != ""
}

// Load reads the optional config file at path, then the environment.
// Environment variables win over file values. The result is not validated;
// callers apply their own overrides first and then call Validate.
func Load(path string) (*Config, error) {
	var cfg Config
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Dir == "" {
		return errors.New("dir is required")
	}
	if !slices.Contains(Backends, c.Backend) {
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.Backend == BackendMinio && !c.Minio.Configured() {
		return errors.New("minio backend requires endpoint and bucket")
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}
