// Package config loads process configuration from SPECIESDESK_* environment
// variables and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "SPECIESDESK"

// Keys. Environment names are derived by upper-casing and replacing "." with "_",
// so "storage.driver" is read from SPECIESDESK_STORAGE_DRIVER.
const (
	KeyStorageDriver   = "storage.driver"
	KeySQLitePath      = "sqlite.path"
	KeyPostgresDSN     = "postgres.dsn"
	KeyBlobDriver      = "blob.driver"
	KeyBlobFSRoot      = "blob.fs.root"
	KeyBlobS3Bucket    = "blob.s3.bucket"
	KeyBlobS3Region    = "blob.s3.region"
	KeyBlobS3Endpoint  = "blob.s3.endpoint"
	KeyBlobS3PathStyle = "blob.s3.path_style"
	KeyBlobS3AccessKey = "blob.s3.access_key_id"
	KeyBlobS3Secret    = "blob.s3.secret_access_key"
	KeyHTTPAddr        = "http.addr"
	KeyPublicURL       = "public.url"
	KeyLogLevel        = "log.level"
	KeyLogDevelopment  = "log.development"
	KeySessionTTL      = "session.ttl"
	KeyTraceFile       = "trace.file"
)

// Storage selects the species table backend.
type Storage struct {
	Driver      string `validate:"oneof=memory sqlite postgres"`
	SQLitePath  string
	PostgresDSN string `validate:"required_if=Driver postgres"`
}

// S3 holds the S3 / MinIO blob settings.
type S3 struct {
	Bucket          string
	Region          string
	Endpoint        string
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
}

// Blob selects the image blob backend.
type Blob struct {
	Driver string `validate:"oneof=fs s3 memory"`
	FSRoot string
	S3     S3
}

// HTTP configures the host listener.
type HTTP struct {
	Addr string `validate:"required"`
	// PublicURL prefixes the image URLs handed back after uploads.
	PublicURL string `validate:"required,url"`
}

// Log configures the process logger.
type Log struct {
	Level       string `validate:"omitempty,oneof=debug info warn error dpanic panic fatal"`
	Development bool
}

// Config is the resolved process configuration.
type Config struct {
	Storage    Storage
	Blob       Blob
	HTTP       HTTP
	Log        Log
	SessionTTL time.Duration `validate:"gt=0"`
	// TraceFile receives gateway spans as JSON lines when set.
	TraceFile string
}

// SetDefaults registers the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyStorageDriver, "sqlite")
	v.SetDefault(KeySQLitePath, "speciesdesk.db")
	v.SetDefault(KeyPostgresDSN, "")
	v.SetDefault(KeyBlobDriver, "fs")
	v.SetDefault(KeyBlobFSRoot, "./blobdata")
	v.SetDefault(KeyBlobS3Bucket, "")
	v.SetDefault(KeyBlobS3Region, "us-east-1")
	v.SetDefault(KeyBlobS3Endpoint, "")
	v.SetDefault(KeyBlobS3PathStyle, false)
	v.SetDefault(KeyBlobS3AccessKey, "")
	v.SetDefault(KeyBlobS3Secret, "")
	v.SetDefault(KeyHTTPAddr, ":8080")
	v.SetDefault(KeyPublicURL, "http://localhost:8080")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogDevelopment, false)
	v.SetDefault(KeySessionTTL, "30m")
	v.SetDefault(KeyTraceFile, "")
}

// New returns a viper instance wired for SPECIESDESK_* environment lookups.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load resolves the configuration. When file is non-empty it is read first and
// environment variables still take precedence over it.
func Load(v *viper.Viper, file string) (Config, error) {
	if v == nil {
		v = New()
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}
	cfg := Config{
		Storage: Storage{
			Driver:      strings.ToLower(v.GetString(KeyStorageDriver)),
			SQLitePath:  v.GetString(KeySQLitePath),
			PostgresDSN: v.GetString(KeyPostgresDSN),
		},
		Blob: Blob{
			Driver: strings.ToLower(v.GetString(KeyBlobDriver)),
			FSRoot: v.GetString(KeyBlobFSRoot),
			S3: S3{
				Bucket:          v.GetString(KeyBlobS3Bucket),
				Region:          v.GetString(KeyBlobS3Region),
				Endpoint:        v.GetString(KeyBlobS3Endpoint),
				PathStyle:       v.GetBool(KeyBlobS3PathStyle),
				AccessKeyID:     v.GetString(KeyBlobS3AccessKey),
				SecretAccessKey: v.GetString(KeyBlobS3Secret),
			},
		},
		HTTP: HTTP{
			Addr:      v.GetString(KeyHTTPAddr),
			PublicURL: strings.TrimRight(v.GetString(KeyPublicURL), "/"),
		},
		Log: Log{
			Level:       strings.ToLower(v.GetString(KeyLogLevel)),
			Development: v.GetBool(KeyLogDevelopment),
		},
		SessionTTL: v.GetDuration(KeySessionTTL),
		TraceFile:  v.GetString(KeyTraceFile),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var configValidator = validator.New()

// Validate reports the first invalid setting by key.
func (c Config) Validate() error {
	err := configValidator.Struct(c)
	if err == nil {
		if c.Blob.Driver == "s3" && c.Blob.S3.Bucket == "" {
			return fmt.Errorf("invalid config: %s required for s3 blob driver", envName(KeyBlobS3Bucket))
		}
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(parts, "; "))
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}
