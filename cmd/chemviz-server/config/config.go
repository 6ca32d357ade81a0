// Package config loads the chemviz server configuration.
//
// Sources, in order of precedence:
//  1. Command-line flags
//  2. Environment variables prefixed with CHEMVIZ_ (e.g. CHEMVIZ_STORAGE)
//  3. Default values
//
// The merged result is validated before it is returned.
package config

import (
	"errors"
	"flag"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"

	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/tls"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "CHEMVIZ"

// Config holds all server configuration.
type Config struct {
	Listen          string        `envconfig:"LISTEN" default:":8080" validate:"required"`
	GRPCListen      string        `envconfig:"GRPC_LISTEN" default:":9090"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"text" validate:"oneof=text json"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s" validate:"gt=0"`

	Storage       string `envconfig:"STORAGE" default:"memory" validate:"oneof=memory redis badger"`
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379" validate:"required_if=Storage redis"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0" validate:"gte=0"`
	BadgerDir     string `envconfig:"BADGER_DIR" default:"./data" validate:"required_if=Storage badger"`

	MaxDatasets    int     `envconfig:"MAX_DATASETS" default:"5" validate:"gte=1"`
	HistoryLimit   int     `envconfig:"HISTORY_LIMIT" default:"5" validate:"gte=1"`
	MaxUploadBytes int64   `envconfig:"MAX_UPLOAD_BYTES" default:"33554432" validate:"gt=0"`
	UploadRPS      float64 `envconfig:"UPLOAD_RPS" default:"10" validate:"gte=0"`
	UploadBurst    int     `envconfig:"UPLOAD_BURST" default:"20" validate:"gte=1"`

	TraceStdout bool `envconfig:"TRACE_STDOUT" default:"false"`

	TLSEnabled  bool   `envconfig:"TLS_ENABLED" default:"false"`
	TLSCertFile string `envconfig:"TLS_CERT_FILE"`
	TLSKeyFile  string `envconfig:"TLS_KEY_FILE"`
	TLSCAFile   string `envconfig:"TLS_CA_FILE"`
}

// TLS returns the listener TLS settings.
func (c *Config) TLS() tls.Config {
	return tls.Config{
		Enabled:  c.TLSEnabled,
		CertFile: c.TLSCertFile,
		KeyFile:  c.TLSKeyFile,
		CAFile:   c.TLSCAFile,
	}
}

// Parse loads environment defaults, applies flags from args and validates
// the result. It returns flag.ErrHelp when -h is passed.
func Parse(args []string) (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	fs := flag.NewFlagSet("chemviz-server", flag.ContinueOnError)

	fs.StringVar(&cfg.Listen, "listen", cfg.Listen, "HTTP listen address")
	fs.StringVar(&cfg.GRPCListen, "grpc-listen", cfg.GRPCListen, "gRPC health listen address (empty disables)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: text or json")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "Graceful shutdown timeout")

	fs.StringVar(&cfg.Storage, "storage", cfg.Storage, "Storage backend: memory, redis or badger")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis server address")
	fs.StringVar(&cfg.RedisPassword, "redis-password", cfg.RedisPassword, "Redis password")
	fs.IntVar(&cfg.RedisDB, "redis-db", cfg.RedisDB, "Redis database number")
	fs.StringVar(&cfg.BadgerDir, "badger-dir", cfg.BadgerDir, "Badger data directory")

	fs.IntVar(&cfg.MaxDatasets, "max-datasets", cfg.MaxDatasets, "Number of datasets retained")
	fs.IntVar(&cfg.HistoryLimit, "history-limit", cfg.HistoryLimit, "Default history length")
	fs.Int64Var(&cfg.MaxUploadBytes, "max-upload-bytes", cfg.MaxUploadBytes, "Maximum upload size in bytes")
	fs.Float64Var(&cfg.UploadRPS, "upload-rps", cfg.UploadRPS, "Upload rate limit in requests per second (0 disables)")
	fs.IntVar(&cfg.UploadBurst, "upload-burst", cfg.UploadBurst, "Upload rate limit burst")

	fs.BoolVar(&cfg.TraceStdout, "trace-stdout", cfg.TraceStdout, "Export pipeline traces to stdout")

	fs.BoolVar(&cfg.TLSEnabled, "tls-enabled", cfg.TLSEnabled, "Serve HTTP and gRPC over TLS")
	fs.StringVar(&cfg.TLSCertFile, "tls-cert-file", cfg.TLSCertFile, "TLS certificate file")
	fs.StringVar(&cfg.TLSKeyFile, "tls-key-file", cfg.TLSKeyFile, "TLS private key file")
	fs.StringVar(&cfg.TLSCAFile, "tls-ca-file", cfg.TLSCAFile, "CA file for client certificate verification")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("envconfig")
		if name == "" {
			return fld.Name
		}
		return EnvPrefix + "_" + name
	})
	return v
}

// Validate checks field constraints and the TLS files.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = formatFieldError(fe)
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return err
	}

	if err := c.TLS().ValidateServer(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func formatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
