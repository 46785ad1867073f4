package uploadkit

import (
	"time"

	"github.com/dmitrymomot/uploadkit/pkg/config"
	"github.com/dmitrymomot/uploadkit/pkg/fetch"
	"github.com/dmitrymomot/uploadkit/pkg/file"
	"github.com/dmitrymomot/uploadkit/pkg/storage"
)

// EnvPrefix is prepended to every environment variable read by LoadConfig.
const EnvPrefix = "UPLOADKIT_"

// Config describes an Uploader and its storage backend.
type Config struct {
	Storage       string   `env:"STORAGE" envDefault:"filesystem"`
	BasePath      string   `env:"BASE_PATH" envDefault:"./uploads"`
	BaseURL       string   `env:"BASE_URL"`
	Exclude       []string `env:"EXCLUDE" envSeparator:","`
	IncludeHidden bool     `env:"INCLUDE_HIDDEN"`

	UploadsDisabled bool   `env:"UPLOADS_DISABLED"`
	PartialUpload   bool   `env:"PARTIAL_UPLOAD"`
	MaxUploadSize   string `env:"MAX_UPLOAD_SIZE" envDefault:"10M"` // Per file, e.g. "512K", "10M"
	TempDir         string `env:"TEMP_DIR"`

	// Env selects the logging preset: "production" logs JSON at info level,
	// anything else text at debug level. LogLevel and LogFormat override it.
	Env       string `env:"ENV" envDefault:"production"`
	LogLevel  string `env:"LOG_LEVEL"`
	LogFormat string `env:"LOG_FORMAT"`

	Fetch FetchConfig      `envPrefix:"FETCH_"`
	S3    storage.S3Config `envPrefix:"S3_"`
}

// FetchConfig configures the HTTP client behind FromURL. Zero durations and an empty
// user agent keep the fetch package defaults.
type FetchConfig struct {
	Disabled       bool          `env:"DISABLED"`
	UserAgent      string        `env:"USER_AGENT" envDefault:"uploadkit/1.0"`
	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" envDefault:"10s"`
	Timeout        time.Duration `env:"TIMEOUT" envDefault:"60s"`
	VerifyTLS      bool          `env:"VERIFY_TLS"`
	MaxSize        string        `env:"MAX_SIZE"`
}

// LoadConfig reads Config from UPLOADKIT_* environment variables and the optional .env file.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.Load(&cfg, config.WithPrefix(EnvPrefix)); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// MaxUploadBytes returns MaxUploadSize in bytes, 0 meaning unlimited.
func (c Config) MaxUploadBytes() int64 {
	return file.ParseSize(c.MaxUploadSize)
}

// Fetcher builds the fetch client described by the config, or nil when fetching is disabled.
func (c FetchConfig) Fetcher() file.Fetcher {
	if c.Disabled {
		return nil
	}
	return fetch.New(
		fetch.WithUserAgent(c.UserAgent),
		fetch.WithConnectTimeout(c.ConnectTimeout),
		fetch.WithTimeout(c.Timeout),
		fetch.WithTLSVerify(c.VerifyTLS),
		fetch.WithMaxBytes(file.ParseSize(c.MaxSize)),
	)
}

// options translates the config into Uploader options. Explicit options passed by the
// caller are applied afterwards and win. The zero Config accepts uploads and fetches URLs.
func (c Config) options() []Option {
	opts := []Option{
		WithUploadsEnabled(!c.UploadsDisabled),
		WithPartialUpload(c.PartialUpload),
		WithTempDir(c.TempDir),
		WithMaxFileSize(c.MaxUploadBytes()),
		WithFetcher(c.Fetch.Fetcher()),
	}
	return opts
}
