package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/uploadkit/pkg/config"
)

type defaultsConfig struct {
	BasePath      string `env:"LOADER_BASE_PATH" envDefault:"./uploads"`
	MaxUploadSize int64  `env:"LOADER_MAX_UPLOAD_SIZE" envDefault:"10485760"`
	Enabled       bool   `env:"LOADER_ENABLED" envDefault:"true"`
}

type successConfig struct {
	BasePath      string `env:"LOADER_SUCCESS_BASE_PATH" envDefault:"./uploads"`
	MaxUploadSize int64  `env:"LOADER_SUCCESS_MAX_UPLOAD_SIZE" envDefault:"10485760"`
	Enabled       bool   `env:"LOADER_SUCCESS_ENABLED" envDefault:"true"`
}

type singletonConfig struct {
	Value string `env:"LOADER_SINGLETON" envDefault:"default_value"`
}

type requiredConfig struct {
	Required string `env:"LOADER_REQUIRED,required"`
}

type prefixedConfig struct {
	Storage string `env:"STORAGE" envDefault:"filesystem"`
}

func TestLoad_Success(t *testing.T) {
	t.Setenv("LOADER_SUCCESS_BASE_PATH", "/srv/files")
	t.Setenv("LOADER_SUCCESS_MAX_UPLOAD_SIZE", "2048")
	t.Setenv("LOADER_SUCCESS_ENABLED", "false")

	var cfg successConfig
	require.NoError(t, config.Load(&cfg))

	assert.Equal(t, "/srv/files", cfg.BasePath)
	assert.Equal(t, int64(2048), cfg.MaxUploadSize)
	assert.False(t, cfg.Enabled)
}

func TestLoad_DefaultValues(t *testing.T) {
	_ = os.Unsetenv("LOADER_BASE_PATH")
	_ = os.Unsetenv("LOADER_MAX_UPLOAD_SIZE")
	_ = os.Unsetenv("LOADER_ENABLED")

	var cfg defaultsConfig
	require.NoError(t, config.Load(&cfg))

	assert.Equal(t, "./uploads", cfg.BasePath)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadSize)
	assert.True(t, cfg.Enabled)
}

func TestLoad_MissingRequired(t *testing.T) {
	_ = os.Unsetenv("LOADER_REQUIRED")
	config.ResetCache()
	t.Cleanup(config.ResetCache)

	var cfg requiredConfig
	err := config.Load(&cfg)
	assert.ErrorIs(t, err, config.ErrParsingConfig)

	// A failed parse is not cached.
	t.Setenv("LOADER_REQUIRED", "now set")
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "now set", cfg.Required)
}

func TestLoad_Singleton(t *testing.T) {
	config.ResetCache()
	t.Cleanup(config.ResetCache)
	t.Setenv("LOADER_SINGLETON", "first_value")

	var first singletonConfig
	require.NoError(t, config.Load(&first))

	t.Setenv("LOADER_SINGLETON", "second_value")

	var second singletonConfig
	require.NoError(t, config.Load(&second))
	assert.Equal(t, "first_value", second.Value)

	var reloaded singletonConfig
	require.NoError(t, config.ForceReloadConfig(&reloaded))
	assert.Equal(t, "second_value", reloaded.Value)
}

func TestLoad_CachedCopyIsIsolated(t *testing.T) {
	config.ResetCache()
	t.Cleanup(config.ResetCache)
	t.Setenv("LOADER_SINGLETON", "original")

	var first singletonConfig
	require.NoError(t, config.Load(&first))
	first.Value = "mutated"

	var second singletonConfig
	require.NoError(t, config.Load(&second))
	assert.Equal(t, "original", second.Value)
}

func TestLoad_PrefixesAreCachedSeparately(t *testing.T) {
	t.Setenv("ONE_STORAGE", "s3")
	t.Setenv("TWO_STORAGE", "local")

	var one, two, none prefixedConfig
	require.NoError(t, config.Load(&one, config.WithPrefix("ONE_")))
	require.NoError(t, config.Load(&two, config.WithPrefix("TWO_")))
	require.NoError(t, config.Load(&none))

	assert.Equal(t, "s3", one.Storage)
	assert.Equal(t, "local", two.Storage)
	assert.Equal(t, "filesystem", none.Storage)
}

func TestLoad_NilPointer(t *testing.T) {
	var cfg *successConfig
	assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
}
