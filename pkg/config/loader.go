package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// configCache stores parsed configurations keyed by type name and env prefix.
type configCache struct {
	mu     sync.RWMutex
	values map[string]any
	onces  map[string]*sync.Once
}

var (
	globalCache = newCache()

	defaultEnvMu     sync.Mutex
	defaultEnvLoaded bool
)

func newCache() *configCache {
	return &configCache{
		values: make(map[string]any),
		onces:  make(map[string]*sync.Once),
	}
}

// Option tunes how a configuration struct is parsed.
type Option func(*env.Options)

// WithPrefix prepends prefix to every env tag, e.g. WithPrefix("UPLOADKIT_") turns
// `env:"BASE_PATH"` into UPLOADKIT_BASE_PATH.
func WithPrefix(prefix string) Option {
	return func(o *env.Options) { o.Prefix = prefix }
}

// LoadEnv loads the given .env files into the process environment, earlier files
// taking precedence over later ones for keys already set. With no paths the default
// .env in the working directory is loaded. Variables already present in the
// environment are never overwritten.
func LoadEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil {
		return fmt.Errorf("loading env files: %w", err)
	}
	return nil
}

// OverloadEnv loads the given .env files, overriding variables that are already set.
// Later files win.
func OverloadEnv(paths ...string) error {
	if err := godotenv.Overload(paths...); err != nil {
		return fmt.Errorf("loading env files: %w", err)
	}
	return nil
}

// Load parses environment variables into v, once per configuration type and prefix.
// Subsequent calls return the cached copy.
//
// The default .env file is loaded on first use if it exists.
//
// Example:
//
//	type StorageConfig struct {
//		BasePath string   `env:"BASE_PATH,required"`
//		Exclude  []string `env:"EXCLUDE" envSeparator:","`
//	}
//
//	var cfg StorageConfig
//	if err := config.Load(&cfg, config.WithPrefix("UPLOADKIT_")); err != nil {
//		return err
//	}
func Load[T any](v *T, opts ...Option) error {
	loadDefaultEnv()
	if v == nil {
		return ErrNilPointer
	}

	o := buildOptions(opts)
	key := cacheKey[T](o.Prefix)

	if cached(key, v) {
		return nil
	}

	globalCache.mu.Lock()
	once, exists := globalCache.onces[key]
	if !exists {
		once = new(sync.Once)
		globalCache.onces[key] = once
	}
	globalCache.mu.Unlock()

	var err error
	once.Do(func() {
		var parsed T
		if parseErr := env.ParseWithOptions(&parsed, o); parseErr != nil {
			err = errors.Join(ErrParsingConfig, parseErr)
			// A later call may succeed once the environment is fixed.
			globalCache.mu.Lock()
			delete(globalCache.onces, key)
			globalCache.mu.Unlock()
			return
		}

		globalCache.mu.Lock()
		globalCache.values[key] = parsed
		globalCache.mu.Unlock()
	})
	if err != nil {
		return err
	}

	if cached(key, v) {
		return nil
	}
	return ErrConfigNotLoaded
}

// ResetCache forgets every cached configuration and lets the default .env file be
// loaded again. Intended for tests.
func ResetCache() {
	globalCache.mu.Lock()
	globalCache.values = make(map[string]any)
	globalCache.onces = make(map[string]*sync.Once)
	globalCache.mu.Unlock()

	defaultEnvMu.Lock()
	defaultEnvLoaded = false
	defaultEnvMu.Unlock()
}

func cached[T any](key string, dst *T) bool {
	globalCache.mu.RLock()
	defer globalCache.mu.RUnlock()

	v, ok := globalCache.values[key]
	if !ok {
		return false
	}
	*dst = v.(T) // Copy so callers cannot modify the cached value
	return true
}

func loadDefaultEnv() {
	defaultEnvMu.Lock()
	defer defaultEnvMu.Unlock()
	if defaultEnvLoaded {
		return
	}
	defaultEnvLoaded = true
	// The default .env file is optional.
	_ = godotenv.Load()
}

func buildOptions(opts []Option) env.Options {
	var o env.Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func cacheKey[T any](prefix string) string {
	var zero T
	t := reflect.TypeOf(zero)
	name := ""
	if t == nil {
		name = fmt.Sprintf("%T", new(T))
	} else {
		name = t.String()
	}
	return prefix + "|" + name
}
