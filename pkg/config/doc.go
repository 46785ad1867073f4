// Package config loads typed configuration from the environment.
//
// It wraps github.com/joho/godotenv for .env files and github.com/caarlos0/env/v11 for
// parsing struct tags. Each configuration type is parsed once per env prefix and
// cached; later Load calls return a copy of the cached value.
//
//	type Settings struct {
//		Storage  string `env:"STORAGE" envDefault:"filesystem"`
//		BasePath string `env:"BASE_PATH,required"`
//	}
//
//	if err := config.LoadEnv(".env.local"); err != nil {
//		log.Printf("no local env file: %v", err)
//	}
//	var s Settings
//	if err := config.Load(&s, config.WithPrefix("UPLOADKIT_")); err != nil {
//		return err
//	}
//
// The default .env file in the working directory is loaded on first use when present.
// Variables already set in the process environment always win over LoadEnv files;
// OverloadEnv replaces them.
//
// Parsing failures wrap ErrParsingConfig and are not cached, so a later call can
// succeed once the environment is fixed. ResetCache exists for tests.
package config
