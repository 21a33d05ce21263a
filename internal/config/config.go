package config

import (
	"errors"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/Skotchmaster/bookshop/internal/search"
	pkgconfig "github.com/Skotchmaster/bookshop/pkg/config"
)

type Config struct {
	pkgconfig.Config

	Search search.Config

	CSRFEnabled  bool
	CookieSecure bool
}

// LoadDotEnv reads the given .env files into the environment. Missing files
// are not an error; the process environment is used as is.
func LoadDotEnv(paths ...string) {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("warning: could not load %s: %v", p, err)
		}
	}
}

func Load() (Config, error) {
	cfg := Config{
		Config: pkgconfig.Load(),
		Search: search.Config{
			URL:      os.Getenv("ES_URL"),
			User:     os.Getenv("ES_USER"),
			Password: os.Getenv("ES_PASSWORD"),
			Index:    pkgconfig.EnvDefault("ES_INDEX", search.DefaultIndex),
		},
		CSRFEnabled:  pkgconfig.EnvDefault("CSRF_ENABLED", "true") == "true",
		CookieSecure: os.Getenv("COOKIE_SECURE") == "true",
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "bookshop"
	}

	err := errors.Join(
		pkgconfig.NonEmpty(cfg.DatabaseURL, "DATABASE_URL"),
		pkgconfig.NonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET"),
	)
	return cfg, err
}
