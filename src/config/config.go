package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const DefaultBannedRedirectUrl = "https://zakon.rada.gov.ua/laws/show/2341-14/conv/paran1661#n1661"

// Config is filled in by Load at startup. The defaults below are what the
// tests run against.
var Config = SnapwallConfig{
	Env:      Dev,
	Addr:     ":8080",
	BaseUrl:  "http://localhost:8080",
	LogLevel: zerolog.InfoLevel,
	Postgres: PostgresConfig{
		LogLevel: tracelog.LogLevelWarn,
		MinConn:  2,
		MaxConn:  8,
	},
	Auth: AuthConfig{
		BannedRedirectUrl: DefaultBannedRedirectUrl,
	},
	Storage: StorageConfig{
		Backend:   StorageLocal,
		UrlExpiry: time.Hour,
	},
}

type MissingVarsError struct {
	Names []string
}

func (e *MissingVarsError) Error() string {
	return fmt.Sprintf("missing required environment variables: %s", strings.Join(e.Names, ", "))
}

// Load reads the environment (and a .env file, if there is one) into Config.
// Every missing required variable is reported at once.
func Load(envFiles ...string) error {
	err := godotenv.Load(envFiles...)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read env file: %w", err)
	}

	cfg, err := FromEnv(os.LookupEnv)
	if err != nil {
		return err
	}
	Config = cfg
	return nil
}

// FromEnv builds a config from the given lookup function, starting from the
// current defaults.
func FromEnv(lookup func(string) (string, bool)) (SnapwallConfig, error) {
	cfg := Config
	var missing []string
	var problems []string

	str := func(name string, dest *string, required bool) {
		if v, ok := lookup(name); ok && v != "" {
			*dest = v
		} else if required {
			missing = append(missing, name)
		}
	}
	boolean := func(name string, dest *bool) {
		if v, ok := lookup(name); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s: %v", name, err))
				return
			}
			*dest = b
		}
	}

	if v, ok := lookup("SNAPWALL_ENV"); ok && v != "" {
		switch Environment(strings.ToLower(v)) {
		case Live:
			cfg.Env = Live
		case Dev:
			cfg.Env = Dev
		default:
			problems = append(problems, fmt.Sprintf("SNAPWALL_ENV: unknown environment %q", v))
		}
	}
	str("SNAPWALL_ADDR", &cfg.Addr, false)
	str("SNAPWALL_BASE_URL", &cfg.BaseUrl, false)
	cfg.BaseUrl = strings.TrimSuffix(cfg.BaseUrl, "/")
	if v, ok := lookup("SNAPWALL_LOG_LEVEL"); ok && v != "" {
		level, err := zerolog.ParseLevel(v)
		if err != nil {
			problems = append(problems, fmt.Sprintf("SNAPWALL_LOG_LEVEL: %v", err))
		} else {
			cfg.LogLevel = level
		}
	}

	str("DATABASE_URL", &cfg.Postgres.DSN, true)

	str("SNAPWALL_SECRET_KEY", &cfg.Auth.SecretKey, true)
	str("SNAPWALL_COOKIE_DOMAIN", &cfg.Auth.CookieDomain, false)
	boolean("SNAPWALL_COOKIE_SECURE", &cfg.Auth.CookieSecure)
	str("SNAPWALL_BANNED_REDIRECT_URL", &cfg.Auth.BannedRedirectUrl, false)

	if v, ok := lookup("STORAGE_BACKEND"); ok && v != "" {
		cfg.Storage.Backend = StorageBackend(strings.ToLower(v))
	}
	switch cfg.Storage.Backend {
	case StorageLocal:
		str("UPLOAD_ROOT", &cfg.Storage.UploadRoot, true)
	case StorageS3:
		str("AWS_REGION", &cfg.Storage.S3Region, true)
		str("S3_BUCKET_NAME", &cfg.Storage.S3Bucket, true)
		str("S3_ENDPOINT", &cfg.Storage.S3Endpoint, false)
		str("AWS_ACCESS_KEY_ID", &cfg.Storage.S3AccessKey, false)
		str("AWS_SECRET_ACCESS_KEY", &cfg.Storage.S3SecretKey, false)
	default:
		problems = append(problems, fmt.Sprintf("STORAGE_BACKEND: unknown backend %q", cfg.Storage.Backend))
	}
	if v, ok := lookup("S3_URL_EXPIRY"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			problems = append(problems, fmt.Sprintf("S3_URL_EXPIRY: invalid duration %q", v))
		} else {
			cfg.Storage.UrlExpiry = d
		}
	}

	if len(missing) > 0 {
		return SnapwallConfig{}, &MissingVarsError{Names: missing}
	}
	if len(problems) > 0 {
		return SnapwallConfig{}, errors.New(strings.Join(problems, "; "))
	}
	return cfg, nil
}
