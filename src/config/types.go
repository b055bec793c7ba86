package config

import (
	"time"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
)

type Environment string

const (
	Live Environment = "live"
	Dev  Environment = "dev"
)

type StorageBackend string

const (
	StorageLocal StorageBackend = "local"
	StorageS3    StorageBackend = "s3"
)

type SnapwallConfig struct {
	Env      Environment
	Addr     string
	BaseUrl  string
	LogLevel zerolog.Level
	Postgres PostgresConfig
	Auth     AuthConfig
	Storage  StorageConfig
}

type PostgresConfig struct {
	DSN      string
	LogLevel tracelog.LogLevel
	MinConn  int32
	MaxConn  int32
}

type AuthConfig struct {
	SecretKey         string
	CookieDomain      string
	CookieSecure      bool
	BannedRedirectUrl string
}

type StorageConfig struct {
	Backend    StorageBackend
	UploadRoot string

	S3Region    string
	S3Bucket    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	UrlExpiry   time.Duration
}

func (c SnapwallConfig) IsLive() bool {
	return c.Env == Live
}
