package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage providers accepted by STORAGE_PROVIDER.
const (
	StorageLocal      = "local"
	StorageCloudinary = "cloudinary"
	StorageMinIO      = "minio"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName     string
	AppEnv      string
	AppPort     string
	DatabaseURL string
	RedisURL    string
	JWTSecret   string

	DashboardCacheTTL time.Duration
	MaxUploadBytes    int64
	SubmitRateLimit   int

	StorageProvider  string
	LocalStorageRoot string
	LocalPublicURL   string

	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool
	MinIOPublicURL string

	NATSURL           string
	NATSSubjectPrefix string
	EventsChannel     string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("COURSEWORK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Coursework API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("dashboard.cache_ttl", "5m")
	v.SetDefault("upload.max_bytes", 10<<20)
	v.SetDefault("submit.rate_limit", 20)
	v.SetDefault("storage.provider", StorageLocal)
	v.SetDefault("storage.local_root", "./uploads")
	v.SetDefault("storage.local_public_url", "/uploads")
	v.SetDefault("cloudinary.folder", "coursework")
	v.SetDefault("minio.bucket", "coursework")
	v.SetDefault("nats.subject_prefix", "coursework")
	v.SetDefault("events.channel", "coursework.events")

	ttlString := v.GetString("dashboard.cache_ttl")
	if ttlString == "" {
		ttlString = "5m"
	}

	ttl, err := time.ParseDuration(ttlString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid dashboard cache ttl: %w", err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		DashboardCacheTTL:      ttl,
		MaxUploadBytes:         v.GetInt64("upload.max_bytes"),
		SubmitRateLimit:        v.GetInt("submit.rate_limit"),
		StorageProvider:        strings.ToLower(strings.TrimSpace(v.GetString("storage.provider"))),
		LocalStorageRoot:       v.GetString("storage.local_root"),
		LocalPublicURL:         v.GetString("storage.local_public_url"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		MinIOEndpoint:          v.GetString("minio.endpoint"),
		MinIOAccessKey:         v.GetString("minio.access_key"),
		MinIOSecretKey:         v.GetString("minio.secret_key"),
		MinIOBucket:            v.GetString("minio.bucket"),
		MinIOUseSSL:            v.GetBool("minio.use_ssl"),
		MinIOPublicURL:         v.GetString("minio.public_url"),
		NATSURL:                v.GetString("nats.url"),
		NATSSubjectPrefix:      v.GetString("nats.subject_prefix"),
		EventsChannel:          v.GetString("events.channel"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	switch cfg.StorageProvider {
	case StorageLocal, StorageCloudinary, StorageMinIO:
	default:
		return Config{}, fmt.Errorf("unsupported storage provider %q", cfg.StorageProvider)
	}

	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}

	return cfg, nil
}
