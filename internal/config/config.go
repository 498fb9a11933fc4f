// Package config reads runtime settings from the environment.
//
// In development (ENV=dev) a .env file in the working directory is loaded
// first; real environment variables always win over it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      int
	BaseURL   string
	DBPath    string
	JWTSecret string
	LogLevel  string

	Google GoogleConfig
	Media  MediaConfig
}

// GoogleConfig holds the OAuth client used for both sign-in and channel
// authorization.
type GoogleConfig struct {
	ClientID        string
	ClientSecret    string
	LoginCallback   string
	ChannelCallback string
	UploadPrivacy   string
	UploadTimeout   time.Duration
}

// MediaConfig selects and configures the object store for uploaded videos.
type MediaConfig struct {
	Backend       string // "minio" or "gcs"
	PublicBaseURL string
	MaxUploadSize int64
	Minio         MinioConfig
	GCS           GCSConfig
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type GCSConfig struct {
	Bucket          string
	ProjectID       string
	CredentialsFile string
}

// Load reads the configuration. Malformed numbers, booleans and durations
// are errors rather than silent defaults, as are non-positive limits.
func Load() (Config, error) {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	env := &envReader{}
	port := env.getInt("PORT", 8080)
	baseURL := getEnv("BASE_URL", fmt.Sprintf("http://localhost:%d", port))

	cfg := Config{
		Port:      port,
		BaseURL:   baseURL,
		DBPath:    getEnv("DB_PATH", "data/videohub.db"),
		JWTSecret: getEnv("JWT_SECRET", ""),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		Google: GoogleConfig{
			ClientID:        getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret:    getEnv("GOOGLE_CLIENT_SECRET", ""),
			LoginCallback:   getEnv("GOOGLE_CALLBACK_URL", baseURL+"/auth/google/callback"),
			ChannelCallback: getEnv("YOUTUBE_CALLBACK_URL", baseURL+"/auth/youtube/callback"),
			UploadPrivacy:   getEnv("YOUTUBE_PRIVACY_STATUS", "private"),
			UploadTimeout:   env.getDuration("YOUTUBE_UPLOAD_TIMEOUT", 10*time.Minute),
		},
		Media: MediaConfig{
			Backend:       getEnv("MEDIA_BACKEND", "minio"),
			PublicBaseURL: getEnv("MEDIA_PUBLIC_BASE_URL", ""),
			MaxUploadSize: int64(env.getInt("MEDIA_MAX_UPLOAD_MB", 512)) << 20,
			Minio: MinioConfig{
				Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
				AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
				SecretKey: getEnv("MINIO_SECRET_KEY", ""),
				Bucket:    getEnv("MINIO_BUCKET", "videohub"),
				UseSSL:    env.getBool("MINIO_USE_SSL", false),
			},
			GCS: GCSConfig{
				Bucket:          getEnv("GCS_BUCKET", ""),
				ProjectID:       getEnv("GCS_PROJECT_ID", ""),
				CredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
			},
		},
	}

	if err := errors.Join(append(env.errs, cfg.validate()...)...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() []error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("config: PORT %d is out of range", c.Port))
	}
	if c.Media.MaxUploadSize <= 0 {
		errs = append(errs, errors.New("config: MEDIA_MAX_UPLOAD_MB must be positive"))
	}
	if c.Google.UploadTimeout <= 0 {
		errs = append(errs, errors.New("config: YOUTUBE_UPLOAD_TIMEOUT must be positive"))
	}
	return errs
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// envReader parses typed variables and collects every parse failure.
type envReader struct {
	errs []error
}

func (e *envReader) getInt(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: %s=%q is not an integer", key, valueStr))
		return defaultValue
	}
	return value
}

func (e *envReader) getBool(key string, defaultValue bool) bool {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: %s=%q is not a boolean", key, valueStr))
		return defaultValue
	}
	return value
}

func (e *envReader) getDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: %s=%q is not a duration", key, valueStr))
		return defaultValue
	}
	return value
}
