package config

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	DefaultPort                  = "8080"
	DefaultDBDriver              = "postgres"
	DefaultAccessTokenExpiryMin  = 15
	DefaultSessionExpiryMin      = 10080
	DefaultResetTokenExpiryMin   = 60
	DefaultMaxActiveSessions     = 5
	DefaultLoginMaxAttempts      = 5
	DefaultLoginWindowMinutes    = 15
	DefaultResetRequestLimit     = 5
	DefaultResetRequestWindowMin = 60
	DefaultBcryptCost            = 10
	DefaultMaxUploadBytes        = 10 << 20
	DefaultJanitorSchedule       = "@every 1h"
	DefaultMinioBucket           = "course-images"
)

type Config struct {
	Env           string
	Port          string
	DBDriver      string
	DBURL         string
	RunMigrations bool

	AccessTokenSecret   string
	AccessExpiryMin     int
	SessionExpiryMin    int
	ResetTokenExpiryMin int
	MaxActiveSessions   int
	BcryptCost          int

	LoginMaxAttempts   int
	LoginWindowMinutes int

	RedisURL              string
	ResetRequestLimit     int
	ResetRequestWindowMin int

	ResendAPIKey string
	MailFrom     string
	ResetURLBase string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MinioPublicURL string
	MaxUploadBytes int64

	JanitorSchedule string
}

// Load reads config/.env.dev (or config/.env.prod when ENV=production).
// Environment variables take precedence over file values.
func Load() *Config {
	env := getEnv("ENV", "development")

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	file := ".env.dev"
	if env == "production" {
		file = ".env.prod"
	}
	path := filepath.Join("config", file)
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			log.Fatal().Err(err).Str("file", path).Msg("Failed to read config file")
		}
	}

	return &Config{
		Env:           env,
		Port:          v.GetString("PORT"),
		DBDriver:      v.GetString("DB_DRIVER"),
		DBURL:         mustGet(v, "DB_URL"),
		RunMigrations: v.GetBool("RUN_MIGRATIONS"),

		AccessTokenSecret:   mustGet(v, "ACCESS_TOKEN_SECRET"),
		AccessExpiryMin:     v.GetInt("ACCESS_TOKEN_EXPIRY"),
		SessionExpiryMin:    v.GetInt("SESSION_EXPIRY"),
		ResetTokenExpiryMin: v.GetInt("RESET_TOKEN_EXPIRY"),
		MaxActiveSessions:   v.GetInt("MAX_ACTIVE_SESSIONS"),
		BcryptCost:          v.GetInt("BCRYPT_COST"),

		LoginMaxAttempts:   v.GetInt("LOGIN_MAX_ATTEMPTS"),
		LoginWindowMinutes: v.GetInt("LOGIN_WINDOW_MINUTES"),

		RedisURL:              v.GetString("REDIS_URL"),
		ResetRequestLimit:     v.GetInt("RESET_REQUEST_LIMIT"),
		ResetRequestWindowMin: v.GetInt("RESET_REQUEST_WINDOW"),

		ResendAPIKey: v.GetString("RESEND_API_KEY"),
		MailFrom:     v.GetString("MAIL_FROM"),
		ResetURLBase: v.GetString("RESET_URL_BASE"),

		MinioEndpoint:  v.GetString("MINIO_ENDPOINT"),
		MinioAccessKey: v.GetString("MINIO_ACCESS_KEY"),
		MinioSecretKey: v.GetString("MINIO_SECRET_KEY"),
		MinioBucket:    v.GetString("MINIO_BUCKET"),
		MinioUseSSL:    v.GetBool("MINIO_USE_SSL"),
		MinioPublicURL: v.GetString("MINIO_PUBLIC_URL"),
		MaxUploadBytes: v.GetInt64("MAX_UPLOAD_BYTES"),

		JanitorSchedule: v.GetString("JANITOR_SCHEDULE"),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", DefaultPort)
	v.SetDefault("DB_DRIVER", DefaultDBDriver)
	v.SetDefault("ACCESS_TOKEN_EXPIRY", DefaultAccessTokenExpiryMin)
	v.SetDefault("SESSION_EXPIRY", DefaultSessionExpiryMin)
	v.SetDefault("RESET_TOKEN_EXPIRY", DefaultResetTokenExpiryMin)
	v.SetDefault("MAX_ACTIVE_SESSIONS", DefaultMaxActiveSessions)
	v.SetDefault("BCRYPT_COST", DefaultBcryptCost)
	v.SetDefault("LOGIN_MAX_ATTEMPTS", DefaultLoginMaxAttempts)
	v.SetDefault("LOGIN_WINDOW_MINUTES", DefaultLoginWindowMinutes)
	v.SetDefault("RESET_REQUEST_LIMIT", DefaultResetRequestLimit)
	v.SetDefault("RESET_REQUEST_WINDOW", DefaultResetRequestWindowMin)
	v.SetDefault("MAIL_FROM", "엘리의방 <no-reply@elliesbang.kr>")
	v.SetDefault("MINIO_BUCKET", DefaultMinioBucket)
	v.SetDefault("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes)
	v.SetDefault("JANITOR_SCHEDULE", DefaultJanitorSchedule)
}

func getEnv(key string, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func mustGet(v *viper.Viper, key string) string {
	if value := v.GetString(key); value != "" {
		return value
	}
	log.Fatal().Msgf("Missing required config: %s", key)
	return ""
}
