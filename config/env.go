package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv string
	Port   string

	DatabaseURL string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string

	RedisURL      string
	RedisAddr     string
	RedisPassword string

	// StorageBackend selects where session slots live: redis, postgres or memory.
	StorageBackend string
	StorageTTL     time.Duration

	SessionSecret  string
	SessionIdleTTL time.Duration

	StoreAPIURL string

	GeocoderURL         string
	GeocoderUserAgent   string
	GeocoderLanguage    string
	GeocoderRPS         float64
	GeocoderTimeout     time.Duration
	DefaultProvince     string
	DefaultCountry      string
	ExpectedCountryCode string

	UploadDir     string
	MaxUploadSize int64
	OriginURL     string

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string

	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPass      string
	SMTPFrom      string
	OrderNotifyTo string

	// EnvFileLoaded reports whether a .env file was found.
	EnvFileLoaded bool
}

var AppConfig *Config

func LoadConfig() *Config {
	loaded := godotenv.Load() == nil

	AppConfig = &Config{
		AppEnv: getEnv("APP_ENV", "development"),
		Port:   getEnv("APP_PORT", getEnv("PORT", "8082")),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5454"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  getEnv("DB_PASSWORD", "postgres"),
		DBName:      getEnv("DB_NAME", "storefront"),
		DBSSLMode:   getEnv("DB_SSLMODE", "disable"),

		RedisURL:      os.Getenv("REDIS_URL"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		StorageBackend: getEnv("STORAGE_BACKEND", "memory"),
		StorageTTL:     getEnvDuration("STORAGE_TTL", 30*24*time.Hour),

		SessionSecret:  getEnv("SESSION_SECRET", DefaultSessionSecret),
		SessionIdleTTL: getEnvDuration("SESSION_IDLE_TTL", 2*time.Hour),

		StoreAPIURL: getEnv("STORE_API_URL", "http://localhost:8000"),

		GeocoderURL:         getEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org"),
		GeocoderUserAgent:   getEnv("GEOCODER_USER_AGENT", "EcommerceApp/1.0"),
		GeocoderLanguage:    getEnv("GEOCODER_LANGUAGE", "en"),
		GeocoderRPS:         getEnvFloat("GEOCODER_RPS", 1),
		GeocoderTimeout:     getEnvDuration("GEOCODER_TIMEOUT", 10*time.Second),
		DefaultProvince:     getEnv("DEFAULT_PROVINCE", "Gauteng"),
		DefaultCountry:      getEnv("DEFAULT_COUNTRY", "South Africa"),
		ExpectedCountryCode: getEnv("EXPECTED_COUNTRY_CODE", "za"),

		UploadDir:     getEnv("UPLOAD_DIR", "./uploads"),
		MaxUploadSize: getEnvInt64("MAX_UPLOAD_SIZE", 5242880),
		OriginURL:     os.Getenv("ORIGIN_URL"),

		CloudinaryCloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: os.Getenv("CLOUDINARY_API_SECRET"),
		CloudinaryFolder:    getEnv("CLOUDINARY_FOLDER", "receipts"),

		SMTPHost:      os.Getenv("SMTP_HOST"),
		SMTPPort:      int(getEnvInt64("SMTP_PORT", 587)),
		SMTPUser:      os.Getenv("SMTP_USER"),
		SMTPPass:      os.Getenv("SMTP_PASS"),
		SMTPFrom:      os.Getenv("SMTP_FROM"),
		OrderNotifyTo: os.Getenv("ORDER_NOTIFY_TO"),

		EnvFileLoaded: loaded,
	}

	return AppConfig
}

// DefaultSessionSecret signs session tokens in development only.
const DefaultSessionSecret = "secret"

var ErrInsecureSessionSecret = errors.New("SESSION_SECRET must be set to a non-default value in production")

// Validate rejects settings that are unsafe to serve with.
func (c *Config) Validate() error {
	if c.IsProduction() && (c.SessionSecret == "" || c.SessionSecret == DefaultSessionSecret) {
		return ErrInsecureSessionSecret
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) CloudinaryEnabled() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != "" && c.SMTPUser != "" && c.SMTPPass != "" && c.OrderNotifyTo != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil || value == 0 {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}
