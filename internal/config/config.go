package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	JWTSecret   string
	MongoURI    string
	DBName      string
	SkipAuth    bool
	Environment string
	AppId       string
	FSPath      string // Physical directory for generated report artifacts
	FSURL       string // URL path prefix for artifact access
	PublicURL   string // External base URL used when composing share links

	// SMTP settings for the delivery subsystem
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	// Scheduler / delivery knobs. The retry bounds are deliberate
	// configuration, not hard-coded law.
	SchedulerInterval   time.Duration
	TriggerRetries      int
	DeliveryMaxAttempts int
	GenerateTimeout     time.Duration
	SendTimeout         time.Duration

	// Per-IP rate limit for public share endpoints
	ShareRateRPS   float64
	ShareRateBurst int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file successfully")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		JWTSecret:   getEnv("JWT_SECRET", "secret"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:      getEnv("DB_NAME", "go-reporting"),
		SkipAuth:    getEnv("SKIP_AUTH", "false") == "true",
		Environment: getEnv("ENVIRONMENT", "development"),
		AppId:       getEnv("APP_ID", "go-reporting"),
		FSPath:      getEnv("FS_PATH", "./artifacts"),
		FSURL:       getEnv("FS_URL", "/fs/artifacts"),
		PublicURL:   getEnv("PUBLIC_URL", "http://localhost:8080"),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", "reports@localhost"),

		SchedulerInterval:   getEnvDuration("SCHEDULER_INTERVAL", 30*time.Second),
		TriggerRetries:      getEnvInt("TRIGGER_RETRIES", 3),
		DeliveryMaxAttempts: getEnvInt("DELIVERY_MAX_ATTEMPTS", 3),
		GenerateTimeout:     getEnvDuration("GENERATE_TIMEOUT", 2*time.Minute),
		SendTimeout:         getEnvDuration("SEND_TIMEOUT", 30*time.Second),

		ShareRateRPS:   getEnvFloat("SHARE_RATE_RPS", 5),
		ShareRateBurst: getEnvInt("SHARE_RATE_BURST", 10),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("Invalid integer for %s, using default %d", key, fallback)
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		log.Printf("Invalid float for %s, using default %v", key, fallback)
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("Invalid duration for %s, using default %s", key, fallback)
	}
	return fallback
}
