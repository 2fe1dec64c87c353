package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                    string
	Env                     string
	FirebaseCredentialsPath string
	DatabaseURL             string
	MongoURI                string
	MongoDatabase           string
	AccessTokenSecret       string
	RefreshTokenSecret      string
	FrontendURL             string
	CORSOrigin              string
	SMTPHost                string
	SMTPPort                string
	SMTPUser                string
	SMTPPass                string
	MailFrom                string
	RequestTimeout          time.Duration
	FanoutTimeout           time.Duration
}

// Load reads .env when present, then the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, assuming environment variables are set.")
	}
	return &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		DatabaseURL:             getEnv("DATABASE_URL", "sqlite://forum.db"),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDatabase:           getEnv("MONGO_DATABASE", "forum"),
		AccessTokenSecret:       getEnv("ACCESS_TOKEN_SECRET", "dev-access-secret"),
		RefreshTokenSecret:      getEnv("REFRESH_TOKEN_SECRET", "dev-refresh-secret"),
		FrontendURL:             getEnv("FRONTEND_URL", "http://localhost:3000"),
		CORSOrigin:              getEnv("CORS_ORIGIN", "http://localhost:3000"),
		SMTPHost:                getEnv("SMTP_HOST", ""),
		SMTPPort:                getEnv("SMTP_PORT", "587"),
		SMTPUser:                getEnv("SMTP_USER", ""),
		SMTPPass:                getEnv("SMTP_PASS", ""),
		MailFrom:                getEnv("MAIL_FROM", ""),
		RequestTimeout:          getDuration("REQUEST_TIMEOUT", 10*time.Second),
		FanoutTimeout:           getDuration("FANOUT_TIMEOUT", 15*time.Second),
	}
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Invalid %s %q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}
