package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	AppEnv   string
	LogLevel string

	GmailCredentialsPath string
	GmailTokenPath       string
	GmailLabelID         string
	GmailHTMLPart        int
	ListingBaseURL       string

	MapsAPIKey    string
	DirectionsQPS int

	ScrapeDelay time.Duration
	FetchMode   string
	ChromeBin   string
	HTTPTimeout time.Duration

	DestinationsFile string

	PostgresEnabled  bool
	PostgresAttempts int
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	MetricsTextfile string
}

// Fetch modes for listing pages.
const (
	FetchModeHTTP    = "http"
	FetchModeBrowser = "browser"
)

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		AppEnv:   getEnv("APP_ENV", "prod"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		GmailCredentialsPath: getEnv("GMAIL_CREDENTIALS_PATH", "secrets/credentials.json"),
		GmailTokenPath:       getEnv("GMAIL_TOKEN_PATH", "secrets/gmail_token.json"),
		GmailLabelID:         getEnv("GMAIL_LABEL_ID", "Label_400557737346208601"),
		GmailHTMLPart:        getEnvInt("GMAIL_HTML_PART", 1),
		ListingBaseURL:       strings.TrimRight(getEnv("LISTING_BASE_URL", "https://www.rentfaster.ca"), "/"),

		MapsAPIKey:    getEnv("GOOGLE_MAPS_API_KEY", ""),
		DirectionsQPS: getEnvInt("DIRECTIONS_QPS", 10),

		ScrapeDelay: time.Duration(getEnvInt("SCRAPE_DELAY_SECONDS", 60)) * time.Second,
		FetchMode:   strings.ToLower(getEnv("FETCH_MODE", FetchModeHTTP)),
		ChromeBin:   getEnv("CHROME_BIN", ""),
		HTTPTimeout: time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 30)) * time.Second,

		DestinationsFile: getEnv("DESTINATIONS_FILE", ""),

		PostgresEnabled:  getEnvBool("POSTGRES_ENABLED", false),
		PostgresAttempts: getEnvInt("POSTGRES_CONNECT_ATTEMPTS", 10),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "rental_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		MetricsTextfile: getEnv("METRICS_TEXTFILE", ""),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
