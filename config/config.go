package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"lianjia-rentals/storage"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	BaseURL     string
	ListingHost string
	FirstPage   int
	LastPage    int

	PageDelayMs      int
	RequestTimeoutMs int
	UserAgent        string
	FetchMode        string
	ChromeBin        string

	DBDriver         string
	DBDSN            string
	DBConnectRetries int

	RawCSVPath string

	ReportDir      string
	ReportFontPath string
	S3Bucket       string
	S3Prefix       string

	LogLevel string
}

const (
	FetchModeHTTP    = "http"
	FetchModeBrowser = "browser"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		BaseURL:     getEnv("LISTING_BASE_URL", "https://sh.lianjia.com/zufang/pg"),
		ListingHost: getEnv("LISTING_HOST", "https://sh.lianjia.com"),
		FirstPage:   getEnvInt("FIRST_PAGE", 1),
		LastPage:    getEnvInt("LAST_PAGE", 49),

		PageDelayMs:      getEnvInt("PAGE_DELAY_MS", 2000),
		RequestTimeoutMs: getEnvInt("REQUEST_TIMEOUT_MS", 10000),
		UserAgent:        getEnv("USER_AGENT", defaultUserAgent),
		FetchMode:        strings.ToLower(getEnv("FETCH_MODE", FetchModeHTTP)),
		ChromeBin:        getEnv("CHROME_BIN", ""),

		DBDriver:         strings.ToLower(getEnv("DB_DRIVER", storage.DriverSQLite)),
		DBDSN:            getEnv("DB_DSN", "rentals.db"),
		DBConnectRetries: getEnvInt("DB_CONNECT_RETRIES", 3),

		RawCSVPath: getEnv("RAW_CSV_PATH", ""),

		ReportDir:      getEnv("REPORT_DIR", "./image"),
		ReportFontPath: getEnv("REPORT_FONT_PATH", ""),
		S3Bucket:       getEnv("REPORT_S3_BUCKET", ""),
		S3Prefix:       getEnv("REPORT_S3_PREFIX", "reports/"),

		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}
}

// PageDelay is the minimum spacing between two page requests.
func (c *Config) PageDelay() time.Duration {
	return time.Duration(c.PageDelayMs) * time.Millisecond
}

// RequestTimeout bounds a single page fetch.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// PageURL builds the listing URL for one page number.
func (c *Config) PageURL(page int) string {
	return c.BaseURL + strconv.Itoa(page) + "/"
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
		log.Printf("[config] Invalid integer for %s=%q, using default %d", key, val, fallback)
	}
	return fallback
}
