package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultOutputDir   = "data/output"
	DefaultInputDir    = "data/input"
	DefaultMarketplace = "com"
	DefaultUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Config carries everything the binaries read from the environment. The
// database sinks (Mongo, Postgres) are only needed by cmd/sync and are
// validated there, not here.
type Config struct {
	OutputDir      string
	InputDir       string
	CheckpointPath string
	Marketplace    string
	UserAgent      string

	MinDelay        time.Duration
	MaxDelay        time.Duration
	StorefrontDelay time.Duration
	BatchDelay      time.Duration
	BatchSize       int

	MongoURI    string
	MongoDBName string
	PostgresURI string
}

// Load reads .env if present and resolves the config with defaults.
func Load() Config {
	// load .env if present but don't error if not present
	_ = godotenv.Load()

	cfg := Config{
		OutputDir:       getEnv("OUTPUT_DIR", DefaultOutputDir),
		InputDir:        getEnv("INPUT_DIR", DefaultInputDir),
		Marketplace:     getEnv("MARKETPLACE", DefaultMarketplace),
		UserAgent:       getEnv("USER_AGENT", DefaultUserAgent),
		MinDelay:        getEnvMillis("MIN_DELAY_MS", 3000),
		MaxDelay:        getEnvMillis("MAX_DELAY_MS", 8000),
		StorefrontDelay: getEnvMillis("STOREFRONT_DELAY_MS", 5000),
		BatchDelay:      getEnvMillis("BATCH_DELAY_MS", 30000),
		BatchSize:       getEnvInt("BATCH_SIZE", 50),
		MongoURI:        os.Getenv("MONGODB_URI"),
		MongoDBName:     getEnv("MONGO_DB_NAME", "storefronts"),
		PostgresURI:     os.Getenv("POSTGRES_URI"),
	}
	cfg.CheckpointPath = getEnv("CHECKPOINT_PATH", cfg.InputDir+"/checkpoint.json")
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvMillis(key string, fallback int) time.Duration {
	return time.Duration(getEnvInt(key, fallback)) * time.Millisecond
}
