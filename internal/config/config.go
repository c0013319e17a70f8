package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds environment driven settings. Model, precision, device, frame
// count and frame rate are not here: they are fixed by the pipeline package.
type Config struct {
	Python      string // interpreter used to run the diffusers runner
	LogLevel    string
	HistoryFile string // JSON run history, empty disables it
	DatabaseURL string // Postgres run history, empty disables it
	OllamaURL   string // caption agent endpoint, empty disables it
	RedisURL    string
	OpenAIKey   string
	OutputDir   string // worker output and server static root
	Port        string
}

// Load reads a .env file when present and then the process environment
func Load() Config {
	// a missing .env is fine; the environment alone is enough
	_ = godotenv.Load()

	return Config{
		Python:      getenv("GENVIDEO_PYTHON", "python3"),
		LogLevel:    getenv("GENVIDEO_LOG_LEVEL", "info"),
		HistoryFile: os.Getenv("GENVIDEO_HISTORY_FILE"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		OllamaURL:   os.Getenv("GENVIDEO_OLLAMA_URL"),
		RedisURL:    getenv("REDIS_URL", "localhost:6379"),
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		OutputDir:   getenv("OUTPUT_DIR", "videos"),
		Port:        getenv("PORT", "3000"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
