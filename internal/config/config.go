package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Ai       AIConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	GoogleGemini     string
	NoteTouchedTopic string // in-process activity topic
}

type AIConfig struct {
	LLMProvider string // "gemini" or "ollama"
	LLMModel    string // e.g. "gemini-2.0-flash", "llama3"

	OllamaBaseURL string

	// Chat pipeline tuning
	HistoryWindow      int // turns fed to the prompt builder
	StreamChunkSize    int // bytes per paced write
	StreamDelayMs      int // pause between chunks
	GenerateTimeoutSec int // bound on a single generation call
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			GoogleGemini:     getEnv("GOOGLE_GEMINI_API_KEY", ""),
			NoteTouchedTopic: getEnv("NOTE_TOUCHED_TOPIC_NAME", "NOTE_TOUCHED"),
		},
		Ai: AIConfig{
			LLMProvider:        getEnv("LLM_PROVIDER", "gemini"),
			LLMModel:           getEnv("LLM_MODEL", "gemini-2.0-flash"),
			OllamaBaseURL:      getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			HistoryWindow:      getEnvAsInt("CHAT_HISTORY_WINDOW", 10),
			StreamChunkSize:    getEnvAsInt("CHAT_STREAM_CHUNK_SIZE", 1),
			StreamDelayMs:      getEnvAsInt("CHAT_STREAM_DELAY_MS", 5),
			GenerateTimeoutSec: getEnvAsInt("CHAT_GENERATE_TIMEOUT_SEC", 120),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
