package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	HTTPAddress     string
	GeminiAPIKey    string
	GeminiModel     string
	GeminiVoice     string
	SemanticAPIKey  string
	SemanticModelID string
	DBPath          string
	// AudioInPath and AudioOutPath are the PCM pipes the host shell bridges
	// the device streams through: 48kHz mono PCM16LE in, 24kHz out.
	AudioInPath  string
	AudioOutPath string
}

// Load reads environment variables and returns Config with sane defaults.
func Load() Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file")
	}

	addr := os.Getenv("HTTP_ADDRESS")
	if addr == "" {
		addr = ":8080"
	}

	geminiKey := os.Getenv("GEMINI_API_KEY")
	if geminiKey == "" {
		log.Println("Warning: GEMINI_API_KEY not set - live voice sessions will not work")
	}

	geminiModel := os.Getenv("GEMINI_MODEL")
	if geminiModel == "" {
		geminiModel = "models/gemini-2.0-flash-live-001"
	}

	geminiVoice := os.Getenv("GEMINI_VOICE")
	if geminiVoice == "" {
		geminiVoice = "Aoede"
	}

	semanticKey := os.Getenv("SEMANTIC_API_KEY")
	if semanticKey == "" {
		log.Println("Warning: SEMANTIC_API_KEY not set - post-session analysis will not work")
	}

	semanticModel := os.Getenv("SEMANTIC_MODEL_ID")
	if semanticModel == "" {
		semanticModel = "gpt-oss-120b"
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "kanari.db"
	}

	audioIn := os.Getenv("AUDIO_IN_PATH")
	if audioIn == "" {
		audioIn = "audio_in.pcm"
	}
	audioOut := os.Getenv("AUDIO_OUT_PATH")
	if audioOut == "" {
		audioOut = "audio_out.pcm"
	}

	log.Printf("config: HTTP_ADDRESS=%s", addr)
	return Config{
		HTTPAddress:     addr,
		GeminiAPIKey:    geminiKey,
		GeminiModel:     geminiModel,
		GeminiVoice:     geminiVoice,
		SemanticAPIKey:  semanticKey,
		SemanticModelID: semanticModel,
		DBPath:          dbPath,
		AudioInPath:     audioIn,
		AudioOutPath:    audioOut,
	}
}
