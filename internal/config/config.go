package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	HTTPAddress      string
	Language         string
	AssemblyAIKey    string
	DeepgramKey      string
	DeepgramTTSModel string
	CerebrasKey      string
	CerebrasModelID  string
	SupabaseURL      string
	SupabaseKey      string
}

// Load reads environment variables and returns Config with sane defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file loaded")
	}

	addr := os.Getenv("HTTP_ADDRESS")
	if addr == "" {
		addr = ":8080"
	}

	lang := os.Getenv("ASSISTANT_LANG")
	if lang != "en" && lang != "es" {
		if lang != "" {
			log.Printf("config: unsupported ASSISTANT_LANG %q, falling back to en", lang)
		}
		lang = "en"
	}

	assemblyKey := os.Getenv("ASSEMBLYAI_API_KEY")
	if assemblyKey == "" {
		log.Println("Warning: ASSEMBLYAI_API_KEY not set - live transcription will not work")
	}

	deepgramKey := os.Getenv("DEEPGRAM_API_KEY")
	if deepgramKey == "" {
		log.Println("Warning: DEEPGRAM_API_KEY not set - speech synthesis will not work")
	}

	cerebrasKey := os.Getenv("CEREBRAS_API_KEY")
	if cerebrasKey == "" {
		log.Println("Warning: CEREBRAS_API_KEY not set - conversational replies will not work")
	}
	cerebrasModel := os.Getenv("CEREBRAS_MODEL_ID")
	if cerebrasModel == "" {
		cerebrasModel = "gpt-oss-120b"
	}

	supabaseURL := os.Getenv("SUPABASE_URL")
	supabaseKey := os.Getenv("SUPABASE_SERVICE_KEY")
	if supabaseURL == "" || supabaseKey == "" {
		log.Println("Warning: SUPABASE_URL/SUPABASE_SERVICE_KEY not set - actions will not persist")
	}

	log.Printf("config: HTTP_ADDRESS=%s lang=%s", addr, lang)
	return Config{
		HTTPAddress:      addr,
		Language:         lang,
		AssemblyAIKey:    assemblyKey,
		DeepgramKey:      deepgramKey,
		DeepgramTTSModel: os.Getenv("DEEPGRAM_TTS_MODEL"),
		CerebrasKey:      cerebrasKey,
		CerebrasModelID:  cerebrasModel,
		SupabaseURL:      supabaseURL,
		SupabaseKey:      supabaseKey,
	}
}
