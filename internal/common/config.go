package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultOllamaHost is where both inference engines are expected to listen.
const DefaultOllamaHost = "http://localhost:11434"

// DefaultOCRPrompt asks the OCR model for a faithful markdown transcription.
const DefaultOCRPrompt = "Extract the text from the above document as if you were reading it naturally. " +
	"Return the tables in markdown format. Keep every number, date and identifier exactly as printed."

// Config holds all application configuration
type Config struct {
	Ollama OllamaConfig
	OCR    OCRConfig
	Image  ImageConfig
	Run    RunConfig
	Ledger LedgerConfig
}

// OllamaConfig holds inference-engine configuration
type OllamaConfig struct {
	Host         string
	Binary       string
	OCRModel     string
	OCRPrompt    string
	ExtractModel string
	NumCtx       int
	Timeout      time.Duration
	PullModels   bool
	PullTimeout  time.Duration // 0 = no limit beyond cancellation
}

// OCRConfig holds page decomposition configuration
type OCRConfig struct {
	Rasterizer    string // "fitz" | "pdftoppm"
	Pdftoppm      string
	DPI           int
	MaxPages      int // 0 = no limit
	HeicConverter string
}

// ImageConfig holds image normalization configuration
type ImageConfig struct {
	MaxArea int
}

// RunConfig holds scratch workspace configuration
type RunConfig struct {
	ScratchDir string // parent of the per-run workspace; empty = os.TempDir()
}

// LedgerConfig holds the optional run ledger configuration
type LedgerConfig struct {
	DSN string
}

// LoadConfig loads configuration from environment variables. A .env file in
// the working directory is read first when present.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Ollama: OllamaConfig{
			Host:         NormalizeHost(getEnv("OLLAMA_HOST", DefaultOllamaHost)),
			Binary:       getEnv("OLLAMA_BIN", "ollama"),
			OCRModel:     getEnv("OCR_MODEL", "benhaotang/Nanonets-OCR-s"),
			OCRPrompt:    getEnv("OCR_PROMPT", DefaultOCRPrompt),
			ExtractModel: getEnv("EXTRACT_MODEL", "qwen2.5:7b"),
			NumCtx:       getEnvAsInt("EXTRACT_NUM_CTX", 16384),
			Timeout:      getEnvAsDuration("EXTRACT_TIMEOUT", 5*time.Minute),
			PullModels:   getEnvAsBool("OLLAMA_PULL_MODELS", true),
			PullTimeout:  getEnvAsDuration("OLLAMA_PULL_TIMEOUT", 0),
		},
		OCR: OCRConfig{
			Rasterizer:    getEnv("PDF_RASTERIZER", "fitz"),
			Pdftoppm:      getEnv("PDFTOPPM_BIN", "pdftoppm"),
			DPI:           getEnvAsInt("PDF_DPI", 200),
			MaxPages:      getEnvAsInt("MAX_PAGES", 0),
			HeicConverter: getEnv("HEIC_CONVERTER", "magick"),
		},
		Image: ImageConfig{
			MaxArea: getEnvAsInt("MAX_IMAGE_AREA", 1024*1024),
		},
		Run: RunConfig{
			ScratchDir: getEnv("SCRATCH_DIR", ""),
		},
		Ledger: LedgerConfig{
			DSN: getEnv("LEDGER_DSN", ""),
		},
	}
}

// NormalizeHost accepts the forms OLLAMA_HOST takes in the wild
// ("0.0.0.0:11434", "localhost", "http://host:port/") and returns a base URL.
func NormalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return DefaultOllamaHost
	}
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return strings.TrimRight(host, "/")
	}
	host = strings.TrimRight(host, "/")
	// bare hostname without a port -> ollama's default port
	if !strings.Contains(host, ":") {
		host += ":11434"
	}
	return "http://" + host
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("OLLAMA_BIN", c.Ollama.Binary, Required).
		Field("OCR_MODEL", c.Ollama.OCRModel, Required).
		Field("EXTRACT_MODEL", c.Ollama.ExtractModel, Required).
		Field("EXTRACT_NUM_CTX", c.Ollama.NumCtx, Positive).
		Field("MAX_IMAGE_AREA", c.Image.MaxArea, Positive).
		Field("PDF_DPI", c.OCR.DPI, Between(36, 1200)).
		Field("MAX_PAGES", c.OCR.MaxPages, NonNegative).
		Field("PDF_RASTERIZER", c.OCR.Rasterizer, OneOf("fitz", "pdftoppm")).
		Field("HEIC_CONVERTER", c.OCR.HeicConverter, OneOf("magick", "heif-convert", "sips"))
	return v.Err()
}
