package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBLogLevel string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	ChatModel     string
	// Requests per second shared by every OpenAI call.
	OpenAIRateLimit float64

	// "openai" or "gemini"; only generation moves, embeddings stay on OpenAI.
	LLMProvider  string
	GeminiAPIKey string
	GeminiModel  string

	ServerPort string
	ServerHost string
	// Chat responses are long-lived streams, so the write timeout is much
	// longer than the read timeout.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	Storage StorageConfig

	Pipeline PipelineConfig

	// Reprocessing pool (brdctl reprocess)
	ReprocessWorkers int

	// Observability
	JaegerEndpoint string
	TraceSampling  float64
}

type StorageConfig struct {
	Type         string // "local" or "s3"
	LocalPath    string
	S3Bucket     string
	S3Region     string
	AWSAccessKey string
	AWSSecretKey string
}

// PipelineConfig holds the ingestion and retrieval tuning knobs. It can be
// overridden from a YAML file named by PIPELINE_CONFIG_FILE.
type PipelineConfig struct {
	ChunkTokens         int     `yaml:"chunk_tokens"`
	OverlapTokens       int     `yaml:"overlap_tokens"`
	CharsPerToken       int     `yaml:"chars_per_token"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	MatchCount          int     `yaml:"match_count"`
	CorpusMaxTokens     int     `yaml:"corpus_max_tokens"`
	MaxUploadBytes      int64   `yaml:"max_upload_bytes"`
}

// DefaultPipeline returns the tuning used when nothing is configured.
func DefaultPipeline() PipelineConfig {
	return PipelineConfig{
		ChunkTokens:         800,
		OverlapTokens:       200,
		CharsPerToken:       4,
		SimilarityThreshold: 0.7,
		MatchCount:          8,
		CorpusMaxTokens:     80000,
		MaxUploadBytes:      100 * 1024 * 1024,
	}
}

// CorpusMaxChars is the character budget of BRD corpus aggregation.
func (p PipelineConfig) CorpusMaxChars() int {
	return p.CorpusMaxTokens * p.CharsPerToken
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "brd_generator"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		DBLogLevel: getEnv("DB_LOG_LEVEL", "warn"),

		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		ChatModel:       getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
		OpenAIRateLimit: getEnvFloat("OPENAI_RATE_LIMIT", 10),

		LLMProvider:  getEnv("LLM_PROVIDER", "openai"),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),

		ServerPort:   getEnv("SERVER_PORT", "8080"),
		ServerHost:   getEnv("SERVER_HOST", "localhost"),
		ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 60*time.Second),
		WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 10*time.Minute),

		Storage: StorageConfig{
			Type:         getEnv("STORAGE_TYPE", "local"),
			LocalPath:    getEnv("STORAGE_LOCAL_PATH", "./storage/files"),
			S3Bucket:     getEnv("AWS_S3_BUCKET", ""),
			S3Region:     getEnv("AWS_REGION", "us-east-1"),
			AWSAccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
			AWSSecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		},

		Pipeline: DefaultPipeline(),

		ReprocessWorkers: getEnvInt("REPROCESS_WORKERS", 4),

		JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
		TraceSampling:  getEnvFloat("TRACE_SAMPLING", 1.0),
	}

	if path := os.Getenv("PIPELINE_CONFIG_FILE"); path != "" {
		if err := cfg.Pipeline.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the settings that have no usable default.
func (c *Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}

	switch c.LLMProvider {
	case "openai":
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when LLM_PROVIDER=gemini")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}

	switch c.Storage.Type {
	case "local":
	case "s3":
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("AWS_S3_BUCKET is required when STORAGE_TYPE=s3")
		}
	default:
		return fmt.Errorf("unknown STORAGE_TYPE %q", c.Storage.Type)
	}

	return c.Pipeline.Validate()
}

// LoadFile overlays the non-zero values of a YAML file onto p.
func (p *PipelineConfig) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read pipeline config: %w", err)
	}

	var overlay PipelineConfig
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("failed to parse pipeline config: %w", err)
	}

	if overlay.ChunkTokens > 0 {
		p.ChunkTokens = overlay.ChunkTokens
	}
	if overlay.OverlapTokens > 0 {
		p.OverlapTokens = overlay.OverlapTokens
	}
	if overlay.CharsPerToken > 0 {
		p.CharsPerToken = overlay.CharsPerToken
	}
	if overlay.SimilarityThreshold != 0 {
		p.SimilarityThreshold = overlay.SimilarityThreshold
	}
	if overlay.MatchCount > 0 {
		p.MatchCount = overlay.MatchCount
	}
	if overlay.CorpusMaxTokens > 0 {
		p.CorpusMaxTokens = overlay.CorpusMaxTokens
	}
	if overlay.MaxUploadBytes > 0 {
		p.MaxUploadBytes = overlay.MaxUploadBytes
	}

	return nil
}

func (p PipelineConfig) Validate() error {
	if p.ChunkTokens <= 0 || p.CharsPerToken <= 0 {
		return fmt.Errorf("chunk size and chars per token must be positive")
	}
	if p.OverlapTokens < 0 || p.OverlapTokens >= p.ChunkTokens {
		return fmt.Errorf("overlap (%d) must be smaller than chunk size (%d)", p.OverlapTokens, p.ChunkTokens)
	}
	if p.SimilarityThreshold < -1 || p.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity threshold %v is outside [-1, 1]", p.SimilarityThreshold)
	}
	if p.MatchCount <= 0 {
		return fmt.Errorf("match count must be positive")
	}
	if p.CorpusMaxTokens <= 0 {
		return fmt.Errorf("corpus token budget must be positive")
	}
	return nil
}

func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
