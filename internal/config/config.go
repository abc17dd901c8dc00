package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Model    ModelConfig
	Matching MatchingConfig
	Storage  StorageConfig
	Worker   WorkerConfig
	Gemini   GeminiConfig
	Qdrant   QdrantConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogJSON  bool
	LogDebug bool
}

type DatabaseConfig struct {
	Driver   string
	Path     string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type ModelConfig struct {
	Dir          string
	SkillDir     string
	SkillBackend string
	RuntimeLib   string
	MaxLength    int
}

type MatchingConfig struct {
	BatchSize  int
	Timeout    time.Duration
	MaxResumes int
}

type StorageConfig struct {
	UploadPath     string
	AcceptedPath   string
	MaxFileSize    int64
	MaxRequestSize int64
}

type WorkerConfig struct {
	Concurrency  int
	PollInterval time.Duration
}

type GeminiConfig struct {
	APIKey     string
	EmbedModel string
}

type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	VectorSize uint64
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	SkillBackendONNX      = "onnx"
	SkillBackendGazetteer = "gazetteer"
)

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using default values.")
	}

	return &Config{
		Server: ServerConfig{
			Port:     getEnv("PORT", "3000"),
			Env:      getEnv("ENV", "development"),
			LogJSON:  getEnvAsBool("LOG_JSON", false),
			LogDebug: getEnvAsBool("LOG_DEBUG", false),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", DriverSQLite),
			Path:     getEnv("DB_PATH", "./hiresense.db"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "hiresense"),
		},
		Model: ModelConfig{
			Dir:          getEnv("MODEL_DIR", "./hiresense_hybrid_model"),
			SkillDir:     getEnv("SKILL_MODEL_DIR", "./skill_extractor_model"),
			SkillBackend: getEnv("SKILL_BACKEND", SkillBackendONNX),
			RuntimeLib:   getEnv("ONNXRUNTIME_LIB", ""),
			MaxLength:    getEnvAsInt("MODEL_MAX_LENGTH", 512),
		},
		Matching: MatchingConfig{
			BatchSize:  getEnvAsInt("MATCH_BATCH_SIZE", 16),
			Timeout:    getEnvAsDuration("MATCH_TIMEOUT", "2m"),
			MaxResumes: getEnvAsInt("MAX_RESUMES", 200),
		},
		Storage: StorageConfig{
			UploadPath:     getEnv("UPLOAD_PATH", "./temp_resumes"),
			AcceptedPath:   getEnv("ACCEPTED_PATH", "./accepted_resumes"),
			MaxFileSize:    getEnvAsInt64("MAX_FILE_SIZE", 10485760),
			MaxRequestSize: getEnvAsInt64("MAX_REQUEST_SIZE", 104857600),
		},
		Worker: WorkerConfig{
			Concurrency:  getEnvAsInt("WORKER_CONCURRENCY", 2),
			PollInterval: getEnvAsDuration("WORKER_POLL_INTERVAL", "10s"),
		},
		Gemini: GeminiConfig{
			APIKey:     getEnv("GEMINI_API_KEY", ""),
			EmbedModel: getEnv("GEMINI_EMBED_MODEL", "text-embedding-004"),
		},
		Qdrant: QdrantConfig{
			URL:        getEnv("QDRANT_URL", ""),
			APIKey:     getEnv("QDRANT_API_KEY", ""),
			Collection: getEnv("QDRANT_COLLECTION", "hiresense_resumes"),
			VectorSize: uint64(getEnvAsInt64("QDRANT_VECTOR_SIZE", 768)),
		},
	}
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.Database.Driver)
	}

	switch c.Model.SkillBackend {
	case SkillBackendONNX, SkillBackendGazetteer:
	default:
		return fmt.Errorf("unknown SKILL_BACKEND %q", c.Model.SkillBackend)
	}

	if c.Model.MaxLength <= 0 {
		return fmt.Errorf("MODEL_MAX_LENGTH must be positive")
	}
	if c.Matching.BatchSize <= 0 {
		return fmt.Errorf("MATCH_BATCH_SIZE must be positive")
	}
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("WORKER_CONCURRENCY must be positive")
	}
	return nil
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// LegacyEnabled reports whether the cosine-similarity path can run.
func (c *Config) LegacyEnabled() bool {
	return c.Gemini.APIKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
