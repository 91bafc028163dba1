package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed model.yaml
var modelYAML []byte

type Config struct {
	Server   ServerConfig
	Model    ModelConfig
	Database DatabaseConfig
	Storage  StorageConfig
}

type ServerConfig struct {
	Port   int
	Host   string
	APIKey string // optional, enables X-API-Key auth when set
}

// ModelConfig describes the pretrained embedding model. The static fields
// come from the embedded model.yaml; RunnerURL points at the inference
// runner that hosts the model weights.
type ModelConfig struct {
	Name            string  `yaml:"name"`
	Version         int     `yaml:"version"`
	WidthMultiplier float64 `yaml:"width_multiplier"`
	InputSize       int     `yaml:"input_size"`
	Dim             int     `yaml:"dim"`

	RunnerURL     string `yaml:"-"`
	MaxConcurrent int    `yaml:"-"` // cap on simultaneous inference calls
}

type DatabaseConfig struct {
	URL           string // PostgreSQL connection URL
	MaxOpenConns  int    // Maximum open connections (default 25)
	MaxIdleConns  int    // Maximum idle connections (default 5)
	HNSWEnabled   bool   // Use the in-memory HNSW index instead of exact pgvector scans
	HNSWIndexPath string // Path to persist the catalog HNSW index (optional)
}

type StorageConfig struct {
	UploadsDir string // directory for uploaded pigeon photos (default ./uploads)
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envString reads an environment variable with a fallback default.
func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// envBool reads an environment variable as a boolean flag.
func envBool(key string) bool {
	switch os.Getenv(key) {
	case "1", "true", "TRUE", "yes":
		return true
	}
	return false
}

func Load() *Config {
	var model ModelConfig
	if err := yaml.Unmarshal(modelYAML, &model); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded model.yaml: " + err.Error())
	}

	model.RunnerURL = os.Getenv("MODEL_RUNNER_URL")
	model.MaxConcurrent = envInt("MODEL_MAX_CONCURRENT", 4)

	return &Config{
		Server: ServerConfig{
			Port:   envInt("WEB_PORT", 8080),
			Host:   envString("WEB_HOST", "0.0.0.0"),
			APIKey: os.Getenv("API_KEY"),
		},
		Model: model,
		Database: DatabaseConfig{
			URL:           os.Getenv("DATABASE_URL"),
			MaxOpenConns:  envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:  envInt("DATABASE_MAX_IDLE_CONNS", 5),
			HNSWEnabled:   envBool("HNSW_ENABLED"),
			HNSWIndexPath: os.Getenv("HNSW_INDEX_PATH"),
		},
		Storage: StorageConfig{
			UploadsDir: envString("UPLOADS_DIR", "./uploads"),
		},
	}
}
