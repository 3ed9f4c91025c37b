package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Device string

const (
	CPU  Device = "cpu"
	CUDA Device = "cuda"
)

type Config struct {
	Port        string
	ModelsDir   string
	Device      Device
	RuntimeLib  string
	Threads     int
	MaxUploadMB int
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		ModelsDir:   getEnv("IMGEVAL_MODELS", "models"),
		Device:      parseDevice(getEnv("IMGEVAL_DEVICE", "cpu")),
		RuntimeLib:  getEnv("IMGEVAL_ORT_LIB", ""),
		Threads:     getEnvInt("IMGEVAL_THREADS", 0),
		MaxUploadMB: getEnvInt("IMGEVAL_MAX_UPLOAD_MB", 10),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ModelsDir == "" {
		return fmt.Errorf("IMGEVAL_MODELS must not be empty")
	}
	if c.Threads < 0 {
		return fmt.Errorf("IMGEVAL_THREADS must be >= 0, got %d", c.Threads)
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("IMGEVAL_MAX_UPLOAD_MB must be > 0, got %d", c.MaxUploadMB)
	}
	return nil
}

func parseDevice(s string) Device {
	switch d := Device(strings.ToLower(strings.TrimSpace(s))); d {
	case CUDA:
		return d
	default:
		return CPU
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
