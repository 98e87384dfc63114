// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	BackendURL     string
	BackendTimeout time.Duration
	ListenAddr     string
	DBPath         string
	EncryptionKey  []byte
	GitHubToken    string
	DefaultModel   string
	Models         []string
}

// Load reads configuration from environment variables and returns a validated
// Config. A .env file in the working directory is loaded first when present.
// DKMV_BACKEND_URL is required; everything else has a default.
// DKMV_ENCRYPTION_KEY (64 hex chars) is optional; without it credential
// storage is disabled and login falls back to session-only tokens.
func Load() (*Config, error) {
	_ = godotenv.Load()

	backendURL := os.Getenv("DKMV_BACKEND_URL")
	if backendURL == "" {
		return nil, fmt.Errorf("DKMV_BACKEND_URL is required")
	}
	if _, err := url.Parse(backendURL); err != nil {
		return nil, fmt.Errorf("DKMV_BACKEND_URL is not a valid URL %q: %w", backendURL, err)
	}

	backendTimeout := 30 * time.Second
	if v, ok := os.LookupEnv("DKMV_BACKEND_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("DKMV_BACKEND_TIMEOUT has invalid duration %q: %w", v, err)
		}
		backendTimeout = parsed
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("DKMV_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "dkmv.db"
	if v, ok := os.LookupEnv("DKMV_DB_PATH"); ok {
		dbPath = v
	}

	var key []byte
	if v, ok := os.LookupEnv("DKMV_ENCRYPTION_KEY"); ok && v != "" {
		decoded, err := hex.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("DKMV_ENCRYPTION_KEY is not valid hex: %w", err)
		}
		if len(decoded) != 32 {
			return nil, fmt.Errorf("DKMV_ENCRYPTION_KEY must decode to 32 bytes, got %d", len(decoded))
		}
		key = decoded
	}

	defaultModel := "openai/gpt-4"
	if v, ok := os.LookupEnv("DKMV_DEFAULT_MODEL"); ok && v != "" {
		defaultModel = v
	}

	models := []string{defaultModel}
	if v, ok := os.LookupEnv("DKMV_MODELS"); ok && v != "" {
		models = models[:0]
		for _, m := range strings.Split(v, ",") {
			m = strings.TrimSpace(m)
			if m != "" {
				models = append(models, m)
			}
		}
		if len(models) == 0 {
			models = []string{defaultModel}
		}
	}

	return &Config{
		BackendURL:     strings.TrimRight(backendURL, "/"),
		BackendTimeout: backendTimeout,
		ListenAddr:     listenAddr,
		DBPath:         dbPath,
		EncryptionKey:  key,
		GitHubToken:    os.Getenv("DKMV_GITHUB_TOKEN"),
		DefaultModel:   defaultModel,
		Models:         models,
	}, nil
}
