package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// loads configuration from environment variables
func LoadEnvironmentVariables() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		_ = err // not an error - production environments may not have .env file
	}

	workspaceRoot := os.Getenv("WORKSPACE_ROOT")
	if workspaceRoot == "" {
		return nil, fmt.Errorf("WORKSPACE_ROOT environment variable is required")
	}

	absRoot, err := filepath.Abs(workspaceRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve WORKSPACE_ROOT: %w", err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("WORKSPACE_ROOT is not accessible: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("WORKSPACE_ROOT must be a directory")
	}

	defaultProvider := os.Getenv("ACTIVE_PROVIDER")
	if defaultProvider == "" {
		defaultProvider = "claude"
	}

	environment := os.Getenv("ENVIRONMENT")
	if environment == "" {
		environment = "development"
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// provider API keys are intentionally not validated here: a missing key
	// surfaces as a per-dispatch configuration error, not a startup failure
	return &Config{
		WorkspaceRoot:   absRoot,
		DefaultProvider: defaultProvider,
		ShowWelcome:     os.Getenv("SHOW_WELCOME") != "false",
		Environment:     environment,
		Port:            port,
	}, nil
}
