package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadEnv loads a .env file from the working directory or its parent, if one exists.
// It returns the loaded file, or "" when none was found.
func LoadEnv() (string, error) {
	envFile := ".env"
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		envFile = filepath.Join("..", ".env")
		if _, err := os.Stat(envFile); os.IsNotExist(err) {
			return "", nil
		}
	}

	if err := godotenv.Load(envFile); err != nil {
		return "", err
	}
	return envFile, nil
}
