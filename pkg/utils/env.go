package utils

import (
	"os"
	"strings"
)

// Env gets a trimmed environment variable with a default value
func Env(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}
