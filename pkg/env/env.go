package env

import (
	"os"
	"strings"
)

// Get reads a process environment variable, treating blank values as unset.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}
