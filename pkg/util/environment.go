package util

import (
	"os"
	"strings"
)

const environmentPrefix = "TIMETABLER_"

// GetEnvironmentVariables snapshots the process environment, keeping only the
// TIMETABLER_-prefixed variables the client packages read.
func GetEnvironmentVariables() map[string]string {
	variables := map[string]string{}

	for _, entry := range os.Environ() {
		name, value, found := strings.Cut(entry, "=")
		if found && strings.HasPrefix(name, environmentPrefix) {
			variables[name] = value
		}
	}

	return variables
}

// EnvOr reads one variable, falling back when it is unset or blank.
func EnvOr(name string, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}

	return fallback
}
