package config

import (
	"fmt"
	"os"
)

// ResolveAPIKey resolves a credential according to source:
// "env" reads envVar, "config" returns configValue, "none" returns "".
func ResolveAPIKey(source, configValue, envVar string) (string, error) {
	switch source {
	case "env":
		return resolveFromEnv(envVar)
	case "config":
		if configValue == "" {
			return "", fmt.Errorf("api_key_source is 'config' but no api_key value provided")
		}
		return configValue, nil
	case "none":
		return "", nil
	default:
		return "", fmt.Errorf("unknown api_key_source: %q", source)
	}
}

func resolveFromEnv(envVar string) (string, error) {
	if envVar == "" {
		return "", fmt.Errorf("no environment variable name specified")
	}
	val := os.Getenv(envVar)
	if val == "" {
		return "", fmt.Errorf("environment variable %s is not set", envVar)
	}
	return val, nil
}
