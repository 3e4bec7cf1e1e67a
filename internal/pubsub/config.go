package pubsub

import (
	"os"
	"strconv"
)

// LoadTracingConfigFromEnv reads PUBSUB_TRACING_ENABLED,
// PUBSUB_TRACING_SERVICE_NAME and PUBSUB_TRACING_ZIPKIN_URL over the defaults.
func LoadTracingConfigFromEnv() TracingConfig {
	config := DefaultTracingConfig()

	if enabledStr := os.Getenv("PUBSUB_TRACING_ENABLED"); enabledStr != "" {
		if enabled, err := strconv.ParseBool(enabledStr); err == nil {
			config.Enabled = enabled
		}
	}
	if serviceName := os.Getenv("PUBSUB_TRACING_SERVICE_NAME"); serviceName != "" {
		config.ServiceName = serviceName
	}
	if zipkinURL := os.Getenv("PUBSUB_TRACING_ZIPKIN_URL"); zipkinURL != "" {
		config.ZipkinURL = zipkinURL
	}

	return config
}
