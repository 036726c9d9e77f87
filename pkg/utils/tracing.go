package utils

const defaultServiceName = "waitlister-api"

// IsTracingEnabled is opt-in through OTEL_TRACES_ENABLED.
func IsTracingEnabled() bool {
	return GetEnvBool("OTEL_TRACES_ENABLED", false)
}

// IsMetricsEnabled is opt-out through METRICS_ENABLED.
func IsMetricsEnabled() bool {
	return GetEnvBool("METRICS_ENABLED", true)
}

func OTelServiceName() string {
	return GetEnvTrimmedOrDefault("OTEL_SERVICE_NAME", defaultServiceName)
}
