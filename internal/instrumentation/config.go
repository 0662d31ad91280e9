package instrumentation

// Config holds instrumentation settings.
type Config struct {
	// Enabled determines whether metrics are collected and exported.
	Enabled bool

	// ServiceName identifies this service in exported metrics.
	ServiceName string

	// ServiceVersion is the running build version.
	ServiceVersion string
}

// DefaultConfig returns the default instrumentation configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		ServiceName: "mailrules",
	}
}
