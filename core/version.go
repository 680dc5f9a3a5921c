package core

// Version information for the storefront service.
const (
	// Version is the current service version.
	Version = "development"

	// BuildDate is set during build time.
	BuildDate = "development"

	// GitCommit is set during build time.
	GitCommit = "unknown"
)
