// Package version exposes build identity stamped in via -ldflags.
package version

// Overridden at release build time with
// -ldflags "-X practiceapp/internal/version.Version=..."; the defaults
// identify a development binary.
var (
	Version   = "dev"
	Commit    = "dev"
	BuildTime = "unknown"
)
