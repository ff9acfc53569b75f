package app

import "fmt"

// Build metadata, injected via -ldflags at release time.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// ShowVersion prints build information to stdout.
func ShowVersion() {
	fmt.Printf("adsb1090 %s (built %s, commit %s)\n", Version, BuildTime, GitCommit)
}
