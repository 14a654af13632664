package config

import (
	"fmt"
	"runtime"
)

// Build information.
// These variables are set at build time using ldflags:
//
//	-X arxivdl/pkg/config.BuildVersion=... -X arxivdl/pkg/config.BuildTimestamp=...
var (
	BuildVersion   = "unknown"
	BuildTimestamp = "unknown"
)

// GetBuildInfo returns a formatted string with build details.
func GetBuildInfo() string {
	return fmt.Sprintf("arxivdl %s (%s) %s %s/%s", BuildVersion, BuildTimestamp, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
