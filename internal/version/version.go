package version

import (
	"fmt"
	"runtime"
)

// Set at build time through -ldflags "-X".
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
	GoVersion = runtime.Version()
)

// String renders the one-line banner printed by `checkvpn version`.
func String() string {
	return fmt.Sprintf("checkvpn %s (commit %s, built %s, %s)", Version, Commit, BuildDate, GoVersion)
}
