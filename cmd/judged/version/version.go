// Package version exposes the build version reported by /version.
package version

import "runtime/debug"

// Version is resolved from the module's build info when available.
var Version = "unable to get version"

func init() {
	inf, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	Version = inf.Main.Version
}
