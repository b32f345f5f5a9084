// Package version exposes the build version of toolbridge.
package version

import "runtime/debug"

// Version is overridden at build time through
// -ldflags "-X github.com/mcpjungle/toolbridge/pkg/version.Version=v1.2.3"
var Version = "dev"

// GetVersion returns the version set at build time, falling back to the module version
// recorded by the go toolchain when installed with `go install`.
func GetVersion() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}
