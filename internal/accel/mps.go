package accel

import "runtime"

// hasAppleSilicon reports whether Metal Performance Shaders are available.
// MPS requires macOS on Apple silicon.
func hasAppleSilicon() bool {
	return runtime.GOOS == "darwin" && runtime.GOARCH == "arm64"
}
