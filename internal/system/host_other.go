//go:build !linux && !darwin

package system

import (
	"fmt"
	"runtime"
)

// DiskFree is unsupported outside Linux and macOS; diagnostics degrade the
// result to a warning.
func DiskFree(path string) (uint64, error) {
	return 0, fmt.Errorf("free space check is not supported on %s", runtime.GOOS)
}

func getOSVersion() string {
	return runtime.GOOS
}
