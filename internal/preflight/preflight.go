// Package preflight runs safety checks before mlsetup touches the
// filesystem.
package preflight

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// protectedUnixPaths are roots that must never become an ML workspace.
var protectedUnixPaths = []string{
	"/",
	"/bin",
	"/boot",
	"/dev",
	"/etc",
	"/lib",
	"/proc",
	"/sbin",
	"/sys",
	"/usr",
	"/var",
}

// Checks validates the workspace root before any directory is created.
func Checks(root string) error {
	if root == "" {
		return fmt.Errorf("workspace root must not be empty")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("failed to resolve workspace root %s: %w", root, err)
	}

	if IsProtectedPath(abs) {
		return fmt.Errorf("refusing to initialize protected system path: %s", abs)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			// The root itself may not exist yet; its parent must be usable.
			return checkWritable(filepath.Dir(abs))
		}
		return fmt.Errorf("failed to inspect workspace root %s: %w", abs, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("workspace root is not a directory: %s", abs)
	}

	return checkWritable(abs)
}

// IsProtectedPath reports whether path is a system location that must not be
// initialized.
func IsProtectedPath(path string) bool {
	clean := filepath.Clean(path)

	if runtime.GOOS == "windows" {
		for _, env := range []string{"WINDIR", "PROGRAMFILES", "PROGRAMFILES(X86)"} {
			if v := os.Getenv(env); v != "" && clean == filepath.Clean(v) {
				return true
			}
		}
		// Drive roots such as C:\
		if len(clean) == 3 && clean[1] == ':' {
			return true
		}
		return false
	}

	for _, protected := range protectedUnixPaths {
		if clean == protected {
			return true
		}
	}
	return false
}

// checkWritable probes the directory with a throwaway file. A plain
// permission-bit check would miss read-only mounts.
func checkWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".mlsetup-preflight-*")
	if err != nil {
		return fmt.Errorf("workspace root is not writable: %s: %w", dir, err)
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return nil
}
