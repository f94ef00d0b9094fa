package preflight

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestChecksAcceptsTempDir(t *testing.T) {
	if err := Checks(t.TempDir()); err != nil {
		t.Errorf("Checks on temp dir: %v", err)
	}
}

func TestChecksRejectsEmptyRoot(t *testing.T) {
	if err := Checks(""); err == nil {
		t.Error("expected error for empty root")
	}
}

func TestChecksRejectsProtectedPaths(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix path list")
	}

	for _, path := range []string{"/", "/etc", "/usr", "/var/.."} {
		if err := Checks(path); err == nil {
			t.Errorf("expected rejection for %s", path)
		}
	}
}

func TestChecksRejectsFileRoot(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "afile")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := Checks(file); err == nil {
		t.Error("expected error when root is a regular file")
	}
}

func TestChecksAcceptsMissingRootWithUsableParent(t *testing.T) {
	root := filepath.Join(t.TempDir(), "workspace")
	if err := Checks(root); err != nil {
		t.Errorf("missing root with writable parent must pass: %v", err)
	}
}

func TestChecksRejectsUnwritableRoot(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("chmod semantics differ on windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("root ignores permission bits")
	}

	dir := t.TempDir()
	if err := os.Chmod(dir, 0555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(dir, 0755) })

	if err := Checks(dir); err == nil {
		t.Error("expected error for read-only root")
	}
}

func TestIsProtectedPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix path list")
	}

	tests := []struct {
		path string
		want bool
	}{
		{"/", true},
		{"/etc", true},
		{"/etc/", true},
		{"/usr", true},
		{"/home", false},
		{"/tmp", false},
		{"/etc/myproject", false},
	}

	for _, tt := range tests {
		if got := IsProtectedPath(tt.path); got != tt.want {
			t.Errorf("IsProtectedPath(%q) = %t, want %t", tt.path, got, tt.want)
		}
	}
}
