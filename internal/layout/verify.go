package layout

import (
	"fmt"
	"os"
	"path/filepath"
)

// VerificationResult lists the gaps found in an initialized workspace.
type VerificationResult struct {
	Root           string   `json:"root"`
	Checked        int      `json:"checked"`
	MissingDirs    []string `json:"missing_dirs,omitempty"`
	MissingMarkers []string `json:"missing_markers,omitempty"`
	NotDirectories []string `json:"not_directories,omitempty"`
}

// OK reports whether the tree is complete.
func (v *VerificationResult) OK() bool {
	return len(v.MissingDirs) == 0 && len(v.MissingMarkers) == 0 && len(v.NotDirectories) == 0
}

// Verify checks that every directory of the tree exists, is a directory and
// contains its marker file. Verification is read-only.
func Verify(root, marker string, dirs []Dir) (*VerificationResult, error) {
	if root == "" {
		return nil, fmt.Errorf("workspace root must not be empty")
	}

	result := &VerificationResult{
		Root:    root,
		Checked: len(dirs),
	}

	for _, dir := range dirs {
		dirPath := filepath.Join(root, dir.Path)

		info, err := os.Stat(dirPath)
		if err != nil {
			if os.IsNotExist(err) {
				result.MissingDirs = append(result.MissingDirs, dir.Path)
				continue
			}
			return nil, fmt.Errorf("failed to inspect %s: %w", dirPath, err)
		}

		if !info.IsDir() {
			result.NotDirectories = append(result.NotDirectories, dir.Path)
			continue
		}

		markerPath := filepath.Join(dirPath, marker)
		if _, err := os.Stat(markerPath); err != nil {
			if os.IsNotExist(err) {
				result.MissingMarkers = append(result.MissingMarkers, dir.Path)
				continue
			}
			return nil, fmt.Errorf("failed to inspect %s: %w", markerPath, err)
		}
	}

	return result, nil
}
