// Package layout creates and verifies the fixed workspace directory tree.
package layout

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mlsetup/internal/logging"
)

// Directory categories used for selective initialization.
const (
	CategoryData      = "data"
	CategorySource    = "source"
	CategoryModels    = "models"
	CategoryWorkspace = "workspace"
)

// Dir is one entry of the workspace tree.
type Dir struct {
	Path     string
	Category string
}

// ProjectStructure is the standard workspace tree. The order is the creation
// order and is part of the console output contract.
var ProjectStructure = []Dir{
	{Path: "data/raw/images", Category: CategoryData},
	{Path: "data/raw/text", Category: CategoryData},
	{Path: "data/processed/embeddings", Category: CategoryData},
	{Path: "data/processed/graph", Category: CategoryData},
	{Path: "src/encoders", Category: CategorySource},
	{Path: "src/graph", Category: CategorySource},
	{Path: "src/fusion", Category: CategorySource},
	{Path: "src/utils", Category: CategorySource},
	{Path: "models/checkpoints", Category: CategoryModels},
	{Path: "models/exported", Category: CategoryModels},
	{Path: "logs", Category: CategoryWorkspace},
	{Path: "notebooks", Category: CategoryWorkspace},
	{Path: "config", Category: CategoryWorkspace},
}

// minimalStructure is the bare skeleton for the "minimal" profile.
var minimalStructure = []Dir{
	{Path: "data/raw", Category: CategoryData},
	{Path: "data/processed", Category: CategoryData},
	{Path: "src", Category: CategorySource},
	{Path: "models", Category: CategoryModels},
	{Path: "logs", Category: CategoryWorkspace},
	{Path: "config", Category: CategoryWorkspace},
}

// researchExtras extends the standard tree for the "research" profile.
var researchExtras = []Dir{
	{Path: "data/external", Category: CategoryData},
	{Path: "notebooks/experiments", Category: CategoryWorkspace},
	{Path: "models/onnx", Category: CategoryModels},
}

// StructureFor returns the directory set for a layout profile. An empty
// profile means standard.
func StructureFor(profile string) ([]Dir, error) {
	switch profile {
	case "", "standard":
		return append([]Dir(nil), ProjectStructure...), nil
	case "minimal":
		return append([]Dir(nil), minimalStructure...), nil
	case "research":
		dirs := append([]Dir(nil), ProjectStructure...)
		return append(dirs, researchExtras...), nil
	default:
		return nil, fmt.Errorf("unknown layout profile: %s", profile)
	}
}

// FilterByCategory returns the subset of dirs in the given category.
func FilterByCategory(dirs []Dir, category string) []Dir {
	var out []Dir
	for _, dir := range dirs {
		if dir.Category == category {
			out = append(out, dir)
		}
	}
	return out
}

// Categories returns the distinct categories of dirs, in first-seen order.
func Categories(dirs []Dir) []string {
	seen := make(map[string]bool)
	var out []string
	for _, dir := range dirs {
		if !seen[dir.Category] {
			seen[dir.Category] = true
			out = append(out, dir.Category)
		}
	}
	return out
}

// Result records the outcome for one directory.
type Result struct {
	Path     string `json:"path"`
	Category string `json:"category"`
	Created  bool   `json:"created"` // false when the directory already existed
}

// Initializer creates the workspace tree under a root path.
type Initializer struct {
	root   string
	marker string
	logger *logging.Logger
	dryRun bool
}

// NewInitializer returns an initializer. marker is the file touched inside
// every created directory so version control tracks empty directories.
func NewInitializer(root, marker string, logger *logging.Logger, dryRun bool) *Initializer {
	return &Initializer{
		root:   root,
		marker: marker,
		logger: logger,
		dryRun: dryRun,
	}
}

// Initialize ensures every directory exists with its marker file. The
// operation is idempotent: re-running on an initialized tree only refreshes
// marker timestamps. The first filesystem error aborts the run; the returned
// results cover the directories processed up to that point.
func (in *Initializer) Initialize(ctx context.Context, dirs []Dir) ([]Result, error) {
	results := make([]Result, 0, len(dirs))

	for _, dir := range dirs {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		dirPath := filepath.Join(in.root, dir.Path)

		if in.dryRun {
			in.logger.Log("INFO", "[DRY RUN] Would create", "path", dirPath)
			results = append(results, Result{Path: dir.Path, Category: dir.Category})
			continue
		}

		existed := isDir(dirPath)
		if err := os.MkdirAll(dirPath, 0755); err != nil {
			return results, fmt.Errorf("failed to create %s: %w", dirPath, err)
		}

		if err := touch(filepath.Join(dirPath, in.marker)); err != nil {
			return results, fmt.Errorf("failed to create %s: %w", dirPath, err)
		}

		in.logger.Log("INFO", "[OK] Created/Verified", "path", dirPath)
		results = append(results, Result{Path: dir.Path, Category: dir.Category, Created: !existed})
	}

	return results, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// touch creates the file if absent and refreshes its timestamps otherwise.
func touch(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	now := time.Now()
	return os.Chtimes(path, now, now)
}
