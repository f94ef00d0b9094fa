package cli

import (
	"context"
	"fmt"
	"strings"

	"mlsetup/internal/config"
	"mlsetup/internal/layout"
	"mlsetup/internal/logging"
)

// DirsCommand handles directory-only operations.
type DirsCommand struct {
	logger *logging.Logger
}

func NewDirsCommand(logger *logging.Logger) *DirsCommand {
	return &DirsCommand{
		logger: logger,
	}
}

// ListDirectories prints the directory tree for a profile.
func (c *DirsCommand) ListDirectories(profile string) error {
	dirs, err := layout.StructureFor(profile)
	if err != nil {
		return err
	}

	fmt.Println("Workspace directory tree:")
	fmt.Println(strings.Repeat("=", 40))
	for _, dir := range dirs {
		fmt.Printf("%-32s [%s]\n", dir.Path, dir.Category)
	}
	fmt.Println(strings.Repeat("-", 40))
	fmt.Printf("Total: %d directories, categories: %s\n", len(dirs), strings.Join(layout.Categories(dirs), ", "))

	return nil
}

// Initialize creates the tree, optionally restricted to one category.
func (c *DirsCommand) Initialize(ctx context.Context, cfg *config.Config, root, category string, dryRun bool) error {
	dirs, err := layout.StructureFor(cfg.Layout.Profile)
	if err != nil {
		return err
	}
	for _, extra := range cfg.Layout.ExtraDirs {
		dirs = append(dirs, layout.Dir{Path: extra, Category: layout.CategoryWorkspace})
	}

	if category != "" {
		dirs = layout.FilterByCategory(dirs, category)
		if len(dirs) == 0 {
			return fmt.Errorf("unknown directory category: %s", category)
		}
	}

	c.logger.Log("INFO", "Initializing directories", "root", root, "count", len(dirs), "dry_run", dryRun)

	initializer := layout.NewInitializer(root, cfg.Layout.MarkerName, c.logger, dryRun)
	results, err := initializer.Initialize(ctx, dirs)
	if err != nil {
		return err
	}

	created := 0
	for _, result := range results {
		if result.Created {
			created++
		}
	}
	c.logger.Log("INFO", "Directories initialized", "total", len(results), "created", created, "existing", len(results)-created)

	return nil
}
