package cache

import (
	"bytes"
	"context"
	"fmt"

	"github.com/glorpus-work/thinlaunch/internal/logger"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Operation wraps a Manager with human-readable output for the CLI.
type Operation struct {
	manager Manager
}

// NewOperation creates a new cache operation instance.
func NewOperation(manager Manager) *Operation {
	return &Operation{
		manager: manager,
	}
}

// Clean cleans the cache based on the provided options.
func (op *Operation) Clean(ctx context.Context, options CleanOptions) (string, error) {
	logger.Debug("Cleaning cache", logger.Fields{
		"all":       options.All,
		"snapshots": options.Snapshots,
		"partial":   options.Partial,
		"directory": op.manager.GetDirectory(),
	})

	result, err := op.manager.Clean(ctx, options)
	if err != nil {
		return "", fmt.Errorf("failed to clean cache: %w", err)
	}

	if result.Files == 0 {
		return "No files were removed from the cache.", nil
	}
	msg := fmt.Sprintf("Successfully cleaned cache. Removed %d files, freed %s of disk space.", result.Files, formatBytes(result.TotalFreed))
	if result.SnapshotFreed > 0 {
		msg += fmt.Sprintf("\n- Snapshots: %s", formatBytes(result.SnapshotFreed))
	}
	if result.PartialFreed > 0 {
		msg += fmt.Sprintf("\n- Partial downloads: %s", formatBytes(result.PartialFreed))
	}
	return msg, nil
}

// GetInfo renders cache information as a table.
func (op *Operation) GetInfo() (string, error) {
	info, err := op.manager.GetInfo()
	if err != nil {
		return "", fmt.Errorf("failed to get cache info: %w", err)
	}

	var buf bytes.Buffer
	t := table.NewWriter()
	t.SetOutputMirror(&buf)
	t.SetTitle(info.Directory)
	t.AppendHeader(table.Row{"Kind", "Files", "Size"})
	t.AppendRows([]table.Row{
		{"releases", info.ReleaseFiles, formatBytes(info.ReleaseSize)},
		{"snapshots", info.SnapshotFiles, formatBytes(info.SnapshotSize)},
		{"metadata", info.MetadataFiles, formatBytes(info.MetadataSize)},
		{"partial", info.PartialFiles, ""},
	})
	t.AppendFooter(table.Row{fmt.Sprintf("%d modules", info.Modules), "", formatBytes(info.TotalSize)})
	style := table.StyleLight
	style.Options.DrawBorder = false
	t.SetStyle(style)
	t.Render()
	return buf.String(), nil
}

// GetDirectory returns the cache directory path.
func (op *Operation) GetDirectory() string {
	return op.manager.GetDirectory()
}

// Export packs the cache into archivePath.
func (op *Operation) Export(ctx context.Context, archivePath string) (string, error) {
	logger.Debug("Exporting cache", logger.Fields{"directory": op.manager.GetDirectory(), "archive": archivePath})
	if err := op.manager.Export(ctx, archivePath); err != nil {
		return "", fmt.Errorf("failed to export cache: %w", err)
	}
	return fmt.Sprintf("Exported %s to %s", op.manager.GetDirectory(), archivePath), nil
}

// Import unpacks archivePath into the cache.
func (op *Operation) Import(ctx context.Context, archivePath string) (string, error) {
	logger.Debug("Importing cache", logger.Fields{"directory": op.manager.GetDirectory(), "archive": archivePath})
	if err := op.manager.Import(ctx, archivePath); err != nil {
		return "", fmt.Errorf("failed to import cache: %w", err)
	}
	return fmt.Sprintf("Imported %s into %s", archivePath, op.manager.GetDirectory()), nil
}

// formatBytes converts bytes to a human-readable string.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	units := []string{"K", "M", "G", "T", "P", "E"}
	if exp < len(units) {
		return fmt.Sprintf("%.1f %sB", float64(bytes)/float64(div), units[exp])
	}
	return fmt.Sprintf("%d B", bytes)
}
