package cache

import "context"

// Manager defines the interface for local artifact cache maintenance.
type Manager interface {
	Clean(ctx context.Context, options CleanOptions) (*CleanResult, error)
	GetInfo() (*Info, error)
	GetDirectory() string
	SetDirectory(dir string) error
	Export(ctx context.Context, archivePath string) error
	Import(ctx context.Context, archivePath string) error
}

// CleanOptions specifies what to clean from the cache.
type CleanOptions struct {
	All bool
	// Snapshots removes every -SNAPSHOT version directory, forcing the next
	// resolution to fetch the newest builds.
	Snapshots bool
	// Partial removes leftovers of interrupted downloads.
	Partial bool
}

// CleanResult contains information about what was cleaned.
type CleanResult struct {
	TotalFreed    int64
	SnapshotFreed int64
	PartialFreed  int64
	Files         int
}

// Info represents cache information.
type Info struct {
	Directory     string
	TotalSize     int64
	ReleaseSize   int64
	ReleaseFiles  int
	SnapshotSize  int64
	SnapshotFiles int
	MetadataSize  int64
	MetadataFiles int
	PartialFiles  int
	Modules       int
}
