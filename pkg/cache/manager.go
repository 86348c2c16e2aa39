package cache

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/glorpus-work/thinlaunch/pkg/archive"
	"github.com/glorpus-work/thinlaunch/pkg/errors"
	"github.com/glorpus-work/thinlaunch/pkg/fsutil"
	"github.com/glorpus-work/thinlaunch/pkg/model"
	"github.com/glorpus-work/thinlaunch/pkg/repository"
)

// Kinds of files found in a local repository.
type kind int

const (
	kindRelease kind = iota
	kindSnapshot
	kindMetadata
	kindPartial
)

// DefaultManager implements the Manager interface on a local repository
// directory laid out as group/name/version/file.
type DefaultManager struct {
	directory string
	archives  *archive.Manager
}

// NewManager creates a new cache manager.
func NewManager(directory string) *DefaultManager {
	return &DefaultManager{
		directory: directory,
		archives:  archive.NewManager(),
	}
}

// Clean removes cached files according to the specified options. Without any
// option set it cleans everything.
func (cm *DefaultManager) Clean(ctx context.Context, options CleanOptions) (*CleanResult, error) {
	if cm.directory == "" {
		return nil, errors.ErrCacheDirectory
	}
	if !options.Snapshots && !options.Partial {
		options.All = true
	}
	result := &CleanResult{}

	if options.All {
		size, files, err := dirSizeAndFiles(cm.directory)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCacheClean, err.Error())
		}
		if err := cleanDirectory(cm.directory); err != nil {
			return nil, errors.Wrap(errors.ErrCacheClean, err.Error())
		}
		result.TotalFreed, result.Files = size, files
		return result, nil
	}

	var snapshotDirs, partials []string
	err := cm.walk(func(path string, info fs.FileInfo, k kind) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch {
		case info.IsDir() && options.Snapshots && model.IsSnapshotVersion(info.Name()):
			snapshotDirs = append(snapshotDirs, path)
			return filepath.SkipDir
		case !info.IsDir() && options.Partial && k == kindPartial:
			partials = append(partials, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCacheClean, err.Error())
	}

	for _, dir := range snapshotDirs {
		size, files, err := dirSizeAndFiles(dir)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCacheClean, err.Error())
		}
		if err := os.RemoveAll(dir); err != nil {
			return nil, errors.Wrapf(errors.ErrCacheClean, "failed to remove %s: %v", dir, err)
		}
		result.SnapshotFreed += size
		result.Files += files
	}
	for _, file := range partials {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		if err := os.Remove(file); err != nil {
			return nil, errors.Wrapf(errors.ErrCacheClean, "failed to remove %s: %v", file, err)
		}
		result.PartialFreed += info.Size()
		result.Files++
	}
	result.TotalFreed = result.SnapshotFreed + result.PartialFreed
	return result, nil
}

// GetInfo returns information about the cache.
func (cm *DefaultManager) GetInfo() (*Info, error) {
	info := &Info{Directory: cm.directory}
	modules := map[string]bool{}
	err := cm.walk(func(path string, fi fs.FileInfo, k kind) error {
		if fi.IsDir() {
			return nil
		}
		size := fi.Size()
		switch k {
		case kindRelease:
			info.ReleaseSize += size
			info.ReleaseFiles++
		case kindSnapshot:
			info.SnapshotSize += size
			info.SnapshotFiles++
		case kindMetadata:
			info.MetadataSize += size
			info.MetadataFiles++
		case kindPartial:
			info.PartialFiles++
		}
		info.TotalSize += size
		if k == kindRelease || k == kindSnapshot {
			// group/name/version/file: the module is the directory above the version.
			modules[filepath.Dir(filepath.Dir(path))] = true
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCacheInfo, err.Error())
	}
	info.Modules = len(modules)
	return info, nil
}

// GetDirectory returns the cache directory path.
func (cm *DefaultManager) GetDirectory() string {
	return cm.directory
}

// SetDirectory sets the cache directory path.
func (cm *DefaultManager) SetDirectory(dir string) error {
	if dir == "" {
		return errors.ErrCacheDirectory
	}
	cm.directory = dir
	return nil
}

// Export packs the cache into a gzip-compressed tarball. Extracting it below a
// root directory's repository/ folder gives an offline-capable cache.
func (cm *DefaultManager) Export(ctx context.Context, archivePath string) error {
	if !fsutil.DirExists(cm.directory) {
		return errors.Wrapf(errors.ErrCacheDirectory, "%s does not exist", cm.directory)
	}
	return cm.archives.Create(ctx, cm.directory, archivePath)
}

// Import unpacks an exported cache into the cache directory, keeping files
// already present.
func (cm *DefaultManager) Import(ctx context.Context, archivePath string) error {
	if cm.directory == "" {
		return errors.ErrCacheDirectory
	}
	return cm.archives.ExtractAll(ctx, archivePath, cm.directory)
}

// walk visits every entry below the cache directory with its kind. A missing
// directory is an empty cache.
func (cm *DefaultManager) walk(fn func(path string, info fs.FileInfo, k kind) error) error {
	if !fsutil.DirExists(cm.directory) {
		return nil
	}
	return filepath.Walk(cm.directory, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == cm.directory {
			return nil
		}
		return fn(path, info, classify(path, info))
	})
}

func classify(path string, info fs.FileInfo) kind {
	name := info.Name()
	switch {
	case strings.HasSuffix(name, fsutil.TempSuffix):
		return kindPartial
	case strings.HasPrefix(name, "maven-metadata"), strings.HasSuffix(name, repository.MissingMarkerSuffix):
		return kindMetadata
	case model.IsSnapshotVersion(filepath.Base(filepath.Dir(path))):
		return kindSnapshot
	default:
		return kindRelease
	}
}

// cleanDirectory removes the contents of dir and recreates it empty.
func cleanDirectory(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return errors.Wrapf(err, "failed to remove directory %s", dir)
	}
	if err := os.MkdirAll(dir, fsutil.DirModeDefault); err != nil {
		return errors.Wrapf(err, "failed to recreate directory %s", dir)
	}
	return nil
}

// dirSizeAndFiles calculates directory size and file count.
func dirSizeAndFiles(dir string) (size int64, count int, err error) {
	if _, err = os.Stat(dir); os.IsNotExist(err) {
		return 0, 0, nil
	}

	err = filepath.Walk(dir, func(_ string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !info.IsDir() {
			size += info.Size()
			count++
		}
		return nil
	})
	if err != nil {
		err = errors.Wrapf(err, "error walking directory %s", dir)
	}
	return size, count, err
}
