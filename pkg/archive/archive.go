// Package archive reads thin archives (jar/zip files or exploded directories) and
// packs or unpacks local repository exports.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/glorpus-work/thinlaunch/pkg/errors"
	"github.com/glorpus-work/thinlaunch/pkg/fsutil"
	"github.com/mholt/archives"
)

// MetadataDir holds the manifest and the embedded properties.
const MetadataDir = "META-INF"

// Manager opens archives and creates repository exports.
type Manager struct{}

// NewManager creates a new Manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// Archive is a read-only view of a thin archive.
type Archive struct {
	Path string
	FS   fs.FS

	manifest Manifest
}

// Open returns a view of the jar, zip or directory at archivePath.
func (am *Manager) Open(ctx context.Context, archivePath string) (*Archive, error) {
	absPath, err := filepath.Abs(fsutil.ExpandHome(archivePath))
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidPath, err.Error())
	}
	if _, err := os.Stat(absPath); err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrArchiveNotFound, archivePath)
	}
	fsys, err := archives.FileSystem(ctx, absPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", archivePath, err)
	}
	return &Archive{Path: absPath, FS: fsys}, nil
}

// Close releases the underlying file when the format holds one open.
func (a *Archive) Close() error {
	if closer, ok := a.FS.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Manifest returns the main section of META-INF/MANIFEST.MF. An archive without
// a manifest yields an empty one.
func (a *Archive) Manifest() (Manifest, error) {
	if a.manifest != nil {
		return a.manifest, nil
	}
	data, err := fs.ReadFile(a.FS, path.Join(MetadataDir, "MANIFEST.MF"))
	switch {
	case err == nil:
		a.manifest = ParseManifest(data)
	case isNotExist(err):
		a.manifest = Manifest{}
	default:
		return nil, fmt.Errorf("failed to read manifest of %s: %w", a.Path, err)
	}
	return a.manifest, nil
}

// POM returns the embedded project descriptor: META-INF/maven/<group>/<artifact>/pom.xml
// as written by the build, or pom.xml at the top of an exploded directory.
// The boolean is false when the archive carries none.
func (a *Archive) POM() ([]byte, bool, error) {
	candidates, err := fs.Glob(a.FS, path.Join(MetadataDir, "maven", "*", "*", "pom.xml"))
	if err != nil {
		return nil, false, err
	}
	sort.Strings(candidates)
	candidates = append(candidates, "pom.xml")
	for _, name := range candidates {
		data, err := fs.ReadFile(a.FS, name)
		if err != nil {
			if isNotExist(err) {
				continue
			}
			return nil, false, fmt.Errorf("failed to read %s from %s: %w", name, a.Path, err)
		}
		return bytes.TrimSpace(data), true, nil
	}
	return nil, false, nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// ExtractAll unpacks every entry of an archive below destDir.
func (am *Manager) ExtractAll(ctx context.Context, archivePath, destDir string) error {
	fsys, err := archives.FileSystem(ctx, archivePath, nil)
	if err != nil {
		return fmt.Errorf("failed to open archive file: %w", err)
	}
	if closer, ok := fsys.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	if err := fsutil.EnsureDir(destDir); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	return fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		return am.extractEntry(fsys, name, destDir, d)
	})
}

// Create packs sourceDir into a gzip-compressed tarball.
func (am *Manager) Create(ctx context.Context, sourceDir, archivePath string) error {
	absolutePath, err := filepath.Abs(sourceDir)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for source directory: %w", err)
	}

	files, err := archives.FilesFromDisk(ctx, nil, map[string]string{
		absolutePath + string(os.PathSeparator): "",
	})
	if err != nil {
		return fmt.Errorf("failed to read files from disk: %w", err)
	}

	if err := fsutil.EnsureFileDir(archivePath); err != nil {
		return err
	}
	file, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", archivePath, err)
	}
	defer func() {
		_ = file.Sync()
		_ = file.Close()
	}()

	format := archives.CompressedArchive{
		Compression: archives.Gz{},
		Archival:    archives.Tar{},
	}
	if err := format.Archive(ctx, file, files); err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	return nil
}

func (am *Manager) extractEntry(fsys fs.FS, name, destDir string, d fs.DirEntry) error {
	if name == "." {
		return nil
	}
	targetPath := filepath.Join(destDir, filepath.FromSlash(name))
	if rel, err := filepath.Rel(destDir, targetPath); err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("%w: entry %s escapes %s", errors.ErrInvalidPath, name, destDir)
	}

	if d.IsDir() {
		return fsutil.EnsureDir(targetPath)
	}
	info, err := d.Info()
	if err != nil {
		return fmt.Errorf("failed to get file info for %s: %w", name, err)
	}
	if !info.Mode().IsRegular() {
		return nil
	}
	return am.writeRegularFile(fsys, name, targetPath, info)
}

func (am *Manager) writeRegularFile(fsys fs.FS, name, targetPath string, info fs.FileInfo) error {
	srcFile, err := fsys.Open(name)
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", name, err)
	}
	defer func() { _ = srcFile.Close() }()

	if err := fsutil.EnsureFileDir(targetPath); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", name, err)
	}
	dstFile, err := fsutil.CreateFilePerm(targetPath, fsutil.FileModeDefault)
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", targetPath, err)
	}
	if _, err := io.Copy(dstFile, srcFile); err != nil {
		_ = dstFile.Close()
		return fmt.Errorf("failed to copy file %s: %w", name, err)
	}
	if err := dstFile.Close(); err != nil {
		return err
	}
	return os.Chtimes(targetPath, info.ModTime(), info.ModTime())
}
