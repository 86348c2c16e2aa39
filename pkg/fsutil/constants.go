// Package fsutil holds the file system helpers shared by the cache, download and
// config packages: permission constants, atomic placement and well-known paths.
package fsutil

// File and directory permission constants.
const (
	FileModeDefault = 0o644 // -rw-r--r--
	FileModeSecure  = 0o640 // -rw-r-----
	FileModeExec    = 0o755 // -rwxr-xr-x

	DirModeDefault = 0o755 // drwxr-xr-x
	DirModePrivate = 0o700 // drwx------
)

// TempSuffix marks in-flight files. Readers never treat such a file as a cached artifact.
const TempSuffix = ".part"
