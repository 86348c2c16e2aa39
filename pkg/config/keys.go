package config

import "time"

// Property keys understood by the launcher. Every key lives in the thin. namespace
// so it can be told apart from application arguments.
const (
	KeyPrefix      = "thin."
	KeyRoot        = "thin.root"
	KeyArchive     = "thin.archive"
	KeyName        = "thin.name"
	KeyProfile     = "thin.profile"
	KeyLocation    = "thin.location"
	KeyOffline     = "thin.offline"
	KeyDryRun      = "thin.dryrun"
	KeyClasspath   = "thin.classpath"
	KeyRepo        = "thin.repo"
	KeyMain        = "thin.main"
	KeyJava        = "thin.java"
	KeyDebug       = "thin.debug"
	KeyHome        = "thin.home"
	KeySettings    = "thin.settings"
	KeyChecksums   = "thin.checksums"
	KeyTimeout     = "thin.timeout"
	KeyConcurrency = "thin.concurrency"
	KeyJVMArgs     = "thin.jvm.args"
)

// Prefixes of the metadata entries that declare what to resolve.
const (
	DependenciesPrefix = "dependencies."
	ExclusionsPrefix   = "exclusions."
	BomsPrefix         = "boms."
	RepositoriesPrefix = "repositories."
	ComputedKey        = "computed"
)

// Built-in defaults.
const (
	DefaultName        = "thin"
	DefaultRepoURL     = "https://repo.maven.apache.org/maven2"
	DefaultRepoID      = "central"
	DefaultJava        = "java"
	DefaultChecksums   = "warn"
	DefaultTimeout     = 30 * time.Second
	DefaultConcurrency = 5
)

// Checksum policies for thin.checksums.
const (
	ChecksumIgnore = "ignore"
	ChecksumWarn   = "warn"
	ChecksumFail   = "fail"
)

var booleanKeys = []string{KeyOffline, KeyDryRun, KeyDebug, ComputedKey}
