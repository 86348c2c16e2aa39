// Package platform detects the running operating system and architecture in
// the naming used by repository classifiers of native artifacts, for example
// linux-x86_64 or osx-aarch_64.
package platform

import (
	"fmt"
	"runtime"
	"strings"
)

// Property names set for descriptor interpolation.
const (
	PropertyName       = "os.detected.name"
	PropertyArch       = "os.detected.arch"
	PropertyClassifier = "os.detected.classifier"
)

// Unknown is used for values that cannot be mapped.
const Unknown = "unknown"

// Platform is an operating system and architecture pair.
type Platform struct {
	OS   string `yaml:"os" json:"os"`
	Arch string `yaml:"arch" json:"arch"`
}

// CurrentPlatform returns the platform of the running process.
func CurrentPlatform() Platform {
	return Platform{
		OS:   NormalizeOS(runtime.GOOS),
		Arch: NormalizeArch(runtime.GOARCH),
	}
}

// Classifier returns <os>-<arch>.
func (p Platform) Classifier() string {
	return p.OS + "-" + p.Arch
}

// Properties returns the os.detected.* values of the platform.
func (p Platform) Properties() map[string]string {
	return map[string]string{
		PropertyName:       p.OS,
		PropertyArch:       p.Arch,
		PropertyClassifier: p.Classifier(),
	}
}

// String returns a string representation of the platform
func (p Platform) String() string {
	return fmt.Sprintf("%s/%s", p.OS, p.Arch)
}

// NormalizeOS maps Go and common OS names onto classifier names.
func NormalizeOS(os string) string {
	os = strings.ToLower(strings.TrimSpace(os))
	switch {
	case os == "darwin", os == "macos", strings.HasPrefix(os, "mac"), os == "osx":
		return "osx"
	case strings.HasPrefix(os, "win"):
		return "windows"
	case os == "linux", os == "android":
		return "linux"
	case os == "freebsd", os == "openbsd", os == "netbsd", os == "aix":
		return os
	case os == "solaris", os == "sunos", os == "illumos":
		return "sunos"
	case os == "":
		return Unknown
	default:
		return os
	}
}

// NormalizeArch maps Go and common architecture names onto classifier names.
func NormalizeArch(arch string) string {
	arch = strings.ToLower(strings.TrimSpace(arch))
	switch arch {
	case "amd64", "x86_64", "x64", "x8664":
		return "x86_64"
	case "386", "x86", "i386", "i486", "i586", "i686":
		return "x86_32"
	case "arm64", "aarch64", "aarch_64":
		return "aarch_64"
	case "arm", "arm32", "armv7", "armv7l":
		return "arm_32"
	case "ppc64le":
		return "ppcle_64"
	case "ppc64":
		return "ppc_64"
	case "s390x":
		return "s390_64"
	case "riscv64", "loong64":
		return arch
	case "":
		return Unknown
	default:
		return arch
	}
}
