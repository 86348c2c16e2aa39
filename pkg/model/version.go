package model

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/glorpus-work/thinlaunch/pkg/errors"
	"github.com/hashicorp/go-version"
)

// SnapshotSuffix marks a moving development version.
const SnapshotSuffix = "-SNAPSHOT"

var (
	numericPrefix    = regexp.MustCompile(`^[0-9]+(\.[0-9]+)*`)
	timestampedBuild = regexp.MustCompile(`-[0-9]{8}\.[0-9]{6}-[0-9]+$`)
	releaseQualifier = map[string]bool{"": true, "release": true, "final": true, "ga": true}
)

// IsSnapshotVersion reports whether v is a snapshot marker or a timestamped snapshot build.
func IsSnapshotVersion(v string) bool {
	return strings.HasSuffix(v, SnapshotSuffix) || timestampedBuild.MatchString(v)
}

// BaseVersion maps a timestamped snapshot build back to its -SNAPSHOT marker.
func BaseVersion(v string) string {
	if loc := timestampedBuild.FindStringIndex(v); loc != nil {
		return v[:loc[0]] + SnapshotSuffix
	}
	return v
}

// ParseVersion converts a repository version string into a comparable version.
// Release qualifiers (RELEASE, Final, GA) compare equal to the bare number; any
// other qualifier, including SNAPSHOT, sorts before the release.
func ParseVersion(v string) (*version.Version, error) {
	return version.NewVersion(normalizeVersion(v))
}

func normalizeVersion(v string) string {
	v = strings.TrimSpace(v)
	num := numericPrefix.FindString(v)
	if num == "" {
		return v
	}
	qualifier := strings.ToLower(strings.TrimLeft(v[len(num):], ".-_"))
	if releaseQualifier[qualifier] {
		return num
	}
	qualifier = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		default:
			return '-'
		}
	}, qualifier)
	return num + "-" + qualifier
}

// CompareVersions orders two version strings. Unparseable versions fall back to
// lexical order so the result is always deterministic.
func CompareVersions(a, b string) int {
	va, errA := ParseVersion(a)
	vb, errB := ParseVersion(b)
	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}
	return va.Compare(vb)
}

// IsVersionRange reports whether v uses range syntax such as [1.0,2.0).
func IsVersionRange(v string) bool {
	v = strings.TrimSpace(v)
	return strings.HasPrefix(v, "[") || strings.HasPrefix(v, "(")
}

// VersionRange is a union of intervals, e.g. (,1.0],[1.2,).
type VersionRange struct {
	raw       string
	intervals []interval
}

type interval struct {
	lower, upper                   string
	lowerInclusive, upperInclusive bool
}

// ParseVersionRange parses range syntax. A bare version is not a range.
func ParseVersionRange(s string) (*VersionRange, error) {
	s = strings.TrimSpace(s)
	if !IsVersionRange(s) {
		return nil, fmt.Errorf("%w: %q", errors.ErrInvalidVersionRange, s)
	}
	r := &VersionRange{raw: s}
	rest := s
	for rest != "" {
		end := strings.IndexAny(rest, "])")
		if end < 0 || (rest[0] != '[' && rest[0] != '(') {
			return nil, fmt.Errorf("%w: %q", errors.ErrInvalidVersionRange, s)
		}
		iv, err := parseInterval(rest[:end+1])
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", errors.ErrInvalidVersionRange, s, err)
		}
		r.intervals = append(r.intervals, iv)
		rest = strings.TrimPrefix(strings.TrimSpace(rest[end+1:]), ",")
		rest = strings.TrimSpace(rest)
	}
	return r, nil
}

func parseInterval(s string) (interval, error) {
	iv := interval{lowerInclusive: s[0] == '[', upperInclusive: s[len(s)-1] == ']'}
	body := s[1 : len(s)-1]
	bounds := strings.Split(body, ",")
	switch len(bounds) {
	case 1:
		if !iv.lowerInclusive || !iv.upperInclusive || strings.TrimSpace(body) == "" {
			return iv, fmt.Errorf("single version must be written [v]")
		}
		iv.lower = strings.TrimSpace(body)
		iv.upper = iv.lower
	case 2:
		iv.lower = strings.TrimSpace(bounds[0])
		iv.upper = strings.TrimSpace(bounds[1])
	default:
		return iv, fmt.Errorf("too many bounds in %s", s)
	}
	return iv, nil
}

// Contains reports whether v lies within any interval.
func (r *VersionRange) Contains(v string) bool {
	for _, iv := range r.intervals {
		if iv.contains(v) {
			return true
		}
	}
	return false
}

func (iv interval) contains(v string) bool {
	if iv.lower != "" {
		c := CompareVersions(v, iv.lower)
		if c < 0 || (c == 0 && !iv.lowerInclusive) {
			return false
		}
	}
	if iv.upper != "" {
		c := CompareVersions(v, iv.upper)
		if c > 0 || (c == 0 && !iv.upperInclusive) {
			return false
		}
	}
	return true
}

// Highest returns the highest candidate inside the range, skipping snapshots
// unless allowSnapshots is set.
func (r *VersionRange) Highest(candidates []string, allowSnapshots bool) (string, bool) {
	best := ""
	for _, c := range candidates {
		if !allowSnapshots && IsSnapshotVersion(c) {
			continue
		}
		if !r.Contains(c) {
			continue
		}
		if best == "" || CompareVersions(c, best) > 0 {
			best = c
		}
	}
	return best, best != ""
}

func (r *VersionRange) String() string { return r.raw }
