package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b     string
		expected int
	}{
		{"1.0", "1.0.0", 0},
		{"4.3.3.RELEASE", "4.3.3", 0},
		{"5.3.9.Final", "5.3.10.Final", -1},
		{"1.0-SNAPSHOT", "1.0", -1},
		{"1.0-rc1", "1.0", -1},
		{"1.0-alpha", "1.0-beta", -1},
		{"2.0", "1.10", 1},
		{"1.10", "1.9", 1},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.expected, CompareVersions(tt.a, tt.b))
		})
	}
}

func TestSnapshotVersions(t *testing.T) {
	assert.True(t, IsSnapshotVersion("1.0-SNAPSHOT"))
	assert.True(t, IsSnapshotVersion("1.0-20240102.030405-7"))
	assert.False(t, IsSnapshotVersion("1.0"))
	assert.Equal(t, "1.0-SNAPSHOT", BaseVersion("1.0-20240102.030405-7"))
	assert.Equal(t, "1.0", BaseVersion("1.0"))
}

func TestVersionRange(t *testing.T) {
	tests := []struct {
		input    string
		in       []string
		out      []string
		expected string
	}{
		{
			input:    "[1.0,2.0)",
			in:       []string{"1.0", "1.5", "1.9.9"},
			out:      []string{"0.9", "2.0", "2.1"},
			expected: "1.9.9",
		},
		{
			input:    "[1.5,)",
			in:       []string{"1.5", "3.0"},
			out:      []string{"1.4"},
			expected: "3.0",
		},
		{
			input:    "(,1.0],[1.2,)",
			in:       []string{"0.5", "1.0", "1.2"},
			out:      []string{"1.1"},
			expected: "1.2",
		},
		{
			input:    "[1.1]",
			in:       []string{"1.1"},
			out:      []string{"1.0", "1.2"},
			expected: "1.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			r, err := ParseVersionRange(tt.input)
			require.NoError(t, err)
			for _, v := range tt.in {
				assert.True(t, r.Contains(v), "%s should contain %s", tt.input, v)
			}
			for _, v := range tt.out {
				assert.False(t, r.Contains(v), "%s should not contain %s", tt.input, v)
			}
			best, ok := r.Highest(append(append([]string{}, tt.in...), tt.out...), false)
			require.True(t, ok)
			assert.Equal(t, tt.expected, best)
		})
	}
}

func TestVersionRange_SkipsSnapshots(t *testing.T) {
	r, err := ParseVersionRange("[1.0,)")
	require.NoError(t, err)

	best, ok := r.Highest([]string{"1.0", "1.1-SNAPSHOT"}, false)
	require.True(t, ok)
	assert.Equal(t, "1.0", best)

	best, _ = r.Highest([]string{"1.0", "1.1-SNAPSHOT"}, true)
	assert.Equal(t, "1.1-SNAPSHOT", best)
}

func TestParseVersionRange_Invalid(t *testing.T) {
	for _, input := range []string{"1.0", "[1.0", "[]", "[1,2,3]", "(1.0)"} {
		_, err := ParseVersionRange(input)
		assert.Error(t, err, input)
	}
}
