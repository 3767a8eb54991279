package version

import (
	"encoding/json"
	"regexp"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersion_FollowsSemverOrDev(t *testing.T) {
	// Given: the version package is imported

	// When: accessing Version

	// Then: it is "dev" for builds without ldflags, semver otherwise
	if Version == "dev" {
		return
	}
	semver := regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.]+)?$`)
	require.True(t, semver.MatchString(Version), "got %s", Version)
}

func TestString_ReturnsFormattedString(t *testing.T) {
	str := String()
	assert.Contains(t, str, "podsearch "+Version)
	assert.Contains(t, str, "commit: "+Commit)
	assert.Contains(t, str, "go: "+GoVersion)
}

func TestShort_ReturnsVersion(t *testing.T) {
	assert.Equal(t, Version, Short())
}

func TestGetInfo(t *testing.T) {
	// Given: the version package is imported

	// When: serializing GetInfo() to JSON
	data, err := json.Marshal(GetInfo())
	require.NoError(t, err)

	// Then: every field is present under its snake_case key
	var parsed map[string]string
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, Version, parsed["version"])
	assert.Equal(t, Commit, parsed["commit"])
	assert.Equal(t, Date, parsed["date"])
	assert.Equal(t, runtime.Version(), parsed["go_version"])
	assert.Equal(t, runtime.GOOS, parsed["os"])
	assert.Equal(t, runtime.GOARCH, parsed["arch"])
}
