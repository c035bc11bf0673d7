package version

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	info := Get()

	assert.Equal(t, Version, info.Version)
	assert.Equal(t, GitCommit, info.GitCommit)
	assert.Equal(t, BuildTime, info.BuildTime)
	assert.Contains(t, info.GoVersion, "go")
}

func TestInfo_String(t *testing.T) {
	info := Info{Version: "1.2.0", GitCommit: "abc123", BuildTime: "2026-10-01", GoVersion: "go1.25.1"}

	assert.Equal(t, "Version: 1.2.0, GitCommit: abc123, BuildTime: 2026-10-01, GoVersion: go1.25.1", info.String())
	assert.Equal(t, "skillkit/1.2.0 (abc123)", info.UserAgent())
}

func TestInfo_JSON(t *testing.T) {
	info := Info{Version: "1.2.0", GitCommit: "abc123", BuildTime: "2026-10-01", GoVersion: "go1.25.1"}

	out, err := info.JSON()
	require.NoError(t, err)

	var parsed map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	assert.Equal(t, "1.2.0", parsed["version"])
	assert.Equal(t, "abc123", parsed["gitCommit"])
	assert.Equal(t, "2026-10-01", parsed["buildTime"])
	assert.Contains(t, out, "\n  ")
}
