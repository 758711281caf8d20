package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo(t *testing.T) {
	info := Info()

	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.String(), "tablekit ")
	assert.Contains(t, info.String(), "Go Version:")
}

func TestBuildInfoString(t *testing.T) {
	info := BuildInfo{
		Version:   "v1.0.0",
		BuildDate: "2024-01-01T00:00:00Z",
		GitCommit: "abc123def456",
		GoVersion: "go1.24.0",
		Engines:   []Module{{Path: "github.com/xuri/excelize/v2", Version: "v2.9.1"}},
	}

	str := info.String()
	assert.Contains(t, str, "tablekit v1.0.0\n")
	assert.Contains(t, str, "Build Date: 2024-01-01T00:00:00Z")
	assert.Contains(t, str, "Git Commit: abc123d")
	assert.Contains(t, str, "Go Version: go1.24.0")
	assert.Contains(t, str, "github.com/xuri/excelize/v2 v2.9.1")
	assert.NotContains(t, str, "(dirty)")
}

func TestBuildInfoStringOmitsUnknown(t *testing.T) {
	info := BuildInfo{
		Version:   "dev",
		BuildDate: unknownValue,
		GitCommit: "abc123-dirty",
		GoVersion: "go1.24.0",
		Dirty:     true,
	}

	str := info.String()
	assert.Contains(t, str, "tablekit dev (dirty)")
	assert.NotContains(t, str, "Build Date")
}

func TestEngineVersions(t *testing.T) {
	deps := []*debug.Module{
		{Path: "github.com/google/uuid", Version: "v1.6.0"},
		{Path: "modernc.org/sqlite", Version: "v1.38.0"},
		{
			Path:    "github.com/apache/arrow-go/v18",
			Version: "v18.0.0",
			Replace: &debug.Module{Path: "../arrow", Version: "v18.1.0"},
		},
	}

	got := engineVersions(deps)
	assert.Equal(t, []Module{
		{Path: "github.com/apache/arrow-go/v18", Version: "v18.1.0"},
		{Path: "modernc.org/sqlite", Version: "v1.38.0"},
	}, got)
}

func TestIsRelease(t *testing.T) {
	original := Version
	defer func() { Version = original }()

	tests := []struct {
		version string
		want    bool
	}{
		{"dev", false},
		{"v1.0.0", true},
		{"v1.0.0-rc.1", false},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			Version = tt.version
			assert.Equal(t, tt.want, IsRelease())
		})
	}
}
