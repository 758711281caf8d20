// Package version reports build information for the tablekit binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

const (
	unknownValue     = "unknown"
	commitHashLength = 7
)

// Build-time variables set by ldflags
var (
	Version   = "dev"
	BuildDate = unknownValue
	GitCommit = unknownValue
	GoVersion = runtime.Version()
)

// engines are the modules whose versions decide how files are read and
// written, reported alongside the tablekit version.
var engines = []string{
	"github.com/apache/arrow-go/v18",
	"github.com/xuri/excelize/v2",
	"modernc.org/sqlite",
	"gonum.org/v1/gonum",
}

// BuildInfo contains build information
type BuildInfo struct {
	Version   string   `json:"version"`
	BuildDate string   `json:"build_date"`
	GitCommit string   `json:"git_commit"`
	GoVersion string   `json:"go_version"`
	Dirty     bool     `json:"dirty"`
	Module    string   `json:"module,omitempty"`
	Engines   []Module `json:"engines,omitempty"`
}

// Module is a dependency and the version it was built with
type Module struct {
	Path    string `json:"path"`
	Version string `json:"version"`
}

// Info returns the build information of the running binary
func Info() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		BuildDate: BuildDate,
		GitCommit: GitCommit,
		GoVersion: GoVersion,
		Dirty:     strings.HasSuffix(GitCommit, "-dirty"),
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		info.Module = bi.Main.Path
		info.Engines = engineVersions(bi.Deps)
	}
	return info
}

func engineVersions(deps []*debug.Module) []Module {
	var out []Module
	for _, path := range engines {
		for _, dep := range deps {
			if dep.Path != path {
				continue
			}
			v := dep.Version
			if dep.Replace != nil {
				v = dep.Replace.Version
			}
			out = append(out, Module{Path: path, Version: v})
		}
	}
	return out
}

// String returns a human readable version report
func (b BuildInfo) String() string {
	var sb strings.Builder
	sb.WriteString("tablekit ")
	sb.WriteString(b.Version)
	if b.Dirty {
		sb.WriteString(" (dirty)")
	}
	sb.WriteString("\n")

	if b.BuildDate != unknownValue && b.BuildDate != "" {
		fmt.Fprintf(&sb, "Build Date: %s\n", b.BuildDate)
	}
	if b.GitCommit != unknownValue && b.GitCommit != "" {
		commit := b.GitCommit
		if len(commit) > commitHashLength {
			commit = commit[:commitHashLength]
		}
		fmt.Fprintf(&sb, "Git Commit: %s\n", commit)
	}
	fmt.Fprintf(&sb, "Go Version: %s\n", b.GoVersion)

	for _, m := range b.Engines {
		fmt.Fprintf(&sb, "  %s %s\n", m.Path, m.Version)
	}
	return sb.String()
}

// IsRelease reports whether this is a tagged release build
func IsRelease() bool {
	return Version != "dev" && !strings.Contains(Version, "-")
}
