// Package version carries build metadata. Release builds inject it through
// ldflags; plain `go build` binaries fall back to the VCS stamp.
package version

import (
	"runtime"
	"runtime/debug"
)

const unknown = "unknown"

// Set with -ldflags "-X github.com/smazurov/framegraph/internal/version.Version=...".
var (
	Version   = "dev"
	GitCommit = unknown
	BuildDate = unknown
	BuildID   = unknown
)

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

// Info contains version and build metadata.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	BuildID   string `json:"build_id"`
	GoVersion string `json:"go_version"`
	Compiler  string `json:"compiler"`
	Platform  string `json:"platform"`
	Modified  bool   `json:"modified,omitempty"`
}

// Get returns version and build information.
func Get() Info {
	info := Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		BuildID:   BuildID,
		GoVersion: runtime.Version(),
		Compiler:  runtime.Compiler,
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if bi, ok := readBuildInfo(); ok {
		info.fillFromVCS(bi.Settings)
	}
	return info
}

// fillFromVCS only fills fields ldflags left unset.
func (i *Info) fillFromVCS(settings []debug.BuildSetting) {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if i.GitCommit == unknown && s.Value != "" {
				i.GitCommit = s.Value
				if len(i.GitCommit) > 7 {
					i.GitCommit = i.GitCommit[:7]
				}
			}
		case "vcs.time":
			if i.BuildDate == unknown && s.Value != "" {
				i.BuildDate = s.Value
			}
		case "vcs.modified":
			i.Modified = s.Value == "true"
		}
	}
}

// String returns the application version string.
func String() string {
	return Version
}

// String formats the build information on one line.
func (i Info) String() string {
	s := "framegraph " + i.Version
	if i.GitCommit != unknown {
		s += " (" + i.GitCommit
		if i.Modified {
			s += "-dirty"
		}
		s += ")"
	}
	if i.BuildDate != unknown {
		s += " built " + i.BuildDate
	}
	return s + " " + i.GoVersion + " " + i.Platform
}
