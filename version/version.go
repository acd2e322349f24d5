// Package version exposes build version information. The variables are
// meant to be set at build time via -ldflags; when absent, VCS build info
// embedded by the Go toolchain fills the gaps.
package version

import (
	"fmt"
	"runtime/debug"
)

var (
	// Version is the semantic version, set via -ldflags.
	Version = "dev"
	// GitCommit is the short VCS revision, set via -ldflags.
	GitCommit = ""
)

// Info holds resolved version information.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
}

// Get returns the resolved version information.
func Get() Info {
	info := Info{Version: Version, GitCommit: GitCommit}

	if bi, ok := debug.ReadBuildInfo(); ok {
		info.GoVersion = bi.GoVersion
		if info.GitCommit == "" {
			for _, setting := range bi.Settings {
				if setting.Key == "vcs.revision" {
					info.GitCommit = setting.Value
					if len(info.GitCommit) > 7 {
						info.GitCommit = info.GitCommit[:7]
					}
				}
			}
		}
	}
	return info
}

// Short returns a compact version string.
func Short() string {
	info := Get()
	if info.GitCommit != "" {
		return fmt.Sprintf("%s-%s", info.Version, info.GitCommit)
	}
	return info.Version
}
