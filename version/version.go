// Package version exposes the dashboard build version, stamped at build
// time via -ldflags or recovered from the binary's VCS metadata.
package version

import (
	"fmt"
	"runtime/debug"
	"time"
)

var (
	// Set at build time:
	//   -ldflags "-X github.com/kbukum/zofia/version.Version=1.2.0"
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

// Info is the resolved build information.
type Info struct {
	Version   string    `json:"version"`
	GitCommit string    `json:"gitCommit"`
	GoVersion string    `json:"goVersion"`
	BuildDate time.Time `json:"buildDate"`
	Dirty     bool      `json:"dirty"`
}

// GetInfo resolves build information, preferring ldflags values and
// falling back to the VCS metadata Go embeds in the binary.
func GetInfo() *Info {
	info := &Info{
		Version:   Version,
		GitCommit: GitCommit,
	}
	if BuildTime != "" {
		if t, err := time.Parse(time.RFC3339, BuildTime); err == nil {
			info.BuildDate = t
		}
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		info.GoVersion = bi.GoVersion
		for _, setting := range bi.Settings {
			switch setting.Key {
			case "vcs.revision":
				if info.GitCommit == "" {
					info.GitCommit = setting.Value
					if len(info.GitCommit) > 7 {
						info.GitCommit = info.GitCommit[:7]
					}
				}
			case "vcs.modified":
				info.Dirty = setting.Value == "true"
			case "vcs.time":
				if info.BuildDate.IsZero() {
					if t, err := time.Parse(time.RFC3339, setting.Value); err == nil {
						info.BuildDate = t
					}
				}
			}
		}
	}
	return info
}

// Short returns the version string used in logs and the status surface,
// e.g. "1.2.0-3f9c1a2" or "dev-3f9c1a2-dirty".
func Short() string {
	info := GetInfo()
	if info.GitCommit == "" {
		return info.Version
	}
	s := fmt.Sprintf("%s-%s", info.Version, info.GitCommit)
	if info.Dirty {
		s += "-dirty"
	}
	return s
}
