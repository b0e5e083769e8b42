package config

import (
	"fmt"
	"runtime/debug"
)

// Set with -ldflags "-X moviesvc/internal/config.version=...". Left at the
// defaults, NewBuildInfo falls back to the module metadata the Go toolchain
// embeds in the binary.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo

// NewBuildInfo reports the version of the running binary.
func NewBuildInfo() BuildInfo {
	info := BuildInfo{Version: version, Commit: commit, BuildTime: buildTime}

	bi, ok := readBuildInfo()
	if !ok {
		return info
	}
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "none" && len(s.Value) >= 7 {
				info.Commit = s.Value[:7]
			}
		case "vcs.time":
			if info.BuildTime == "unknown" {
				info.BuildTime = s.Value
			}
		}
	}
	return info
}

// UserAgent is the User-Agent sent on outbound catalog requests.
func (b BuildInfo) UserAgent() string {
	v := b.Version
	if v == "" {
		v = "dev"
	}
	return fmt.Sprintf("moviesvc/%s", v)
}
