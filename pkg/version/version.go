// Package version exposes the build identity of the deliberatorium binaries.
//
// Commit resolution order: -ldflags override, then VCS info from
// debug.BuildInfo, then "dev".
//
//	version.GitCommit  // "a3f8c2d1" or "dev"
//	version.Full()     // "deliberatorium/a3f8c2d1"
package version

import (
	"runtime"
	"runtime/debug"
)

// AppName prefixes version strings and the debatectl User-Agent.
const AppName = "deliberatorium"

// gitCommitOverride is set with
// -ldflags "-X github.com/codeready-toolchain/deliberatorium/pkg/version.gitCommitOverride=<sha>"
// for container builds where .git is unavailable.
var gitCommitOverride string

// GitCommit is the short (8 char) commit hash, or "dev".
var GitCommit = resolveCommit(gitCommitOverride, readBuildInfo)

func readBuildInfo() (*debug.BuildInfo, bool) {
	return debug.ReadBuildInfo()
}

func resolveCommit(override string, buildInfo func() (*debug.BuildInfo, bool)) string {
	if override != "" {
		return shorten(override)
	}
	info, ok := buildInfo()
	if !ok {
		return "dev"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			return shorten(s.Value)
		}
	}
	return "dev"
}

func shorten(commit string) string {
	if len(commit) > 8 {
		return commit[:8]
	}
	return commit
}

// Full returns "deliberatorium/<commit>".
func Full() string {
	return AppName + "/" + GitCommit
}

// Info is the version block reported by /health and `debatectl version`.
type Info struct {
	App       string `json:"app"`
	Commit    string `json:"commit"`
	GoVersion string `json:"go_version"`
}

// Get returns the running binary's version info.
func Get() Info {
	return Info{App: AppName, Commit: GitCommit, GoVersion: runtime.Version()}
}
