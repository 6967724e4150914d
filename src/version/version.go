// Package version identifies the node build and the client API it serves.
package version

import "github.com/coreos/go-semver/semver"

// Flag marks development builds. It is empty on release branches.
const Flag = ""

// APIVersion is the version of the REST, JSON-RPC and event stream APIs.
var APIVersion = semver.Version{Major: 1}

var (
	// Version is the full version string.
	Version = "1.0.0"

	// GitCommit is set with --ldflags "-X github.com/shivlim/casper-node/src/version.GitCommit=$(git rev-parse HEAD)"
	GitCommit string
)

func init() {
	if Flag != "" {
		Version += "-" + Flag
	}

	if len(GitCommit) >= 8 {
		Version += "-" + GitCommit[:8]
	}
}
