// Package version reports the version of the stepsynth binaries.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is set at build time, e.g.
// go build -ldflags "-X github.com/vsariola/stepsynth/version.Version=$(git describe --dirty)"
var Version string

// Revision is the short VCS revision the binary was built from, with a
// -dirty suffix for modified trees; empty when unknown.
var Revision = revision()

func revision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	var rev string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value[:min(7, len(s.Value))]
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if rev != "" && dirty {
		rev += "-dirty"
	}
	return rev
}

// String is the one-line version printed by the -v flag of the commands.
func String() string {
	v := Version
	if v == "" {
		v = Revision
	}
	if v == "" {
		v = "devel"
	}
	return fmt.Sprintf("stepsynth %s (%s)", v, runtime.Version())
}
