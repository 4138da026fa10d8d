package version_test

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vsariola/stepsynth/version"
)

func TestString(t *testing.T) {
	old := version.Version
	defer func() { version.Version = old }()
	version.Version = "v1.2.3"
	assert.Equal(t, "stepsynth v1.2.3 ("+runtime.Version()+")", version.String())
	version.Version = ""
	assert.True(t, strings.HasPrefix(version.String(), "stepsynth "))
}
