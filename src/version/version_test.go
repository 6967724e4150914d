package version

import (
	"testing"

	"github.com/coreos/go-semver/semver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFlagEmpty fails if version.Flag is not empty, which keeps development
// builds off release branches.
func TestFlagEmpty(t *testing.T) {
	if len(Flag) > 0 {
		t.Fatalf("Version Flag is not empty: %s", Flag)
	}
}

func TestVersionParses(t *testing.T) {
	v, err := semver.NewVersion(Version)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v.Major)
	assert.Equal(t, "1.0.0", APIVersion.String())
}
