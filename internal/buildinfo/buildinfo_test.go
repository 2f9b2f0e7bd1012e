package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringDefaults(t *testing.T) {
	assert.Equal(t, "dev (commit unknown, built unknown)", String())
}

func TestStringInjected(t *testing.T) {
	oldVersion, oldCommit, oldTime := Version, Commit, BuildTime
	t.Cleanup(func() { Version, Commit, BuildTime = oldVersion, oldCommit, oldTime })

	Version, Commit, BuildTime = "v0.3.0", "9f3c2e1", "2026-10-01T08:00:00Z"
	assert.Equal(t, "v0.3.0 (commit 9f3c2e1, built 2026-10-01T08:00:00Z)", String())
}
