package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	prev := [3]string{Version, GitSHA, BuildTime}
	t.Cleanup(func() { Version, GitSHA, BuildTime = prev[0], prev[1], prev[2] })

	Version, GitSHA, BuildTime = "1.2.0", "abc123", "2024-05-01T09:00:00Z"
	assert.Equal(t, "1.2.0 (commit abc123, built 2024-05-01T09:00:00Z)", String())
}
