package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultsUntilBuildOverride(t *testing.T) {
	// ldflags overwrite these at release build time; the defaults mark a
	// development binary.
	assert.Equal(t, "dev", Version)
	assert.Equal(t, "dev", Commit)
	assert.Equal(t, "unknown", BuildTime)
}
