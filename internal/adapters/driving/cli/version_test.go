package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd_Use(t *testing.T) {
	assert.Equal(t, "version", versionCmd.Use)
}

func TestVersionCmd_Executes(t *testing.T) {
	_, cleanup := setupCLITest()
	defer cleanup()

	originalVersion := version
	SetVersion("test-version-1.0.0")
	defer func() { version = originalVersion }()

	out, err := execute("version")

	require.NoError(t, err)
	assert.Contains(t, out, "calsync version test-version-1.0.0")
}

func TestVersionCmd_Short(t *testing.T) {
	_, cleanup := setupCLITest()
	defer cleanup()

	originalVersion := version
	version = "dev"
	defer func() { version = originalVersion }()

	out, err := execute("version", "--short")

	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)
}

func TestSetVersion_IgnoresEmpty(t *testing.T) {
	originalVersion := version
	version = "1.2.3"
	defer func() { version = originalVersion }()

	SetVersion("")
	assert.Equal(t, "1.2.3", version)
}
