package envutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, WriteDotEnv(path, map[string]string{
		"RECRUITSUITE_TEST_URL":    "postgres://u:p@localhost/recruits",
		"RECRUITSUITE_TEST_LEADER": "Ana Maria Lumina, Judi Hampton",
	}, false))

	err := WriteDotEnv(path, map[string]string{"X": "1"}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	t.Setenv("RECRUITSUITE_TEST_URL", "from-process")
	require.NoError(t, LoadDotEnv(path))
	t.Cleanup(func() { _ = os.Unsetenv("RECRUITSUITE_TEST_LEADER") })

	assert.Equal(t, "from-process", os.Getenv("RECRUITSUITE_TEST_URL"))
	assert.Equal(t, "Ana Maria Lumina, Judi Hampton", os.Getenv("RECRUITSUITE_TEST_LEADER"))
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}

func TestTypedGetters(t *testing.T) {
	t.Setenv("RECRUITSUITE_TEST_TIMEOUT", "750ms")
	t.Setenv("RECRUITSUITE_TEST_BAD", "soon")

	assert.Equal(t, 750*time.Millisecond, Duration("RECRUITSUITE_TEST_TIMEOUT", time.Second))
	assert.Equal(t, time.Second, Duration("RECRUITSUITE_TEST_BAD", time.Second))
	assert.Equal(t, "fallback", String("RECRUITSUITE_TEST_UNSET", "fallback"))
}
