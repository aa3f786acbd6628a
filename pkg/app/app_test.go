package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secret.txt")
	require.NoError(t, os.WriteFile(path, []byte("postgres://localhost/db\n"), 0o600))

	for _, fileURL := range []string{
		path,
		"file://" + path,
	} {
		data, err := LoadFile(fileURL)
		require.NoError(t, err)
		assert.Equal(t, "postgres://localhost/db\n", string(data))

		secret, err := LoadSecret(fileURL)
		require.NoError(t, err)
		assert.Equal(t, "postgres://localhost/db", secret)
	}

	_, err := LoadFile(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)

	_, err = LoadFile("s3://bucket/key")
	assert.Error(t, err)
}

func TestRegisterFileLoaderCtor_Duplicate(t *testing.T) {
	assert.Panics(t, func() {
		RegisterFileLoaderCtor("file", newLocalLoader)
	})
}

func TestBallastSize(t *testing.T) {
	assert.EqualValues(t, 0, ballastSize(0, 1_000))
	assert.EqualValues(t, 250, ballastSize(0.25, 1_000))
	assert.EqualValues(t, 500, ballastSize(0.9, 1_000))
	assert.EqualValues(t, 0, ballastSize(-1, 1_000))
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app_name: auction-keeper
log_level: debug
app:
  program_id: ATr4QpNHBjnT14tUEei26zsyMo6AyN9yaAoeLhg3ue26
`), 0o600))

	config, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "auction-keeper", config.AppName)
	assert.Equal(t, "debug", config.LogLevel)
	assert.Equal(t, defaultConfig.ShutdownGracePeriod, config.ShutdownGracePeriod)
	assert.Equal(t, "ATr4QpNHBjnT14tUEei26zsyMo6AyN9yaAoeLhg3ue26", config.AppConfig["program_id"])
}
