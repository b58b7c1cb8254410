package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 1, cfg.CompressionLevel)
	assert.Equal(t, 128, cfg.EmbeddingDim)
	assert.Equal(t, 100<<20, cfg.MaxMessageBytes)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aifs.yaml")
	content := "root_dir: /var/lib/aifs\ncompression_level: 9\nembedding_dim: 256\nenable_strong_causality: true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/aifs", cfg.RootDir)
	assert.Equal(t, 9, cfg.CompressionLevel)
	assert.Equal(t, 256, cfg.EmbeddingDim)
	assert.True(t, cfg.EnableStrongCausality)
}

func TestMasterKeyEmptyIsNil(t *testing.T) {
	cfg := Default()
	key, err := cfg.MasterKey()
	require.NoError(t, err)
	assert.Nil(t, key)
}

func TestMasterKeyInvalidHex(t *testing.T) {
	cfg := Default()
	cfg.KMSMasterKeyHex = "not-hex"
	_, err := cfg.MasterKey()
	assert.Error(t, err)
}

func TestMasterKeyWrongLength(t *testing.T) {
	cfg := Default()
	cfg.KMSMasterKeyHex = "aabbcc"
	_, err := cfg.MasterKey()
	assert.Error(t, err)
}
