// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadFilePrecedenceOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"stagingDir: /scratch/vs\nmaxBufferSize: 2\nmaxStagingGB: 1.5\nreplaceOriginal: true\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/scratch/vs", cfg.StagingDir)
	require.Equal(t, 2, cfg.MaxBufferSize)
	require.True(t, cfg.ReplaceOriginal)
	require.Equal(t, ".mp4", cfg.OutputExt) // default survives partial file
}

func TestLoadEnvPrecedenceOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("maxBufferSize: 2\n"), 0o644))

	t.Setenv("VS_MAX_BUFFER_SIZE", "8")
	t.Setenv("VS_STAGING_DIR", "/env/staging")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8, cfg.MaxBufferSize)
	require.Equal(t, "/env/staging", cfg.StagingDir)
}

func TestLoadIgnoresUnparsableEnv(t *testing.T) {
	t.Setenv("VS_MAX_BUFFER_SIZE", "lots")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default().MaxBufferSize, cfg.MaxBufferSize)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.MaxBufferSize = 0
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.StagingDir = ""
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.MaxStagingGB = -1
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.OutputExt = "mp4"
	require.Error(t, cfg.Validate())
}

func TestMaxStagingBytes(t *testing.T) {
	cfg := Default()
	require.Zero(t, cfg.MaxStagingBytes())

	cfg.MaxStagingGB = 0.5
	require.Equal(t, int64(512*1024*1024), cfg.MaxStagingBytes())
}
