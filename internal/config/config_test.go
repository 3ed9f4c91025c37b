package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("IMGEVAL_MODELS", "")
	t.Setenv("IMGEVAL_DEVICE", "")
	t.Setenv("IMGEVAL_ORT_LIB", "")
	t.Setenv("IMGEVAL_THREADS", "")
	t.Setenv("IMGEVAL_MAX_UPLOAD_MB", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "models", cfg.ModelsDir)
	assert.Equal(t, CPU, cfg.Device)
	assert.Equal(t, 0, cfg.Threads)
	assert.Equal(t, 10, cfg.MaxUploadMB)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("IMGEVAL_MODELS", "/srv/models")
	t.Setenv("IMGEVAL_DEVICE", " CUDA ")
	t.Setenv("IMGEVAL_THREADS", "4")
	t.Setenv("IMGEVAL_MAX_UPLOAD_MB", "32")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "/srv/models", cfg.ModelsDir)
	assert.Equal(t, CUDA, cfg.Device)
	assert.Equal(t, 4, cfg.Threads)
	assert.Equal(t, 32, cfg.MaxUploadMB)
}

func TestLoadUnknownDeviceFallsBackToCPU(t *testing.T) {
	t.Setenv("IMGEVAL_DEVICE", "tpu")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, CPU, cfg.Device)
}

func TestLoadRejectsNegativeThreads(t *testing.T) {
	t.Setenv("IMGEVAL_THREADS", "-2")
	_, err := Load()
	assert.Error(t, err)
}
