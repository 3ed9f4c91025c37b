package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCLSToken(t *testing.T) {
	hidden := []float32{1, 2, 3, 9, 9, 9, 8, 8, 8}

	cls, err := clsToken(hidden, 3)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, cls)

	// the returned slice must not alias the session buffer
	hidden[0] = 42
	assert.Equal(t, float32(1), cls[0])

	_, err = clsToken(hidden[:2], 3)
	assert.ErrorIs(t, err, ErrShape)
}

func TestCLIPScore(t *testing.T) {
	score, err := clipScore([]float32{1, 0, 0}, []float32{1, 0, 0})
	require.NoError(t, err)
	assert.InDelta(t, 100, score, 1e-4)

	score, err = clipScore([]float32{1, 0}, []float32{1, 1})
	require.NoError(t, err)
	assert.InDelta(t, 70.710678, score, 1e-4)

	// negative similarity is floored at zero
	score, err = clipScore([]float32{1, 0}, []float32{-1, 0})
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)

	_, err = clipScore([]float32{1}, []float32{1, 2})
	assert.Error(t, err)
}

func TestONNXLoaderRejectsUnknownCLIPModel(t *testing.T) {
	l := NewONNXLoader(t.TempDir(), Options{})

	_, err := l.LoadCLIP("openai/clip-vit-huge")
	assert.ErrorIs(t, err, ErrUnknownModel)
}

func TestONNXLoaderMissingCheckpoint(t *testing.T) {
	l := NewONNXLoader(t.TempDir(), Options{})

	_, err := l.LoadDINO()
	assert.Error(t, err)

	_, err = l.LoadCLIP(CLIPBasePatch16)
	assert.Error(t, err)
}

func TestNewDINOEncoderRejectsPooledOutput(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, filepath.FromSlash(DINOModel))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	body := `{"image_size": 224, "mean": [0.485, 0.456, 0.406], "std": [0.229, 0.224, 0.225],
	  "vision": {"file": "model.onnx", "inputs": [{"name": "pixel_values", "shape": [1,3,224,224]}],
	  "outputs": [{"name": "pooler_output", "shape": [1,384]}]}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, MetadataFile), []byte(body), 0o644))

	_, err := NewONNXLoader(root, Options{}).LoadDINO()
	assert.ErrorIs(t, err, ErrShape)
}
