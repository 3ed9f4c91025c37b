package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/imgeval/internal/model"
	"github.com/Brownie44l1/imgeval/internal/nodes"
	"github.com/Brownie44l1/imgeval/internal/tensor"
)

type constEncoder struct{}

func (constEncoder) EncodeImage(image.Image) ([]float32, error) { return []float32{1, 2, 3}, nil }
func (constEncoder) ScoreText(image.Image, string) (float64, error) { return 19.5, nil }
func (constEncoder) Close() error { return nil }

type constLoader struct{}

func (constLoader) LoadDINO() (model.ImageEncoder, error) { return constEncoder{}, nil }
func (constLoader) LoadCLIP(string) (model.TextImageScorer, error) { return constEncoder{}, nil }

func writePNG(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestNodesCommand(t *testing.T) {
	cmd := NewCLI()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"nodes"})

	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), nodes.ClipScoreID)
	assert.Contains(t, out.String(), nodes.DinoScoreID)
	assert.Contains(t, out.String(), "Clip_Text_Score, Clip_Image_Score")
}

func TestLoadInputs(t *testing.T) {
	dir := t.TempDir()
	src := writePNG(t, dir, "src.png")

	inputs, err := loadInputs(
		map[string]string{"Source_Image": src},
		map[string]string{"Target_Prompt": "a cat"},
	)
	require.NoError(t, err)

	img, ok := inputs.Image("Source_Image")
	require.True(t, ok)
	assert.Equal(t, [4]int{1, 4, 4, 3}, img.Shape)
	assert.Equal(t, "a cat", inputs["Target_Prompt"])

	_, err = loadInputs(map[string]string{"Source_Image": filepath.Join(dir, "missing.png")}, nil)
	assert.Error(t, err)
}

func TestRunNode(t *testing.T) {
	registry, err := nodes.Default(constLoader{})
	require.NoError(t, err)

	cmd := NewCLI()
	cmd.SetContext(context.Background())
	var out bytes.Buffer
	cmd.SetOut(&out)

	img := tensor.New(1, 2, 2, 3)
	err = runNode(cmd, registry, nodes.ClipScoreID, nodes.Inputs{
		"Source_Image":  img,
		"Clip_Model":    model.CLIPBasePatch32,
		"Target_Prompt": "a cat",
	})
	require.NoError(t, err)

	assert.Equal(t, "Clip_Text_Score: 19.5\nClip_Image_Score: None\n", out.String())
}
