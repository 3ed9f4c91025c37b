package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

const (
	DINOModel = "facebook/dino-vits16"

	CLIPLargePatch14 = "openai/clip-vit-large-patch14"
	CLIPBasePatch16  = "openai/clip-vit-base-patch16"
	CLIPBasePatch32  = "openai/clip-vit-base-patch32"

	MetadataFile = "metadata.json"
)

// CLIPModels lists the CLIP checkpoints that can be loaded, in the order
// they are offered to the host.
var CLIPModels = []string{CLIPLargePatch14, CLIPBasePatch16, CLIPBasePatch32}

type TensorSpec struct {
	Name  string  `json:"name"`
	Shape []int64 `json:"shape"`
	Type  string  `json:"type,omitempty"` // float32 (default) or int64
}

func (s TensorSpec) size() int {
	n := 1
	for _, d := range s.Shape {
		n *= int(d)
	}
	return n
}

// Graph describes one exported ONNX file and its fixed-shape inputs and
// outputs.
type Graph struct {
	File    string       `json:"file"`
	Inputs  []TensorSpec `json:"inputs"`
	Outputs []TensorSpec `json:"outputs"`
}

// Metadata is read from metadata.json next to the exported graphs.
type Metadata struct {
	Name          string     `json:"name"`
	ImageSize     int        `json:"image_size"`
	ResizeSize    int        `json:"resize_size,omitempty"`
	Mean          [3]float32 `json:"mean"`
	Std           [3]float32 `json:"std"`
	EmbeddingDim  int        `json:"embedding_dim"`
	ContextLength int        `json:"context_length,omitempty"`
	PadTokenID    int64      `json:"pad_token_id,omitempty"`
	Vision        Graph      `json:"vision"`
	Text          *Graph     `json:"text,omitempty"`
	Tokenizer     string     `json:"tokenizer,omitempty"`
}

// LoadMetadata reads and checks the metadata of the model stored in dir.
func LoadMetadata(dir string) (*Metadata, error) {
	metaFile, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var metadata Metadata
	if err := json.Unmarshal(metaFile, &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}

	if err := metadata.validate(); err != nil {
		return nil, err
	}
	return &metadata, nil
}

func (m *Metadata) validate() error {
	if m.ImageSize <= 0 {
		return fmt.Errorf("%w: image_size must be positive", ErrMetadata)
	}
	if m.Std[0] == 0 || m.Std[1] == 0 || m.Std[2] == 0 {
		return fmt.Errorf("%w: std must be non-zero", ErrMetadata)
	}
	if m.Vision.File == "" || len(m.Vision.Inputs) != 1 || len(m.Vision.Outputs) != 1 {
		return fmt.Errorf("%w: vision graph needs a file, one input and one output", ErrMetadata)
	}
	want := []int64{1, 3, int64(m.ImageSize), int64(m.ImageSize)}
	if !slices.Equal(m.Vision.Inputs[0].Shape, want) {
		return fmt.Errorf("%w: vision input shape %v, expected %v", ErrShape, m.Vision.Inputs[0].Shape, want)
	}
	if m.Text != nil {
		if m.Text.File == "" || len(m.Text.Inputs) == 0 || len(m.Text.Outputs) != 1 {
			return fmt.Errorf("%w: text graph needs a file, inputs and one output", ErrMetadata)
		}
		if m.ContextLength <= 0 {
			return fmt.Errorf("%w: context_length must be positive for text graphs", ErrMetadata)
		}
	}
	return nil
}
