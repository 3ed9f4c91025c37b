package model

import (
	"fmt"
	"image"
	"log"
	"path/filepath"
	"slices"
)

// ImageEncoder turns an image into a feature vector.
type ImageEncoder interface {
	EncodeImage(img image.Image) ([]float32, error)
	Close() error
}

// TextImageScorer is an image encoder that can also score an image against
// a text prompt.
type TextImageScorer interface {
	ImageEncoder
	ScoreText(img image.Image, text string) (float64, error)
}

// Loader creates model handles. Every call returns a freshly loaded model
// that the caller must close.
type Loader interface {
	LoadDINO() (ImageEncoder, error)
	LoadCLIP(name string) (TextImageScorer, error)
}

// ONNXLoader loads exported checkpoints from a directory laid out as
// <root>/<org>/<name>/metadata.json.
type ONNXLoader struct {
	Root    string
	Options Options
}

func NewONNXLoader(root string, opts Options) *ONNXLoader {
	return &ONNXLoader{Root: root, Options: opts}
}

func (l *ONNXLoader) LoadDINO() (ImageEncoder, error) {
	dir := filepath.Join(l.Root, filepath.FromSlash(DINOModel))
	log.Printf("Loading model from: %s", dir)

	enc, err := NewDINOEncoder(dir, l.Options)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", DINOModel, err)
	}
	return enc, nil
}

func (l *ONNXLoader) LoadCLIP(name string) (TextImageScorer, error) {
	if !slices.Contains(CLIPModels, name) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
	dir := filepath.Join(l.Root, filepath.FromSlash(name))
	log.Printf("Loading model from: %s", dir)

	enc, err := NewCLIPEncoder(dir, l.Options)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	return enc, nil
}
