package model

import (
	"fmt"
	"image"
	"math"
	"path/filepath"
	"slices"

	"github.com/Brownie44l1/imgeval/internal/similarity"
)

const attentionMaskInput = "attention_mask"

// CLIPEncoder wraps the vision and text towers of a CLIP checkpoint. The
// text tower is only loaded when text is scored.
type CLIPEncoder struct {
	dir       string
	opts      Options
	meta      *Metadata
	vision    *Session
	text      *Session
	tokenizer *Tokenizer
	transform Transform
}

func NewCLIPEncoder(dir string, opts Options) (*CLIPEncoder, error) {
	meta, err := LoadMetadata(dir)
	if err != nil {
		return nil, err
	}

	vision, err := NewSession(filepath.Join(dir, meta.Vision.File), meta.Vision, opts)
	if err != nil {
		return nil, err
	}

	return &CLIPEncoder{
		dir:       dir,
		opts:      opts,
		meta:      meta,
		vision:    vision,
		transform: CLIPTransform(meta),
	}, nil
}

// EncodeImage returns the projected image embedding.
func (e *CLIPEncoder) EncodeImage(img image.Image) ([]float32, error) {
	pixels, err := e.transform.Apply(img)
	if err != nil {
		return nil, fmt.Errorf("failed to preprocess image: %w", err)
	}

	if err := e.vision.SetFloat32(e.meta.Vision.Inputs[0].Name, pixels); err != nil {
		return nil, err
	}
	if err := e.vision.Run(); err != nil {
		return nil, err
	}

	embeds, err := e.vision.Output(e.meta.Vision.Outputs[0].Name)
	if err != nil {
		return nil, err
	}
	return slices.Clone(embeds), nil
}

// EncodeText returns the projected text embedding.
func (e *CLIPEncoder) EncodeText(text string) ([]float32, error) {
	if err := e.loadText(); err != nil {
		return nil, err
	}

	ids, mask, err := e.tokenizer.Encode(text)
	if err != nil {
		return nil, fmt.Errorf("failed to tokenize prompt: %w", err)
	}

	for _, in := range e.meta.Text.Inputs {
		data := ids
		if in.Name == attentionMaskInput {
			data = mask
		}
		if err := e.text.SetInt64(in.Name, data); err != nil {
			return nil, err
		}
	}
	if err := e.text.Run(); err != nil {
		return nil, err
	}

	embeds, err := e.text.Output(e.meta.Text.Outputs[0].Name)
	if err != nil {
		return nil, err
	}
	return slices.Clone(embeds), nil
}

// ScoreText computes CLIPScore: 100 times the cosine similarity of the
// image and text embeddings, floored at zero.
func (e *CLIPEncoder) ScoreText(img image.Image, text string) (float64, error) {
	cropped, err := ScoreCrop(img)
	if err != nil {
		return 0, fmt.Errorf("failed to preprocess image: %w", err)
	}

	imageEmbeds, err := e.EncodeImage(cropped)
	if err != nil {
		return 0, err
	}
	textEmbeds, err := e.EncodeText(text)
	if err != nil {
		return 0, err
	}

	return clipScore(imageEmbeds, textEmbeds)
}

func clipScore(imageEmbeds, textEmbeds []float32) (float64, error) {
	sim, err := similarity.Cosine(imageEmbeds, textEmbeds)
	if err != nil {
		return 0, err
	}
	return float64(float32(math.Max(100*sim, 0))), nil
}

func (e *CLIPEncoder) loadText() error {
	if e.text != nil {
		return nil
	}
	if e.meta.Text == nil {
		return fmt.Errorf("%w: %s has no text graph", ErrMetadata, e.meta.Name)
	}

	tokDir := e.dir
	if e.meta.Tokenizer != "" {
		tokDir = filepath.Join(e.dir, e.meta.Tokenizer)
	}
	tokenizer, err := LoadTokenizer(tokDir, e.meta.ContextLength, e.meta.PadTokenID)
	if err != nil {
		return err
	}

	text, err := NewSession(filepath.Join(e.dir, e.meta.Text.File), *e.meta.Text, e.opts)
	if err != nil {
		return err
	}

	e.tokenizer = tokenizer
	e.text = text
	return nil
}

func (e *CLIPEncoder) Close() error {
	if e.vision != nil {
		e.vision.Close()
	}
	if e.text != nil {
		e.text.Close()
	}
	return nil
}
