package model

import (
	"fmt"
	"image"
	"path/filepath"
)

// DINOEncoder runs a DINO ViT and returns the CLS token of the last hidden
// state as the image feature.
type DINOEncoder struct {
	session   *Session
	meta      *Metadata
	transform Transform
}

func NewDINOEncoder(dir string, opts Options) (*DINOEncoder, error) {
	meta, err := LoadMetadata(dir)
	if err != nil {
		return nil, err
	}

	out := meta.Vision.Outputs[0]
	if len(out.Shape) != 3 || out.Shape[0] != 1 {
		return nil, fmt.Errorf("%w: hidden state shape %v, expected [1, tokens, dim]", ErrShape, out.Shape)
	}

	session, err := NewSession(filepath.Join(dir, meta.Vision.File), meta.Vision, opts)
	if err != nil {
		return nil, err
	}

	return &DINOEncoder{
		session:   session,
		meta:      meta,
		transform: DINOTransform(meta),
	}, nil
}

func (e *DINOEncoder) EncodeImage(img image.Image) ([]float32, error) {
	inputData, err := e.transform.Apply(img)
	if err != nil {
		return nil, fmt.Errorf("failed to preprocess image: %w", err)
	}

	if err := e.session.SetFloat32(e.meta.Vision.Inputs[0].Name, inputData); err != nil {
		return nil, err
	}
	if err := e.session.Run(); err != nil {
		return nil, err
	}

	hidden, err := e.session.Output(e.meta.Vision.Outputs[0].Name)
	if err != nil {
		return nil, err
	}

	dim := int(e.meta.Vision.Outputs[0].Shape[2])
	return clsToken(hidden, dim)
}

func (e *DINOEncoder) Close() error {
	e.session.Close()
	return nil
}

// clsToken copies the first token of a [1, tokens, dim] hidden state.
func clsToken(hidden []float32, dim int) ([]float32, error) {
	if dim <= 0 || len(hidden) < dim {
		return nil, fmt.Errorf("%w: hidden state has %d values, dim %d", ErrShape, len(hidden), dim)
	}
	cls := make([]float32, dim)
	copy(cls, hidden[:dim])
	return cls, nil
}
