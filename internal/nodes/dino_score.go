package nodes

import (
	"context"
	"fmt"
	"log"

	"github.com/Brownie44l1/imgeval/internal/model"
	"github.com/Brownie44l1/imgeval/internal/similarity"
	"github.com/Brownie44l1/imgeval/internal/tensor"
)

const (
	DinoScoreID   = "Dino_Score-🔬"
	DinoScoreName = "Dino_Score"
)

// DinoScore compares two images by the cosine similarity of their DINO CLS
// embeddings.
type DinoScore struct {
	loader model.Loader
}

func NewDinoScore(loader model.Loader) *DinoScore {
	return &DinoScore{loader: loader}
}

func (d *DinoScore) InputTypes() InputTypes {
	return InputTypes{
		Required: Decl(
			In("Source_Image", Image()),
			In("Target_Image", Image()),
		),
	}
}

func (d *DinoScore) ReturnTypes() []string { return []string{string(TypeString)} }
func (d *DinoScore) ReturnNames() []string { return []string{"Dino_Score"} }
func (d *DinoScore) Function() string      { return EntryPoint }
func (d *DinoScore) Category() string      { return Category }

func (d *DinoScore) Execute(ctx context.Context, in Inputs) ([]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	source, ok := in.Image("Source_Image")
	if !ok {
		return nil, fmt.Errorf("%w: Source_Image", ErrMissingInput)
	}
	target, ok := in.Image("Target_Image")
	if !ok {
		return nil, fmt.Errorf("%w: Target_Image", ErrMissingInput)
	}

	encoder, err := d.loader.LoadDINO()
	if err != nil {
		return nil, err
	}
	defer encoder.Close()

	sourceImage, err := tensor.ToImage(source)
	if err != nil {
		return nil, fmt.Errorf("Source_Image: %w", err)
	}
	targetImage, err := tensor.ToImage(target)
	if err != nil {
		return nil, fmt.Errorf("Target_Image: %w", err)
	}

	sourceFeatures, err := encoder.EncodeImage(sourceImage)
	if err != nil {
		return nil, err
	}
	targetFeatures, err := encoder.EncodeImage(targetImage)
	if err != nil {
		return nil, err
	}

	score, err := similarity.Cosine(sourceFeatures, targetFeatures)
	if err != nil {
		return nil, err
	}

	log.Printf("Dino score: %v", score)
	return []any{FormatScore(score)}, nil
}
