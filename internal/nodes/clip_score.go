package nodes

import (
	"context"
	"fmt"
	"image"
	"log"

	"github.com/Brownie44l1/imgeval/internal/model"
	"github.com/Brownie44l1/imgeval/internal/similarity"
	"github.com/Brownie44l1/imgeval/internal/tensor"
)

const (
	ClipScoreID   = "Clip_Score-🔬"
	ClipScoreName = "Clip_Score"
)

// ClipScore scores a source image against a reference image (CLIP image
// embedding cosine similarity) and against a reference prompt (CLIPScore).
// Each score is computed only when its reference is supplied.
type ClipScore struct {
	loader model.Loader
}

func NewClipScore(loader model.Loader) *ClipScore {
	return &ClipScore{loader: loader}
}

func (c *ClipScore) InputTypes() InputTypes {
	return InputTypes{
		Required: Decl(
			In("Source_Image", Image()),
			In("Clip_Model", Combo(model.CLIPModels...)),
		),
		Optional: Decl(
			In("Target_Image", Image()),
			In("Target_Prompt", String()),
		),
	}
}

func (c *ClipScore) ReturnTypes() []string {
	return []string{string(TypeString), string(TypeString)}
}

func (c *ClipScore) ReturnNames() []string {
	return []string{"Clip_Text_Score", "Clip_Image_Score"}
}

func (c *ClipScore) Function() string { return EntryPoint }
func (c *ClipScore) Category() string { return Category }

func (c *ClipScore) Execute(ctx context.Context, in Inputs) ([]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	source, ok := in.Image("Source_Image")
	if !ok {
		return nil, fmt.Errorf("%w: Source_Image", ErrMissingInput)
	}
	modelName, ok := in.String("Clip_Model")
	if !ok {
		return nil, fmt.Errorf("%w: Clip_Model", ErrMissingInput)
	}

	target, hasImage := in.Image("Target_Image")
	prompt, hasPrompt := in.String("Target_Prompt")
	hasPrompt = hasPrompt && prompt != ""

	textScore, imageScore := Placeholder, Placeholder
	if !hasImage && !hasPrompt {
		return []any{textScore, imageScore}, nil
	}

	sourceImage, err := tensor.ToImage(source)
	if err != nil {
		return nil, fmt.Errorf("Source_Image: %w", err)
	}

	scorer, err := c.loader.LoadCLIP(modelName)
	if err != nil {
		return nil, err
	}
	defer scorer.Close()

	if hasPrompt {
		score, err := scorer.ScoreText(sourceImage, prompt)
		if err != nil {
			return nil, err
		}
		textScore = FormatScore(score)
	}

	if hasImage {
		targetImage, err := tensor.ToImage(target)
		if err != nil {
			return nil, fmt.Errorf("Target_Image: %w", err)
		}
		score, err := imageSimilarity(scorer, sourceImage, targetImage)
		if err != nil {
			return nil, err
		}
		imageScore = FormatScore(score)
	}

	log.Printf("Clip scores (%s): text=%s image=%s", modelName, textScore, imageScore)
	return []any{textScore, imageScore}, nil
}

func imageSimilarity(enc model.ImageEncoder, source, target image.Image) (float64, error) {
	sourceFeatures, err := enc.EncodeImage(source)
	if err != nil {
		return 0, err
	}
	targetFeatures, err := enc.EncodeImage(target)
	if err != nil {
		return 0, err
	}
	return similarity.Cosine(targetFeatures, sourceFeatures)
}
