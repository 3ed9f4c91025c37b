package nodes

import "github.com/Brownie44l1/imgeval/internal/model"

// Default returns a registry holding every node of this package, backed by
// loader.
func Default(loader model.Loader) (*Registry, error) {
	r := NewRegistry()
	if err := r.Register(ClipScoreID, ClipScoreName, NewClipScore(loader)); err != nil {
		return nil, err
	}
	if err := r.Register(DinoScoreID, DinoScoreName, NewDinoScore(loader)); err != nil {
		return nil, err
	}
	return r, nil
}
