package analyzer

import (
	"fmt"
	"math"
)

// Weights blends the sub-scores into the composite score. They must sum to 1.
type Weights struct {
	Sharpness  float64
	Brightness float64
	Season     float64
	Faces      float64
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Sharpness + w.Brightness + w.Season + w.Faces
}

// Params holds every tunable of the scoring heuristics.
type Params struct {
	Weights Weights

	// SharpnessScale divides the Laplacian variance before tanh compression.
	SharpnessScale float64

	// Dominant color clustering
	MaxColorSamples int
	ColorClusters   int
	KMeansAttempts  int
	KMeansMaxIter   int
	KMeansEpsilon   float64
	Seed            int64

	// Frontal face detector
	FaceScaleFactor  float64
	FaceMinNeighbors int
	FaceMinSize      int
	// FaceSaturation is the face count at which the face sub-score reaches 1.
	FaceSaturation float64
}

// DefaultParams returns the production scoring parameters.
func DefaultParams() Params {
	return Params{
		Weights: Weights{
			Sharpness:  0.55,
			Brightness: 0.20,
			Season:     0.15,
			Faces:      0.10,
		},
		SharpnessScale:   100,
		MaxColorSamples:  5000,
		ColorClusters:    3,
		KMeansAttempts:   4,
		KMeansMaxIter:    300,
		KMeansEpsilon:    1e-4,
		Seed:             0,
		FaceScaleFactor:  1.1,
		FaceMinNeighbors: 5,
		FaceMinSize:      30,
		FaceSaturation:   3,
	}
}

// Validate checks that the parameters describe a usable scorer.
func (p Params) Validate() error {
	if math.Abs(p.Weights.Sum()-1) > 1e-9 {
		return fmt.Errorf("weights must sum to 1, got %v", p.Weights.Sum())
	}
	for name, w := range map[string]float64{
		"sharpness":  p.Weights.Sharpness,
		"brightness": p.Weights.Brightness,
		"season":     p.Weights.Season,
		"faces":      p.Weights.Faces,
	} {
		if w < 0 {
			return fmt.Errorf("%s weight must not be negative, got %v", name, w)
		}
	}
	if p.SharpnessScale <= 0 {
		return fmt.Errorf("sharpness scale must be positive, got %v", p.SharpnessScale)
	}
	if p.MaxColorSamples <= 0 || p.ColorClusters <= 0 || p.KMeansAttempts <= 0 || p.KMeansMaxIter <= 0 {
		return fmt.Errorf("color clustering parameters must be positive")
	}
	if p.FaceScaleFactor <= 1 {
		return fmt.Errorf("face scale factor must be greater than 1, got %v", p.FaceScaleFactor)
	}
	if p.FaceSaturation <= 0 {
		return fmt.Errorf("face saturation must be positive, got %v", p.FaceSaturation)
	}
	return nil
}
