package analyzer

import (
	"fmt"
	"math"
	"os"
	"time"

	"gocv.io/x/gocv"
)

// RGB is an 8-bit color.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// ScoreReport holds the per-image heuristics and their weighted blend.
type ScoreReport struct {
	Sharpness     float64 `json:"sharpness"`
	Brightness    float64 `json:"brightness"`
	DominantColor RGB     `json:"dominant_color"`
	FaceCount     int     `json:"face_count"`
	SeasonScore   float64 `json:"season_score"`
	Composite     float64 `json:"score"`
}

// DecodeError is returned when the image bytes cannot be decoded.
// Callers skip the image and continue with the rest.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to decode image: %s: %v", e.Reason, e.Err)
	}
	return "failed to decode image: " + e.Reason
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Analyzer scores images. It keeps no state between calls; the face
// cascade is loaded for every image because CascadeClassifier is not
// safe for concurrent use.
type Analyzer struct {
	params      Params
	cascadePath string
}

// NewAnalyzer validates params and the optional cascade file.
// An empty cascadePath disables face detection.
func NewAnalyzer(params Params, cascadePath string) (*Analyzer, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring parameters: %w", err)
	}

	if cascadePath != "" {
		if _, err := os.Stat(cascadePath); err != nil {
			return nil, fmt.Errorf("cascade file not found: %s", cascadePath)
		}
		classifier := gocv.NewCascadeClassifier()
		ok := classifier.Load(cascadePath)
		classifier.Close()
		if !ok {
			return nil, fmt.Errorf("failed to load cascade: %s", cascadePath)
		}
	}

	return &Analyzer{params: params, cascadePath: cascadePath}, nil
}

// Params returns the scoring parameters in use.
func (a *Analyzer) Params() Params {
	return a.params
}

// FaceDetection reports whether a face cascade is configured.
func (a *Analyzer) FaceDetection() bool {
	return a.cascadePath != ""
}

// ComputeScore decodes data and computes every heuristic. captured is the
// photo's capture (or modification) time; a zero value means unknown.
// Identical input always yields an identical report.
func (a *Analyzer) ComputeScore(data []byte, captured time.Time) (*ScoreReport, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Reason: "empty input"}
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, &DecodeError{Reason: "imdecode", Err: err}
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, &DecodeError{Reason: "decoded image is empty"}
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if err := gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray); err != nil {
		return nil, fmt.Errorf("failed to convert image to grayscale: %w", err)
	}

	variance := laplacianVariance(gray)
	brightness := grayMean(gray) / 255.0

	dominant, err := dominantColor(mat, a.params)
	if err != nil {
		return nil, err
	}

	faces := 0
	if a.cascadePath != "" {
		faces, err = countFaces(gray, a.cascadePath, a.params)
		if err != nil {
			return nil, err
		}
	}

	report := &ScoreReport{
		Sharpness:     clamp01(math.Tanh(variance / a.params.SharpnessScale)),
		Brightness:    clamp01(brightness),
		DominantColor: dominant,
		FaceCount:     faces,
		SeasonScore:   SeasonScore(captureMonth(captured), Warmth(dominant)),
	}
	report.Composite = a.Composite(report)

	return report, nil
}

// Composite blends the sub-scores of r with the configured weights.
func (a *Analyzer) Composite(r *ScoreReport) float64 {
	w := a.params.Weights
	faceNorm := math.Min(1, float64(r.FaceCount)/a.params.FaceSaturation)

	score := w.Sharpness*clamp01(r.Sharpness) +
		w.Brightness*clamp01(r.Brightness) +
		w.Season*clamp01(r.SeasonScore) +
		w.Faces*clamp01(faceNorm)

	return clamp01(score)
}
