package analyzer

import (
	"fmt"
	"image"
	"math"
	"math/rand"
	"runtime"

	"gocv.io/x/gocv"
)

// laplacianVariance returns the variance of the Laplacian of a grayscale image.
// Blurry images have few edges and therefore a low variance.
func laplacianVariance(gray gocv.Mat) float64 {
	lap := gocv.NewMat()
	defer lap.Close()
	gocv.Laplacian(gray, &lap, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault)

	mean := gocv.NewMat()
	defer mean.Close()
	stdDev := gocv.NewMat()
	defer stdDev.Close()
	gocv.MeanStdDev(lap, &mean, &stdDev)

	sd := stdDev.GetDoubleAt(0, 0)
	return sd * sd
}

// grayMean returns the mean pixel intensity of a grayscale image (0..255).
func grayMean(gray gocv.Mat) float64 {
	return gray.Mean().Val1
}

// dominantColor clusters a seeded pixel sample and returns the centroid of
// the most populated cluster.
func dominantColor(mat gocv.Mat, p Params) (RGB, error) {
	channels := mat.Channels()
	if channels < 3 {
		return RGB{}, &DecodeError{Reason: fmt.Sprintf("expected 3 channels, got %d", channels)}
	}

	pixels := mat.ToBytes()
	total := mat.Rows() * mat.Cols()
	if total == 0 || len(pixels) < total*channels {
		return RGB{}, &DecodeError{Reason: "unexpected pixel buffer size"}
	}

	rng := rand.New(rand.NewSource(p.Seed))
	indices := sampleIndices(total, p.MaxColorSamples, rng)

	samples := gocv.NewMatWithSize(len(indices), 3, gocv.MatTypeCV32F)
	defer samples.Close()
	for row, px := range indices {
		off := px * channels
		// OpenCV trzyma piksele w kolejności BGR
		samples.SetFloatAt(row, 0, float32(pixels[off+2]))
		samples.SetFloatAt(row, 1, float32(pixels[off+1]))
		samples.SetFloatAt(row, 2, float32(pixels[off]))
	}

	k := p.ColorClusters
	if k > len(indices) {
		k = len(indices)
	}

	labels := gocv.NewMat()
	defer labels.Close()
	centers := gocv.NewMat()
	defer centers.Close()

	criteria := gocv.NewTermCriteria(gocv.Count|gocv.EPS, p.KMeansMaxIter, p.KMeansEpsilon)

	// cv::theRNG is per thread; pin the goroutine so the seed applies to this run
	runtime.LockOSThread()
	gocv.SetRNGSeed(int(p.Seed))
	gocv.KMeans(samples, k, &labels, criteria, p.KMeansAttempts, gocv.KMeansPPCenters, &centers)
	runtime.UnlockOSThread()

	if centers.Rows() < k || labels.Rows() != len(indices) {
		return RGB{}, fmt.Errorf("kmeans returned %d centers and %d labels", centers.Rows(), labels.Rows())
	}

	counts := make([]int, k)
	for i := 0; i < labels.Rows(); i++ {
		label := int(labels.GetIntAt(i, 0))
		if label >= 0 && label < k {
			counts[label]++
		}
	}

	best := 0
	for i := 1; i < k; i++ {
		if counts[i] > counts[best] {
			best = i
		}
	}

	return RGB{
		R: toChannel(centers.GetFloatAt(best, 0)),
		G: toChannel(centers.GetFloatAt(best, 1)),
		B: toChannel(centers.GetFloatAt(best, 2)),
	}, nil
}

// sampleIndices picks n distinct indices from [0, total) using Floyd's
// algorithm. When n >= total every index is returned in order.
func sampleIndices(total, n int, rng *rand.Rand) []int {
	if n >= total {
		all := make([]int, total)
		for i := range all {
			all[i] = i
		}
		return all
	}

	seen := make(map[int]bool, n)
	out := make([]int, 0, n)
	for j := total - n; j < total; j++ {
		t := rng.Intn(j + 1)
		if seen[t] {
			t = j
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func toChannel(v float32) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Round(float64(v)))))
}

// countFaces runs the frontal face cascade on a grayscale image.
func countFaces(gray gocv.Mat, cascadePath string, p Params) (int, error) {
	classifier := gocv.NewCascadeClassifier()
	defer classifier.Close()

	if !classifier.Load(cascadePath) {
		return 0, fmt.Errorf("failed to load cascade: %s", cascadePath)
	}

	minSize := image.Pt(p.FaceMinSize, p.FaceMinSize)
	faces := classifier.DetectMultiScaleWithParams(gray, p.FaceScaleFactor, p.FaceMinNeighbors, 0, minSize, image.Pt(0, 0))
	return len(faces), nil
}
