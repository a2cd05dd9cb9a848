package analyzer

import (
	"math"
	"time"
)

// seasonCurve maps color warmth to a season affinity: base + slope*w (or slope*|w|).
type seasonCurve struct {
	base     float64
	slope    float64
	absolute bool
}

var seasonCurves = map[time.Month]seasonCurve{
	// Zima preferuje chłodne barwy
	time.December: {0.5, -0.5, false},
	time.January:  {0.5, -0.5, false},
	time.February: {0.5, -0.5, false},
	// Wiosna nagradza wyrazisty kolor w obie strony
	time.March: {0.5, 0.2, true},
	time.April: {0.5, 0.2, true},
	time.May:   {0.5, 0.2, true},
	// Lato preferuje ciepłe barwy
	time.June:   {0.5, 0.5, false},
	time.July:   {0.5, 0.5, false},
	time.August: {0.5, 0.5, false},
	// Jesień
	time.September: {0.5, 0.4, false},
	time.October:   {0.5, 0.4, false},
	time.November:  {0.5, 0.4, false},
}

// neutralSeasonScore is used when the capture month is unknown.
const neutralSeasonScore = 0.5

// Warmth returns (R-B)/255 for an RGB color: negative is cool, positive is warm.
func Warmth(c RGB) float64 {
	return (float64(c.R) - float64(c.B)) / 255.0
}

// SeasonScore rates how well a color warmth fits the capture month.
// A zero month means unknown and always yields exactly 0.5.
func SeasonScore(month time.Month, warmth float64) float64 {
	curve, ok := seasonCurves[month]
	if !ok {
		return neutralSeasonScore
	}
	w := warmth
	if curve.absolute {
		w = math.Abs(w)
	}
	return clamp01(curve.base + curve.slope*w)
}

// captureMonth returns the month of t, or 0 when t is unset.
func captureMonth(t time.Time) time.Month {
	if t.IsZero() {
		return 0
	}
	return t.Month()
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
