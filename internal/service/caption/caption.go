// Package caption builds the display text attached to a suggestion.
package caption

import (
	"fmt"
	"strings"
	"time"

	"photocurator/internal/service/analyzer"
)

// Thresholds are the dominant color cutoffs for the tone tag.
type Thresholds struct {
	WarmRedMin   uint8 // R must exceed this...
	WarmGreenMin uint8 // ...and G must exceed this for "warm tones"
	CoolBlueMin  uint8 // otherwise B above this gives "cool tones"
}

// DefaultThresholds returns the production tone cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		WarmRedMin:   180,
		WarmGreenMin: 120,
		CoolBlueMin:  140,
	}
}

// Formatter renders captions. The zero value is not usable; use New.
type Formatter struct {
	thresholds Thresholds
}

// New creates a Formatter with the given thresholds.
func New(thresholds Thresholds) *Formatter {
	return &Formatter{thresholds: thresholds}
}

// Generate returns "<filename> | <tags>\n\n<hashtags>". The only input that
// is not derived from the report is the year hashtag, taken from now in UTC.
func (f *Formatter) Generate(filename string, report *analyzer.ScoreReport, now time.Time) string {
	parts := []string{"shot"}
	if report.FaceCount > 0 {
		parts[0] = "portrait"
	}
	if tone := f.Tone(report.DominantColor); tone != "" {
		parts = append(parts, tone)
	}

	var hashtags []string
	if report.FaceCount > 0 {
		hashtags = append(hashtags, "#portrait", "#people")
	} else {
		hashtags = append(hashtags, "#photooftheday")
	}
	hashtags = append(hashtags, fmt.Sprintf("#%d", now.UTC().Year()))

	return filename + " | " + strings.Join(parts, " · ") + "\n\n" + strings.Join(hashtags, " ")
}

// Tone returns "warm tones", "cool tones" or "" for a dominant color.
func (f *Formatter) Tone(c analyzer.RGB) string {
	switch {
	case c.R > f.thresholds.WarmRedMin && c.G > f.thresholds.WarmGreenMin:
		return "warm tones"
	case c.B > f.thresholds.CoolBlueMin:
		return "cool tones"
	default:
		return ""
	}
}

// Message is the text shown to the curator next to the image.
func Message(filename string, score float64, caption string) string {
	return fmt.Sprintf("Suggested: %s\nScore: %.3f\n\n%s", filename, score, caption)
}
