package selection

import (
	"bytes"
	"path/filepath"
	"strings"
	"time"

	"github.com/bep/imagemeta"
)

const exifDateLayout = "2006:01:02 15:04:05"

// captureTime reads EXIF DateTimeOriginal. Any failure reports ok=false and
// the caller falls back to the file's modification time.
func captureTime(data []byte, filename string) (t time.Time, ok bool) {
	format, supported := imageFormat(filename)
	if !supported || len(data) == 0 {
		return time.Time{}, false
	}

	_, err := imagemeta.Decode(imagemeta.Options{
		R:           bytes.NewReader(data),
		ImageFormat: format,
		Sources:     imagemeta.EXIF,
		ShouldHandleTag: func(ti imagemeta.TagInfo) bool {
			return ti.Tag == "DateTimeOriginal"
		},
		HandleTag: func(ti imagemeta.TagInfo) error {
			if parsed, found := parseEXIFDate(ti.Value); found {
				t, ok = parsed, true
			}
			return nil
		},
	})
	if err != nil {
		return time.Time{}, false
	}

	return t, ok
}

func imageFormat(filename string) (imagemeta.ImageFormat, bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return imagemeta.JPEG, true
	case ".png":
		return imagemeta.PNG, true
	}
	return 0, false
}

// parseEXIFDate accepts both the raw EXIF string and an already converted time.
func parseEXIFDate(v any) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		return val, !val.IsZero()
	case string:
		t, err := time.ParseInLocation(exifDateLayout, strings.TrimSpace(val), time.Local)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}
