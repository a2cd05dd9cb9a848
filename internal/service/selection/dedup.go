package selection

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/corona10/goimagehash"
)

// dedupThreshold is the dHash Hamming distance below which two photos are
// treated as the same shot.
const dedupThreshold = 10

// dedup drops candidates perceptually identical to an earlier one.
// Candidates that cannot be hashed are kept.
func (p *Pipeline) dedup(candidates []candidate) []candidate {
	var hashes []*goimagehash.ImageHash
	kept := candidates[:0:0]

	for _, c := range candidates {
		img, _, err := image.Decode(bytes.NewReader(c.data))
		if err != nil {
			kept = append(kept, c)
			continue
		}

		hash, err := goimagehash.DifferenceHash(img)
		if err != nil {
			kept = append(kept, c)
			continue
		}

		duplicate := false
		for _, h := range hashes {
			if dist, err := hash.Distance(h); err == nil && dist < dedupThreshold {
				duplicate = true
				break
			}
		}
		if duplicate {
			p.logger.Info("Dropping %s as a near-duplicate", c.filename)
			continue
		}

		hashes = append(hashes, hash)
		kept = append(kept, c)
	}

	return kept
}
