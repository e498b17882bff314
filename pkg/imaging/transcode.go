package imaging

import (
	"bytes"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/ohaddad/shopsnap/pkg/debug"
)

// Transcoder re-encodes oversized assets as JPEG at decreasing quality
// until they fit a byte budget. When the quality floor alone is not enough,
// the image is scaled down in 25% steps and the quality ladder re-run.
type Transcoder struct {
	// Quality is the starting JPEG quality. Defaults to 95.
	Quality int

	// QualityStep is subtracted per attempt. Defaults to 5.
	QualityStep int

	// QualityFloor is the lowest acceptable quality. Defaults to 20.
	QualityFloor int

	// MinDimension stops downscaling once either side would drop below
	// it. Defaults to 320.
	MinDimension int
}

// NewTranscoder returns a Transcoder with the default ladder.
func NewTranscoder() Transcoder {
	return Transcoder{
		Quality:      95,
		QualityStep:  5,
		QualityFloor: 20,
		MinDimension: 320,
	}
}

// EnsureBudget returns an asset at or under the budget when possible, and
// the smallest representation achieved otherwise. It never fails: input
// that cannot be decoded is returned unchanged. Assets already within
// budget pass through untouched.
func (t Transcoder) EnsureBudget(asset Asset, budget int) Asset {
	if budget <= 0 || len(asset.Data) <= budget {
		return asset
	}

	quality, step, floor, minDim := t.settings()

	src, format, err := image.Decode(bytes.NewReader(asset.Data))
	if err != nil {
		debug.Log("image", "transcode skipped, decode failed", "origin", asset.Origin, "error", err)
		return asset
	}

	best := asset.Data
	bestMIME := asset.MIME

	for {
		for q := quality; q >= floor; q -= step {
			var buf bytes.Buffer
			if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: q}); err != nil {
				return asset
			}
			if buf.Len() < len(best) {
				best = buf.Bytes()
				bestMIME = "image/jpeg"
			}
			if buf.Len() <= budget {
				debug.Log("image", "transcoded within budget",
					"origin", asset.Origin, "format", format, "quality", q, "bytes", buf.Len())
				return Asset{
					Data:   buf.Bytes(),
					MIME:   "image/jpeg",
					Origin: asset.Origin,
				}
			}
		}

		b := src.Bounds()
		w, h := b.Dx()*3/4, b.Dy()*3/4
		if w < minDim || h < minDim {
			break
		}
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
		src = dst
	}

	debug.Log("image", "transcode exhausted, returning best attempt",
		"origin", asset.Origin, "bytes", len(best), "budget", budget)
	return Asset{
		Data:       best,
		MIME:       bestMIME,
		Origin:     asset.Origin,
		OverBudget: len(best) > budget,
	}
}

// settings applies ladder defaults so a zero-value Transcoder still
// terminates.
func (t Transcoder) settings() (quality, step, floor, minDim int) {
	quality, step, floor, minDim = t.Quality, t.QualityStep, t.QualityFloor, t.MinDimension
	if quality <= 0 {
		quality = 95
	}
	if step <= 0 {
		step = 5
	}
	if floor <= 0 {
		floor = 20
	}
	if minDim <= 0 {
		minDim = 320
	}
	return quality, step, floor, minDim
}
