// Package pad rescales images to fit a fixed target canvas without
// distortion, centering the content on a black background.
package pad

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"mammoprep/internal/models"
)

// ToSize fits img inside the target canvas, preserving aspect ratio.
// The image is scaled by min(tw/w, th/h), resampled with Lanczos, and
// pasted centered on an all-black canvas of exactly the target size;
// odd padding remainders go to the right/bottom. Content is only
// scaled here, never cropped.
func ToSize(img *image.Gray, target models.Size) *image.Gray {
	w := img.Rect.Dx()
	h := img.Rect.Dy()

	scale := math.Min(
		float64(target.Width)/float64(w),
		float64(target.Height)/float64(h),
	)

	// One rounding rule for both axes. Rounding (not flooring) keeps
	// the dominant axis at exactly the target despite float error.
	newW := int(math.Round(float64(w) * scale))
	newH := int(math.Round(float64(h) * scale))
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}
	if newW > target.Width {
		newW = target.Width
	}
	if newH > target.Height {
		newH = target.Height
	}

	resized := imaging.Resize(img, newW, newH, imaging.Lanczos)
	canvas := imaging.New(target.Width, target.Height, color.Black)
	composed := imaging.PasteCenter(canvas, resized)

	return toGray(composed)
}

// toGray flattens an NRGBA compose result back to 8-bit grayscale.
// The source content is grayscale already, so the red channel carries
// the intensity.
func toGray(src *image.NRGBA) *image.Gray {
	w := src.Rect.Dx()
	h := src.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		si := y * src.Stride
		oi := y * out.Stride
		for x := 0; x < w; x++ {
			out.Pix[oi+x] = src.Pix[si+x*4]
		}
	}
	return out
}
