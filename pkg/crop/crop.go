// Package crop removes black margins and masked corner text regions
// from normalized mammography images, isolating the clinically
// relevant area.
package crop

import (
	"image"

	"mammoprep/internal/models"
	"mammoprep/pkg/config"
)

// Borders returns the sub-image enclosing every pixel brighter than
// the calibration's intensity threshold, after masking out the four
// fixed corner rectangles (burned-in patient text) and any remaining
// pixel above the bright threshold. Masking happens on a scratch copy;
// the returned pixels come from the input image.
//
// When the mask is empty the input is returned unchanged, so the
// result is never zero-sized. Output dimensions never exceed the
// input's.
func Borders(img models.Normalized, cal config.CropCalibration) models.Cropped {
	src := img.Gray
	w := src.Rect.Dx()
	h := src.Rect.Dy()

	work := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		off := src.PixOffset(src.Rect.Min.X, src.Rect.Min.Y+y)
		copy(work[y*w:(y+1)*w], src.Pix[off:off+w])
	}

	// Corner text masks: fixed geometry for the target modality's
	// burned-in text placement, clamped for images smaller than the
	// mask itself.
	ch := cal.CornerHeight
	cw := cal.CornerWidth
	if ch > h {
		ch = h
	}
	if cw > w {
		cw = w
	}
	zeroRect(work, w, 0, 0, cw, ch)
	zeroRect(work, w, w-cw, 0, w, ch)
	zeroRect(work, w, 0, h-ch, cw, h)
	zeroRect(work, w, w-cw, h-ch, w, h)

	// Anything still brighter than the bright threshold is residual
	// text, not tissue.
	for i, v := range work {
		if v > cal.BrightThreshold {
			work[i] = 0
		}
	}

	minX, minY := w, h
	maxX, maxY := -1, -1
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if work[y*w+x] > cal.IntensityThreshold {
				if x < minX {
					minX = x
				}
				if x > maxX {
					maxX = x
				}
				if y < minY {
					minY = y
				}
				if y > maxY {
					maxY = y
				}
			}
		}
	}

	// Empty mask: nothing above the threshold survived masking.
	// Returning the input avoids producing an empty crop.
	if maxX < 0 {
		return models.Cropped{Gray: src}
	}

	// Inclusive bounds, copied into a zero-based image so downstream
	// stages never see a sub-image with offset bounds.
	cropW := maxX - minX + 1
	cropH := maxY - minY + 1
	out := image.NewGray(image.Rect(0, 0, cropW, cropH))
	for y := 0; y < cropH; y++ {
		off := src.PixOffset(src.Rect.Min.X+minX, src.Rect.Min.Y+minY+y)
		copy(out.Pix[y*out.Stride:y*out.Stride+cropW], src.Pix[off:off+cropW])
	}

	return models.Cropped{Gray: out}
}

// zeroRect zeroes work pixels in [x0,x1) x [y0,y1).
func zeroRect(work []uint8, stride, x0, y0, x1, y1 int) {
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			work[y*stride+x] = 0
		}
	}
}
