// Package normalize maps raw DICOM pixel intensities to the 8-bit
// grayscale range expected by the rest of the pipeline.
package normalize

import (
	"fmt"
	"image"

	"gonum.org/v1/gonum/floats"

	"mammoprep/internal/models"
)

// Image rescales a raw sample grid to [0,255] by min-max scaling and
// truncation, so the darkest source pixel maps to 0 and the brightest
// to 255. A frame with a flat intensity range has no defined scaling
// and returns a DegenerateImageError; the caller decides whether to
// skip the file or substitute a fixed output.
func Image(raw models.RawSample) (models.Normalized, error) {
	if raw.Width < 1 || raw.Height < 1 {
		return models.Normalized{}, fmt.Errorf("invalid sample dimensions %dx%d", raw.Width, raw.Height)
	}
	if len(raw.Pixels) != raw.Width*raw.Height {
		return models.Normalized{}, fmt.Errorf("sample length %d does not match %dx%d grid",
			len(raw.Pixels), raw.Width, raw.Height)
	}

	min := floats.Min(raw.Pixels)
	max := floats.Max(raw.Pixels)
	if max == min {
		return models.Normalized{}, &models.DegenerateImageError{Value: min}
	}

	img := image.NewGray(image.Rect(0, 0, raw.Width, raw.Height))
	span := max - min
	for i, v := range raw.Pixels {
		// Truncation, not rounding: matches the uint8 cast the
		// downstream datasets were produced with. Dividing before
		// multiplying keeps the brightest pixel at exactly 255.
		img.Pix[i] = uint8((v - min) / span * 255.0)
	}

	return models.Normalized{Gray: img}, nil
}
