// Package dicomio decodes DICOM files into raw sample grids for the
// preprocessing pipeline. Only single-frame native grayscale images
// are supported; everything else is reported as a skip condition, not
// a batch failure.
package dicomio

import (
	"fmt"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"mammoprep/internal/models"
)

// ReadRawSample parses the DICOM file at path and returns its pixel
// grid with samples widened to float64. Returns ErrNoPixelData when
// the object carries no pixel data and ErrUnsupportedImage for
// multi-frame, encapsulated, or non-grayscale layouts.
func ReadRawSample(path string) (models.RawSample, error) {
	ds, err := dicom.ParseFile(path, nil)
	if err != nil {
		return models.RawSample{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	el, err := ds.FindElementByTag(tag.PixelData)
	if err != nil {
		return models.RawSample{}, models.ErrNoPixelData
	}

	info := dicom.MustGetPixelDataInfo(el.Value)
	if len(info.Frames) == 0 {
		return models.RawSample{}, models.ErrNoPixelData
	}
	if len(info.Frames) > 1 {
		return models.RawSample{}, fmt.Errorf("%w: %d frames", models.ErrUnsupportedImage, len(info.Frames))
	}

	native, err := info.Frames[0].GetNativeFrame()
	if err != nil {
		// Encapsulated (compressed) pixel data: transcoding is out of
		// scope for this tool.
		return models.RawSample{}, fmt.Errorf("%w: %v", models.ErrUnsupportedImage, err)
	}

	if native.Rows < 1 || native.Cols < 1 {
		return models.RawSample{}, models.ErrNoPixelData
	}

	raw := models.RawSample{
		Pixels:        make([]float64, native.Rows*native.Cols),
		Width:         native.Cols,
		Height:        native.Rows,
		BitsPerSample: native.BitsPerSample,
	}
	for i, samples := range native.Data {
		if len(samples) != 1 {
			return models.RawSample{}, fmt.Errorf("%w: %d samples per pixel", models.ErrUnsupportedImage, len(samples))
		}
		raw.Pixels[i] = float64(samples[0])
	}

	return raw, nil
}
