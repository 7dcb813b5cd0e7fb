// Package lesion extracts annotated lesion sub-regions from normalized
// mammography images for the lesion crop dataset.
package lesion

import (
	"fmt"
	"image"

	"mammoprep/internal/models"
	"mammoprep/pkg/pad"
)

// NameDelimiter joins the image identifier and the lesion index in
// crop filenames. The dataset splitter derives image identifiers from
// filenames by cutting at this marker, so the two must agree.
const NameDelimiter = "_lesion_"

// Name returns the output filename for the k-th lesion of an image.
func Name(imageID string, index int) string {
	return fmt.Sprintf("%s%s%d.png", imageID, NameDelimiter, index)
}

// Extract crops one padded lesion image per annotation record that
// matches imageID and carries a bounding box. Records without a box
// are images with no finding and are skipped silently. Boxes that are
// inverted, empty, or outside the image bounds are rejected with an
// InvalidBoundingBoxError; the error is collected and the remaining
// records still produce crops.
//
// Bounding boxes are defined against original uncropped pixel space,
// which is why this function takes a Normalized image: running the
// border cropper first would shift every stored coordinate.
func Extract(img models.Normalized, imageID string, records []models.Annotation, target models.Size) ([]models.LesionCrop, []error) {
	src := img.Gray
	w := src.Rect.Dx()
	h := src.Rect.Dy()

	var crops []models.LesionCrop
	var errs []error

	index := 0
	for _, rec := range records {
		if rec.ImageID != imageID || rec.Box == nil {
			continue
		}
		box := *rec.Box

		// Invalid boxes still consume an index so that names stay
		// stable when a bad record is later fixed in the table.
		k := index
		index++

		if !box.Valid(w, h) {
			errs = append(errs, &models.InvalidBoundingBoxError{
				ImageID: imageID,
				Index:   k,
				Box:     box,
				Width:   w,
				Height:  h,
			})
			continue
		}

		region := cutRegion(src, box)
		crops = append(crops, models.LesionCrop{
			ImageID: imageID,
			Index:   k,
			Name:    Name(imageID, k),
			Image:   pad.ToSize(region, target),
		})
	}

	return crops, errs
}

// cutRegion copies image[ymin:ymax, xmin:xmax] into a zero-based gray
// image. Max bounds are exclusive, matching the annotation table's
// slicing convention.
func cutRegion(src *image.Gray, box models.BoundingBox) *image.Gray {
	cw := box.XMax - box.XMin
	ch := box.YMax - box.YMin
	out := image.NewGray(image.Rect(0, 0, cw, ch))
	for y := 0; y < ch; y++ {
		off := src.PixOffset(src.Rect.Min.X+box.XMin, src.Rect.Min.Y+box.YMin+y)
		copy(out.Pix[y*out.Stride:y*out.Stride+cw], src.Pix[off:off+cw])
	}
	return out
}
