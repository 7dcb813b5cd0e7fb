package models

import (
	"errors"
	"fmt"
)

// Sentinel conditions surfaced by the DICOM input layer. Both are
// skip-this-file conditions for the batch driver, never fatal.
var (
	// ErrNoPixelData indicates the source object carries no pixel data.
	ErrNoPixelData = errors.New("no pixel data present")

	// ErrUnsupportedImage indicates a layout the pipeline does not
	// handle: multi-frame series or non-grayscale samples.
	ErrUnsupportedImage = errors.New("unsupported image layout")
)

// DegenerateImageError reports a flat intensity range (max == min),
// for which min-max normalization is undefined. The batch driver skips
// the file rather than emitting a blank image.
type DegenerateImageError struct {
	// Value is the single intensity present in the frame.
	Value float64
}

func (e *DegenerateImageError) Error() string {
	return fmt.Sprintf("degenerate image: flat intensity range at %g", e.Value)
}

// InvalidBoundingBoxError reports an annotation rectangle that is
// empty, inverted, or outside the image bounds. Only the offending
// record is skipped; sibling records for the same image still produce
// crops.
type InvalidBoundingBoxError struct {
	ImageID       string
	Index         int
	Box           BoundingBox
	Width, Height int
}

func (e *InvalidBoundingBoxError) Error() string {
	return fmt.Sprintf("invalid bounding box for %s record %d: [%d,%d,%d,%d] against %dx%d image",
		e.ImageID, e.Index, e.Box.XMin, e.Box.YMin, e.Box.XMax, e.Box.YMax, e.Width, e.Height)
}

// SchemaError reports a malformed annotation table. It is raised once
// at batch start and is fatal: no per-file processing begins with a
// table that cannot be trusted.
type SchemaError struct {
	Path   string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("annotation table %s: %s", e.Path, e.Reason)
}
