package models

import (
	"image"
)

// RawSample holds the decoded but unnormalized pixel grid of a single
// grayscale frame, as produced by the DICOM decoder. Sample values keep
// their native bit depth (widened to float64) until normalization.
type RawSample struct {
	// Pixels is the sample grid in row-major order, length Width*Height.
	Pixels []float64

	// Width and Height are the frame dimensions in pixels.
	Width  int
	Height int

	// BitsPerSample is the stored bit depth of the source data,
	// kept for logging; the pipeline never branches on it.
	BitsPerSample int
}

// Normalized wraps an 8-bit grayscale image produced by the intensity
// normalizer. Lesion bounding boxes are defined against this uncropped
// pixel space, so the lesion extractor accepts only Normalized images;
// the distinct Cropped type keeps a border-cropped image from being
// passed there by accident.
type Normalized struct {
	Gray *image.Gray
}

// Cropped wraps an 8-bit grayscale image whose black margins and
// corner text regions have been removed. Its coordinate space no
// longer matches the annotation table.
type Cropped struct {
	Gray *image.Gray
}

// Size is a target raster size in pixels.
type Size struct {
	Width  int
	Height int
}

// BoundingBox is a lesion rectangle in source-image pixel coordinates.
// Bounds are half-open on the max side when used for cropping, matching
// the row/column slicing convention of the annotation table.
type BoundingBox struct {
	XMin, YMin, XMax, YMax int
}

// Valid reports whether the box has positive area and lies fully
// inside an image of the given dimensions.
func (b BoundingBox) Valid(width, height int) bool {
	if b.XMax <= b.XMin || b.YMax <= b.YMin {
		return false
	}
	if b.XMin < 0 || b.YMin < 0 {
		return false
	}
	return b.XMax <= width && b.YMax <= height
}

// Split is the dataset partition label assigned to an image.
type Split int

const (
	SplitUnknown Split = iota
	SplitTraining
	SplitTest
)

// ParseSplit maps the annotation table's split column to a Split.
// Anything other than the two known labels parses as SplitUnknown.
func ParseSplit(s string) Split {
	switch s {
	case "training":
		return SplitTraining
	case "test":
		return SplitTest
	default:
		return SplitUnknown
	}
}

// String returns the partition directory name for the split.
func (s Split) String() string {
	switch s {
	case SplitTraining:
		return "training"
	case SplitTest:
		return "test"
	default:
		return "unknown"
	}
}

// Annotation is one row of the finding annotation table. Box is nil
// for images with no finding. Multiple annotations may share an
// ImageID when an image contains several lesions.
type Annotation struct {
	ImageID string
	StudyID string
	Box     *BoundingBox
	Split   Split
}

// LesionCrop is one extracted lesion region, already padded to the
// target size. Index is the record's position among its image's
// annotated findings, in table order, and makes Name collision-free.
type LesionCrop struct {
	ImageID string
	Index   int
	Name    string
	Image   *image.Gray
}
