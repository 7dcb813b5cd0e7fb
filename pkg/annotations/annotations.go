// Package annotations loads the finding annotation table and derives
// the per-image split assignment used by the dataset splitter.
package annotations

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"mammoprep/internal/models"
)

// Columns the table must carry. Coordinate cells may be empty (image
// with no finding); every column must still be present in the header.
var requiredColumns = []string{"image_id", "study_id", "xmin", "ymin", "xmax", "ymax", "split"}

// Load reads the annotation CSV once at batch start. A missing or
// malformed header, or an unparsable coordinate cell, yields a
// SchemaError: a table that cannot be trusted aborts the batch before
// any image is processed. Unrecognized split labels are not a schema
// problem; they parse as SplitUnknown and are handled per file later.
func Load(path string) ([]models.Annotation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening annotation table: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, &models.SchemaError{Path: path, Reason: fmt.Sprintf("cannot read header: %v", err)}
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	var missing []string
	for _, name := range requiredColumns {
		if _, ok := col[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &models.SchemaError{
			Path:   path,
			Reason: fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")),
		}
	}

	var records []models.Annotation
	for row := 2; ; row++ {
		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &models.SchemaError{Path: path, Reason: fmt.Sprintf("row %d: %v", row, err)}
		}

		box, err := parseBox(fields, col)
		if err != nil {
			return nil, &models.SchemaError{Path: path, Reason: fmt.Sprintf("row %d: %v", row, err)}
		}

		records = append(records, models.Annotation{
			ImageID: fields[col["image_id"]],
			StudyID: fields[col["study_id"]],
			Box:     box,
			Split:   models.ParseSplit(strings.TrimSpace(fields[col["split"]])),
		})
	}

	return records, nil
}

// parseBox reads the four coordinate cells. All four empty means no
// finding (nil box); a partially empty box is malformed. Coordinates
// are stored as floats in the table and round to pixel indices here.
func parseBox(fields []string, col map[string]int) (*models.BoundingBox, error) {
	names := []string{"xmin", "ymin", "xmax", "ymax"}
	vals := make([]int, 4)
	empty := 0
	for i, name := range names {
		cell := strings.TrimSpace(fields[col[name]])
		if cell == "" {
			empty++
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, fmt.Errorf("bad %s value %q", name, cell)
		}
		vals[i] = int(math.Round(v))
	}
	if empty == 4 {
		return nil, nil
	}
	if empty > 0 {
		return nil, fmt.Errorf("bounding box has %d empty coordinate(s)", empty)
	}
	return &models.BoundingBox{XMin: vals[0], YMin: vals[1], XMax: vals[2], YMax: vals[3]}, nil
}

// ByImage groups records by image_id, preserving table order within
// each group. Table order is what makes lesion crop names stable.
func ByImage(records []models.Annotation) map[string][]models.Annotation {
	byImage := make(map[string][]models.Annotation)
	for _, rec := range records {
		byImage[rec.ImageID] = append(byImage[rec.ImageID], rec)
	}
	return byImage
}

// SplitMap maps image_id to its dataset partition.
type SplitMap map[string]models.Split

// BuildSplitMap derives the image_id to split mapping. When records
// for one image disagree, the first record in table order wins: the
// earliest listed finding is treated as authoritative.
func BuildSplitMap(records []models.Annotation) SplitMap {
	sm := make(SplitMap, len(records))
	for _, rec := range records {
		if _, ok := sm[rec.ImageID]; !ok {
			sm[rec.ImageID] = rec.Split
		}
	}
	return sm
}
