package annotations

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mammoprep/internal/models"
)

func writeTable(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "annotations.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test table: %v", err)
	}
	return path
}

const validTable = `image_id,study_id,xmin,ymin,xmax,ymax,split
img1,study1,10.0,20.0,110.0,220.0,training
img1,study1,300.0,40.0,380.0,120.0,training
img2,study1,,,,,test
img3,study2,5.5,6.4,50.0,60.0,unclear
`

// TestLoadParsesRecords verifies rows, null boxes, float coordinate
// rounding, and split parsing
func TestLoadParsesRecords(t *testing.T) {
	records, err := Load(writeTable(t, validTable))
	if err != nil {
		t.Fatalf("Load returned unexpected error: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("Expected 4 records, got %d", len(records))
	}

	first := records[0]
	if first.ImageID != "img1" || first.StudyID != "study1" {
		t.Errorf("Unexpected identifiers: %s/%s", first.ImageID, first.StudyID)
	}
	if first.Box == nil {
		t.Fatal("Expected a bounding box on the first record")
	}
	if first.Box.XMin != 10 || first.Box.YMax != 220 {
		t.Errorf("Unexpected box %+v", *first.Box)
	}
	if first.Split != models.SplitTraining {
		t.Errorf("Expected training split, got %v", first.Split)
	}

	if records[2].Box != nil {
		t.Error("Expected nil box for the no-finding row")
	}
	if records[2].Split != models.SplitTest {
		t.Errorf("Expected test split, got %v", records[2].Split)
	}

	// 5.5 rounds to 6, 6.4 rounds to 6
	if records[3].Box.XMin != 6 || records[3].Box.YMin != 6 {
		t.Errorf("Expected rounded coordinates 6/6, got %d/%d",
			records[3].Box.XMin, records[3].Box.YMin)
	}
	if records[3].Split != models.SplitUnknown {
		t.Errorf("Expected unknown split for unrecognized label, got %v", records[3].Split)
	}
}

// TestLoadMissingColumn verifies that a missing required column is a
// fatal schema error
func TestLoadMissingColumn(t *testing.T) {
	table := `image_id,study_id,xmin,ymin,xmax,ymax
img1,study1,1,2,3,4
`
	_, err := Load(writeTable(t, table))
	if err == nil {
		t.Fatal("Expected schema error for missing split column, got nil")
	}

	var schema *models.SchemaError
	if !errors.As(err, &schema) {
		t.Fatalf("Expected SchemaError, got %T: %v", err, err)
	}
}

// TestLoadPartialBox verifies that a partially empty box is rejected
// at load time
func TestLoadPartialBox(t *testing.T) {
	table := `image_id,study_id,xmin,ymin,xmax,ymax,split
img1,study1,10,,50,60,training
`
	_, err := Load(writeTable(t, table))

	var schema *models.SchemaError
	if !errors.As(err, &schema) {
		t.Fatalf("Expected SchemaError for partial box, got %T: %v", err, err)
	}
}

// TestLoadBadCoordinate verifies that an unparsable coordinate cell is
// fatal rather than silently dropped
func TestLoadBadCoordinate(t *testing.T) {
	table := `image_id,study_id,xmin,ymin,xmax,ymax,split
img1,study1,abc,2,3,4,training
`
	var schema *models.SchemaError
	_, err := Load(writeTable(t, table))
	if !errors.As(err, &schema) {
		t.Fatalf("Expected SchemaError for bad coordinate, got %T: %v", err, err)
	}
}

// TestByImagePreservesOrder verifies grouping keeps table order inside
// each group
func TestByImagePreservesOrder(t *testing.T) {
	records := []models.Annotation{
		{ImageID: "a", StudyID: "s1"},
		{ImageID: "b", StudyID: "s2"},
		{ImageID: "a", StudyID: "s3"},
	}

	byImage := ByImage(records)
	if len(byImage["a"]) != 2 || len(byImage["b"]) != 1 {
		t.Fatalf("Unexpected group sizes: a=%d b=%d", len(byImage["a"]), len(byImage["b"]))
	}
	if byImage["a"][0].StudyID != "s1" || byImage["a"][1].StudyID != "s3" {
		t.Error("Group order does not match table order")
	}
}

// TestBuildSplitMapFirstWins verifies the documented precedence for
// conflicting split labels
func TestBuildSplitMapFirstWins(t *testing.T) {
	records := []models.Annotation{
		{ImageID: "img1", Split: models.SplitTraining},
		{ImageID: "img1", Split: models.SplitTest},
		{ImageID: "img2", Split: models.SplitTest},
	}

	sm := BuildSplitMap(records)
	if sm["img1"] != models.SplitTraining {
		t.Errorf("Expected first record to win for img1, got %v", sm["img1"])
	}
	if sm["img2"] != models.SplitTest {
		t.Errorf("Expected test split for img2, got %v", sm["img2"])
	}
}
