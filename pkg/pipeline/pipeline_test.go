package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"mammoprep/internal/models"
	"mammoprep/pkg/config"
)

// rampSample builds a raw sample with a simple intensity ramp
func rampSample(w, h int) models.RawSample {
	raw := models.RawSample{
		Pixels: make([]float64, w*h),
		Width:  w,
		Height: h,
	}
	for i := range raw.Pixels {
		raw.Pixels[i] = float64(i % 4096)
	}
	return raw
}

func writeInput(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("dcm"), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Processing.Workers = 2
	cfg.Output.Verbose = false
	return cfg
}

// TestRunWholeImagePath verifies the convert path end to end with a
// substitute decoder: every input produces one PNG of the target size
func TestRunWholeImagePath(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writeInput(t, in, "a.dcm")
	writeInput(t, in, "b.dcm")
	writeInput(t, in, "skipme.txt") // not a DICOM file, ignored

	cfg := testConfig()
	cfg.Processing.Resize = true
	cfg.Processing.TargetWidth = 64
	cfg.Processing.TargetHeight = 64

	p := New(&Params{
		InputDir:  in,
		OutputDir: out,
		Config:    cfg,
		Decode: func(path string) (models.RawSample, error) {
			return rampSample(80, 60), nil
		},
	}, zap.NewNop())

	stats, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned unexpected error: %v", err)
	}

	if stats.Total != 2 || stats.Converted != 2 {
		t.Errorf("Expected 2/2 converted, got %d/%d", stats.Converted, stats.Total)
	}
	for _, name := range []string{"a.png", "b.png"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("Missing output %s: %v", name, err)
		}
	}
	if entries, _ := os.ReadDir(out); len(entries) != 2 {
		t.Errorf("Expected exactly 2 outputs, got %d", len(entries))
	}
}

// TestRunIsolatesBadFiles verifies one bad file never aborts the batch
func TestRunIsolatesBadFiles(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writeInput(t, in, "good.dcm")
	writeInput(t, in, "nopixels.dcm")
	writeInput(t, in, "flat.dcm")
	writeInput(t, in, "broken.dcm")

	p := New(&Params{
		InputDir:  in,
		OutputDir: out,
		Config:    testConfig(),
		Decode: func(path string) (models.RawSample, error) {
			switch filepath.Base(path) {
			case "nopixels.dcm":
				return models.RawSample{}, models.ErrNoPixelData
			case "flat.dcm":
				return models.RawSample{Pixels: []float64{3, 3, 3, 3}, Width: 2, Height: 2}, nil
			case "broken.dcm":
				return models.RawSample{}, fmt.Errorf("truncated file")
			default:
				return rampSample(40, 40), nil
			}
		},
	}, zap.NewNop())

	stats, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned unexpected error: %v", err)
	}

	if stats.Converted != 1 {
		t.Errorf("Expected 1 converted, got %d", stats.Converted)
	}
	if stats.Skipped != 2 {
		t.Errorf("Expected 2 skipped (no pixels + flat), got %d", stats.Skipped)
	}
	if stats.Failed != 1 {
		t.Errorf("Expected 1 failed, got %d", stats.Failed)
	}

	// No partial output for the files that did not succeed.
	entries, _ := os.ReadDir(out)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("Partial output left behind: %s", e.Name())
		}
	}
	if len(entries) != 1 {
		t.Errorf("Expected exactly 1 output, got %d", len(entries))
	}
}

// TestRunLesionPath verifies the annotation-driven path: crops come
// from the uncropped normalized image, one per valid record
func TestRunLesionPath(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writeInput(t, in, "img1.dcm")
	writeInput(t, in, "img2.dcm")

	table := `image_id,study_id,xmin,ymin,xmax,ymax,split
img1,s1,10,10,40,40,training
img1,s1,5,5,2,20,training
img1,s1,,,,,training
img2,s1,0,0,30,30,test
`
	annPath := filepath.Join(t.TempDir(), "annotations.csv")
	if err := os.WriteFile(annPath, []byte(table), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig()
	cfg.Processing.TargetWidth = 32
	cfg.Processing.TargetHeight = 32

	p := New(&Params{
		InputDir:        in,
		OutputDir:       out,
		AnnotationsPath: annPath,
		Config:          cfg,
		Decode: func(path string) (models.RawSample, error) {
			return rampSample(60, 60), nil
		},
	}, zap.NewNop())

	stats, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned unexpected error: %v", err)
	}

	// img1: one valid box (the inverted one is rejected, the null one
	// skipped); img2: one valid box.
	if stats.LesionCrops != 2 {
		t.Errorf("Expected 2 lesion crops, got %d", stats.LesionCrops)
	}
	if _, err := os.Stat(filepath.Join(out, "img1_lesion_0.png")); err != nil {
		t.Errorf("Missing img1_lesion_0.png: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "img2_lesion_0.png")); err != nil {
		t.Errorf("Missing img2_lesion_0.png: %v", err)
	}
	// The rejected record consumed index 1 without producing output.
	if _, err := os.Stat(filepath.Join(out, "img1_lesion_1.png")); err == nil {
		t.Error("Invalid box must not produce an output file")
	}
}

// TestRunBadAnnotationTableIsFatal verifies the batch never starts
// with a malformed table
func TestRunBadAnnotationTableIsFatal(t *testing.T) {
	in := t.TempDir()
	writeInput(t, in, "img1.dcm")

	annPath := filepath.Join(t.TempDir(), "annotations.csv")
	if err := os.WriteFile(annPath, []byte("image_id,study_id\nimg1,s1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	p := New(&Params{
		InputDir:        in,
		OutputDir:       t.TempDir(),
		AnnotationsPath: annPath,
		Config:          testConfig(),
		Decode: func(path string) (models.RawSample, error) {
			t.Error("Decode must not be called when the table is malformed")
			return models.RawSample{}, nil
		},
	}, zap.NewNop())

	if _, err := p.Run(context.Background()); err == nil {
		t.Fatal("Expected fatal error for malformed annotation table")
	}
}
