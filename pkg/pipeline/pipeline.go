// Package pipeline drives the batch conversion of DICOM mammography
// studies into normalized 8-bit PNG images, including the annotation
// driven lesion crop path.
//
// Per-image processing is independent, so files fan out over a bounded
// worker pool with no ordering between them. All annotation records
// for one image are processed against a single normalizer output, and
// one bad file or record never aborts the batch: every file produces a
// tagged Outcome that the driver aggregates into summary statistics.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"mammoprep/internal/models"
	"mammoprep/pkg/annotations"
	"mammoprep/pkg/config"
	"mammoprep/pkg/crop"
	"mammoprep/pkg/dicomio"
	"mammoprep/pkg/lesion"
	"mammoprep/pkg/normalize"
	"mammoprep/pkg/pad"
)

// Params holds the batch configuration.
type Params struct {
	// InputDir is the directory containing DICOM files.
	InputDir string

	// OutputDir is where PNG outputs are written.
	OutputDir string

	// AnnotationsPath, when non-empty, switches the batch to the
	// lesion extraction path. The whole-image and lesion paths are
	// mutually exclusive per run.
	AnnotationsPath string

	// Config carries the crop calibration and runtime settings.
	Config *config.Config

	// Decode reads one source file into a raw sample grid. Left nil,
	// the DICOM decoder is used; tests substitute their own.
	Decode func(path string) (models.RawSample, error)
}

// Stats aggregates the per-file outcomes of one batch run.
type Stats struct {
	Total       int
	Converted   int
	LesionCrops int
	Skipped     int
	Failed      int

	// Outcomes holds the per-file results in completion order.
	Outcomes []models.Outcome
}

// Pipeline processes a directory of DICOM files to completion.
type Pipeline struct {
	params  *Params
	log     *zap.Logger
	decode  func(path string) (models.RawSample, error)
	target  models.Size
	byImage map[string][]models.Annotation
}

// New creates a pipeline instance with the provided parameters.
func New(params *Params, log *zap.Logger) *Pipeline {
	decode := params.Decode
	if decode == nil {
		decode = dicomio.ReadRawSample
	}
	return &Pipeline{
		params: params,
		log:    log,
		decode: decode,
		target: models.Size{
			Width:  params.Config.Processing.TargetWidth,
			Height: params.Config.Processing.TargetHeight,
		},
	}
}

// Run executes the batch. It returns an error only for conditions
// that prevent the batch from starting at all: an unreadable input
// directory, an unwritable output directory, or a malformed
// annotation table. Everything per-file lands in Stats.
func (p *Pipeline) Run(ctx context.Context) (*Stats, error) {
	if p.params.AnnotationsPath != "" {
		records, err := annotations.Load(p.params.AnnotationsPath)
		if err != nil {
			return nil, err
		}
		p.byImage = annotations.ByImage(records)
		p.log.Info("annotation table loaded",
			zap.Int("records", len(records)),
			zap.Int("images", len(p.byImage)))
	}

	files, err := p.listInputs()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(p.params.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	workers := p.params.Config.Processing.Workers
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan string)
	results := make(chan models.Outcome)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				results <- p.processFile(path)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, path := range files {
			select {
			case jobs <- path:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	stats := &Stats{Total: len(files)}
	var means []float64
	completed := 0
	for out := range results {
		completed++
		stats.Outcomes = append(stats.Outcomes, out)
		switch out.Status {
		case models.StatusOK:
			stats.Converted++
			stats.LesionCrops += out.Lesions
			means = append(means, out.MeanIntensity)
		case models.StatusSkipped:
			stats.Skipped++
			p.log.Warn("skipped", zap.String("path", out.Path), zap.String("reason", out.Reason))
		case models.StatusFailed:
			stats.Failed++
			p.log.Error("failed", zap.String("path", out.Path), zap.Error(out.Err))
		}

		progress := float64(completed) / float64(len(files)) * 100
		fmt.Printf("\rProcessing images: %.1f%% complete", progress)
	}
	if len(files) > 0 {
		fmt.Println()
	}

	if err := ctx.Err(); err != nil {
		return stats, err
	}

	if len(means) > 0 {
		p.log.Info("batch intensity summary",
			zap.Float64("mean", stat.Mean(means, nil)),
			zap.Float64("stddev", stat.StdDev(means, nil)))
	}
	p.log.Info("batch complete",
		zap.Int("total", stats.Total),
		zap.Int("converted", stats.Converted),
		zap.Int("lesionCrops", stats.LesionCrops),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed))

	return stats, nil
}

// listInputs returns the sorted DICOM files in the input directory.
// Non-DICOM files in the tree are ignored.
func (p *Pipeline) listInputs() ([]string, error) {
	entries, err := os.ReadDir(p.params.InputDir)
	if err != nil {
		return nil, fmt.Errorf("reading input directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".dcm" || ext == ".dicom" {
			files = append(files, filepath.Join(p.params.InputDir, entry.Name()))
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no DICOM files found in %s", p.params.InputDir)
	}

	sort.Strings(files)
	return files, nil
}

// processFile runs one file through the pipeline and classifies the
// result. Decode and normalization skip conditions are isolated here
// so the batch loop stays a pure aggregator.
func (p *Pipeline) processFile(path string) models.Outcome {
	raw, err := p.decode(path)
	if err != nil {
		if errors.Is(err, models.ErrNoPixelData) {
			return models.Outcome{Path: path, Status: models.StatusSkipped, Reason: "no pixel data"}
		}
		if errors.Is(err, models.ErrUnsupportedImage) {
			return models.Outcome{Path: path, Status: models.StatusSkipped, Reason: err.Error()}
		}
		return models.Outcome{Path: path, Status: models.StatusFailed, Err: err}
	}

	norm, err := normalize.Image(raw)
	if err != nil {
		var degenerate *models.DegenerateImageError
		if errors.As(err, &degenerate) {
			return models.Outcome{Path: path, Status: models.StatusSkipped, Reason: "flat intensity range"}
		}
		return models.Outcome{Path: path, Status: models.StatusFailed, Err: err}
	}

	imageID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	if p.byImage != nil {
		return p.processLesions(path, imageID, norm)
	}
	return p.processWholeImage(path, imageID, norm)
}

// processWholeImage is the Normalizer -> Border Cropper -> Padder path.
func (p *Pipeline) processWholeImage(path, imageID string, norm models.Normalized) models.Outcome {
	cropped := crop.Borders(norm, p.params.Config.Crop)

	out := cropped.Gray
	if p.params.Config.Processing.Resize {
		out = pad.ToSize(out, p.target)
	}

	if err := p.writeImage(imageID+".png", out); err != nil {
		return models.Outcome{Path: path, Status: models.StatusFailed, Err: err}
	}

	return models.Outcome{
		Path:          path,
		Status:        models.StatusOK,
		MeanIntensity: meanIntensity(norm.Gray),
	}
}

// processLesions is the Normalizer -> Lesion Extractor -> Padder path.
// It deliberately bypasses the border cropper: lesion coordinates are
// defined against uncropped pixel space.
func (p *Pipeline) processLesions(path, imageID string, norm models.Normalized) models.Outcome {
	records := p.byImage[imageID]
	crops, errs := lesion.Extract(norm, imageID, records, p.target)
	for _, err := range errs {
		p.log.Warn("lesion record rejected", zap.String("path", path), zap.Error(err))
	}

	for _, c := range crops {
		if err := p.writeImage(c.Name, c.Image); err != nil {
			return models.Outcome{Path: path, Status: models.StatusFailed, Err: err}
		}
	}

	return models.Outcome{
		Path:          path,
		Status:        models.StatusOK,
		Lesions:       len(crops),
		MeanIntensity: meanIntensity(norm.Gray),
	}
}

// writeImage encodes a PNG through a temporary file and renames it
// into place, so a failed image never leaves partial output behind.
func (p *Pipeline) writeImage(name string, img *image.Gray) error {
	final := filepath.Join(p.params.OutputDir, name)
	tmp := final + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmp, err)
	}

	level := png.CompressionLevel(p.params.Config.Output.PNGCompression)
	if err := imaging.Encode(f, img, imaging.PNG, imaging.PNGCompressionLevel(level)); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming %s: %w", name, err)
	}
	return nil
}

// meanIntensity averages the normalized pixel values for the batch
// summary statistics.
func meanIntensity(img *image.Gray) float64 {
	w := img.Rect.Dx()
	h := img.Rect.Dy()
	vals := make([]float64, 0, w*h)
	for y := 0; y < h; y++ {
		off := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
		for _, v := range img.Pix[off : off+w] {
			vals = append(vals, float64(v))
		}
	}
	return stat.Mean(vals, nil)
}
