package models

// Status classifies the result of processing one input file.
type Status int

const (
	// StatusOK means the file produced its output image(s).
	StatusOK Status = iota

	// StatusSkipped means the file was intentionally left unprocessed
	// (no pixel data, flat intensity range, unsupported layout).
	StatusSkipped

	// StatusFailed means an unexpected error occurred. The batch
	// continues; the failure is reported in the summary.
	StatusFailed
)

// Outcome is the tagged per-file result the batch driver aggregates
// instead of aborting on errors. Reason carries enough context to
// locate the cause without re-running the batch.
type Outcome struct {
	Path   string
	Status Status
	Reason string
	Err    error

	// Lesions is the number of lesion crops written for this file,
	// zero on the whole-image path.
	Lesions int

	// MeanIntensity is the average normalized intensity, recorded for
	// the batch summary statistics. Only meaningful when Status is
	// StatusOK.
	MeanIntensity float64
}
