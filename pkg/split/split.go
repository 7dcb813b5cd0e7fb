// Package split partitions previously extracted lesion crops into
// training and test directories according to the annotation table.
package split

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"mammoprep/internal/models"
	"mammoprep/pkg/annotations"
	"mammoprep/pkg/lesion"
)

// Report summarizes one splitter pass.
type Report struct {
	// Moved counts files moved into a partition directory this pass.
	Moved int

	// Unknown counts files left in place because their image has no
	// usable split label.
	Unknown int

	// Unmatched counts files whose name does not follow the lesion
	// naming convention; they are left in place.
	Unmatched int

	// Failed counts files whose move failed. The pass continues.
	Failed int
}

// ImageID derives the image identifier from a lesion crop filename by
// cutting at the lesion name delimiter. It is the single place the
// filename convention is interpreted; move logic never parses names.
func ImageID(filename string) (string, bool) {
	base := filepath.Base(filename)
	idx := strings.Index(base, lesion.NameDelimiter)
	if idx <= 0 {
		return "", false
	}
	return base[:idx], true
}

// Assign moves every lesion PNG in dir into dir/training or dir/test
// per the split map. Files with an unknown or missing split are
// reported and left untouched. The pass is idempotent: files already
// moved on a previous (possibly interrupted) run live in the partition
// subdirectories, are not rescanned, and are never moved twice.
func Assign(dir string, sm annotations.SplitMap, log *zap.Logger) (Report, error) {
	var rep Report

	for _, s := range []models.Split{models.SplitTraining, models.SplitTest} {
		if err := os.MkdirAll(filepath.Join(dir, s.String()), 0755); err != nil {
			return rep, fmt.Errorf("creating partition directory: %w", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return rep, fmt.Errorf("reading lesion directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".png") {
			continue
		}

		imageID, ok := ImageID(entry.Name())
		if !ok {
			rep.Unmatched++
			log.Warn("filename does not follow lesion naming convention, skipping",
				zap.String("file", entry.Name()))
			continue
		}

		s, found := sm[imageID]
		if !found || s == models.SplitUnknown {
			rep.Unknown++
			log.Warn("split unknown, leaving file in place",
				zap.String("file", entry.Name()),
				zap.String("image_id", imageID))
			continue
		}

		src := filepath.Join(dir, entry.Name())
		dst := filepath.Join(dir, s.String(), entry.Name())
		if err := moveFile(src, dst); err != nil {
			rep.Failed++
			log.Error("move failed", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		rep.Moved++
		log.Info("moved", zap.String("file", entry.Name()), zap.String("split", s.String()))
	}

	return rep, nil
}

// moveFile moves src to dst, falling back to copy-then-delete when a
// rename is not possible. The copy goes through a temporary file in
// the destination directory so a failure never leaves the file in
// neither location: src is removed only after dst exists in full.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".tmp*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Remove(src)
}
