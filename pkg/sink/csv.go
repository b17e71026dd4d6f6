package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/Sternrassler/catalogue-crawler/pkg/catalogue"
	"github.com/rs/zerolog"
)

// DefaultCSVPath is where the dataset is written unless configured otherwise.
const DefaultCSVPath = "Anime_Data/tv_anime_ratings.csv"

// CSVSink writes records to a CSV file with a header row.
type CSVSink struct {
	path   string
	logger zerolog.Logger
}

// NewCSVSink creates a CSV sink for path. An empty path uses DefaultCSVPath.
func NewCSVSink(path string, logger zerolog.Logger) *CSVSink {
	if path == "" {
		path = DefaultCSVPath
	}
	return &CSVSink{path: path, logger: logger}
}

// Name implements Sink.
func (s *CSVSink) Name() string {
	return "csv"
}

// Path returns the target file path.
func (s *CSVSink) Path() string {
	return s.path
}

// Write implements Sink. The file is first written to a temp file in the
// target directory and renamed into place, so the target is either the
// complete dataset or untouched.
func (s *CSVSink) Write(ctx context.Context, records []catalogue.Record) (err error) {
	start := time.Now()
	defer func() {
		writeDuration.WithLabelValues(s.Name()).Observe(time.Since(start).Seconds())
		if err != nil {
			writeErrorsTotal.WithLabelValues(s.Name()).Inc()
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if err := WriteCSV(tmp, records); err != nil {
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("rename to %s: %w", s.path, err)
	}

	rowsWrittenTotal.WithLabelValues(s.Name()).Add(float64(len(records)))

	s.logger.Info().
		Str("path", s.path).
		Int("records", len(records)).
		Dur("duration", time.Since(start)).
		Msg("Dataset written")

	return nil
}

// WriteCSV writes the header and one row per record to w.
func WriteCSV(w io.Writer, records []catalogue.Record) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(catalogue.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range records {
		if err := cw.Write(r.Row()); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
