// Package export writes cue sheets for delivery.
package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bekirdag/cuesheet/internal/cue"
	"github.com/bekirdag/cuesheet/internal/session"
)

var errNoRows = errors.New("no cues to export")

// CSVExporter writes one CSV file per export into Dir.
type CSVExporter struct {
	Dir string
	Now func() time.Time

	mu   sync.Mutex
	last string
}

func NewCSVExporter(dir string) *CSVExporter {
	return &CSVExporter{Dir: dir, Now: time.Now}
}

// LastPath is the file written by the most recent successful export.
func (e *CSVExporter) LastPath() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// Export implements session.Exporter.
func (e *CSVExporter) Export(ctx context.Context, payload session.ExportPayload) error {
	_, err := e.ExportFile(ctx, payload)
	return err
}

// ExportFile writes payload and returns the path of the new file.
func (e *CSVExporter) ExportFile(ctx context.Context, payload session.ExportPayload) (string, error) {
	if len(payload.Rows) == 0 {
		return "", errNoRows
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir := e.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, FileName(payload, e.now()))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := WriteCSV(f, payload); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("export %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	e.mu.Lock()
	e.last = path
	e.mu.Unlock()
	return path, nil
}

func (e *CSVExporter) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileName derives a filesystem-safe name from the project and a timestamp.
func FileName(payload session.ExportPayload, at time.Time) string {
	base := payload.Info.Name
	if payload.Info.Episode != "" {
		base += "_" + payload.Info.Episode
	}
	if strings.TrimSpace(base) == "" {
		base = payload.ProjectID
	}
	base = strings.Trim(unsafeName.ReplaceAllString(base, "_"), "_")
	if base == "" {
		base = "cuesheet"
	}
	return fmt.Sprintf("%s_%s.csv", base, at.UTC().Format("20060102-150405"))
}

// WriteCSV writes the header and one record per cue. Hidden rows are
// expected to be filtered out already.
func WriteCSV(w io.Writer, payload session.ExportPayload) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{"#"}
	for _, f := range cue.Fields() {
		header = append(header, f.Title())
	}
	header = append(header, "Status")
	if err := writer.Write(header); err != nil {
		return err
	}

	for i, row := range payload.Rows {
		record := []string{strconv.Itoa(i + 1)}
		for _, f := range cue.Fields() {
			record = append(record, row.Value(f))
		}
		record = append(record, row.DisplayStatus().String())
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
