// Package csv writes an evaluation bundle as a directory of CSV files.
package csv

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	apperrors "assocdesign/internal/errors"
	"assocdesign/ports"

	"github.com/gocarina/gocsv"
)

// File names inside the export directory.
const (
	ManifestFile  = "manifest.json"
	SummaryFile   = "summary.csv"
	TruthFile     = "truth.csv"
	FitsFile      = "fits.csv"
	ConfusionFile = "confusion.csv"
	HistoryFile   = "history.csv"
)

// HistoryRecord is one optimizer step with its design point flattened.
type HistoryRecord struct {
	Evaluation int     `csv:"evaluation"`
	Loss       float64 `csv:"loss"`
	Best       float64 `csv:"best"`
	X          string  `csv:"x"`
}

// ConfusionRecord is one cell of a confusion matrix.
type ConfusionRecord struct {
	TrueModel     string  `csv:"true_model"`
	SelectedModel string  `csv:"selected_model"`
	Count         float64 `csv:"count"`
}

// Exporter writes one CSV per table into a directory.
type Exporter struct{}

func NewExporter() *Exporter { return &Exporter{} }

func (e *Exporter) Format() string { return "csv" }

// Export creates dir and writes every non-empty table of the bundle.
func (e *Exporter) Export(ctx context.Context, b *ports.ExportBundle, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperrors.ExportFailed(e.Format(), fmt.Errorf("creating output directory: %w", err))
	}
	if b.Manifest != nil {
		data, err := json.MarshalIndent(b.Manifest, "", "  ")
		if err != nil {
			return apperrors.ExportFailed(e.Format(), err)
		}
		if err := os.WriteFile(filepath.Join(dir, ManifestFile), data, 0644); err != nil {
			return apperrors.ExportFailed(e.Format(), err)
		}
	}

	tables := []struct {
		name string
		rows interface{}
		n    int
	}{
		{SummaryFile, b.Summary, len(b.Summary)},
		{TruthFile, b.Truth, len(b.Truth)},
		{FitsFile, b.Fits, len(b.Fits)},
		{ConfusionFile, ConfusionRecords(b), len(b.Confusion)},
		{HistoryFile, HistoryRecords(b.History), len(b.History)},
	}
	for _, t := range tables {
		if err := ctx.Err(); err != nil {
			return err
		}
		if t.n == 0 {
			continue
		}
		if err := writeFile(filepath.Join(dir, t.name), t.rows); err != nil {
			return apperrors.ExportFailed(e.Format(), fmt.Errorf("writing %s: %w", t.name, err))
		}
	}
	return nil
}

func writeFile(path string, rows interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gocsv.MarshalFile(rows, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ConfusionRecords flattens the confusion matrix in row order.
func ConfusionRecords(b *ports.ExportBundle) []ConfusionRecord {
	var out []ConfusionRecord
	for i, row := range b.Confusion {
		for j, v := range row {
			out = append(out, ConfusionRecord{
				TrueModel:     label(b.SimModels, i),
				SelectedModel: label(b.FitModels, j),
				Count:         v,
			})
		}
	}
	return out
}

// HistoryRecords formats optimizer steps, joining the point with ';'.
func HistoryRecords(steps []ports.OptimizationStep) []HistoryRecord {
	out := make([]HistoryRecord, len(steps))
	for i, s := range steps {
		xs := make([]string, len(s.X))
		for j, v := range s.X {
			xs[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		out[i] = HistoryRecord{Evaluation: s.Evaluation, Loss: s.Loss, Best: s.Best, X: strings.Join(xs, ";")}
	}
	return out
}

func label(names []string, i int) string {
	if i < len(names) {
		return names[i]
	}
	return strconv.Itoa(i)
}
