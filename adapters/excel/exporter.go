// Package excel writes an evaluation bundle as a single XLSX workbook and
// reads its summary back.
package excel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	apperrors "assocdesign/internal/errors"
	"assocdesign/ports"

	"github.com/xuri/excelize/v2"
)

// Sheet names of an exported workbook.
const (
	SummarySheet   = "Summary"
	ManifestSheet  = "Manifest"
	TruthSheet     = "Truth"
	FitsSheet      = "Fits"
	ConfusionSheet = "Confusion"
	HistorySheet   = "History"
)

// Exporter writes workbooks with one sheet per table.
type Exporter struct{}

func NewExporter() *Exporter { return &Exporter{} }

func (e *Exporter) Format() string { return "xlsx" }

// Export writes the bundle to path, creating parent directories.
func (e *Exporter) Export(ctx context.Context, b *ports.ExportBundle, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.ExportFailed(e.Format(), err)
	}
	f := excelize.NewFile()
	defer f.Close()

	w := &workbook{f: f}
	w.summary(b)
	w.manifest(b)
	w.truth(b)
	w.fits(b)
	w.confusion(b)
	w.history(b)
	if w.err != nil {
		return apperrors.ExportFailed(e.Format(), w.err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return apperrors.ExportFailed(e.Format(), err)
	}
	if idx, err := f.GetSheetIndex(SummarySheet); err == nil && idx >= 0 {
		f.SetActiveSheet(idx)
	}
	if err := f.SaveAs(path); err != nil {
		return apperrors.ExportFailed(e.Format(), fmt.Errorf("saving %s: %w", path, err))
	}
	return nil
}

// workbook keeps the first error so sheet writers can be chained.
type workbook struct {
	f    *excelize.File
	bold int
	err  error
}

func (w *workbook) sheet(name string, header []interface{}, rows [][]interface{}) {
	if w.err != nil {
		return
	}
	if _, w.err = w.f.NewSheet(name); w.err != nil {
		return
	}
	if w.bold == 0 {
		if w.bold, w.err = w.f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); w.err != nil {
			return
		}
	}
	if w.err = w.f.SetSheetRow(name, "A1", &header); w.err != nil {
		return
	}
	if w.err = w.f.SetRowStyle(name, 1, 1, w.bold); w.err != nil {
		return
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			w.err = err
			return
		}
		if w.err = w.f.SetSheetRow(name, cell, &row); w.err != nil {
			return
		}
	}
}

func (w *workbook) summary(b *ports.ExportBundle) {
	rows := make([][]interface{}, len(b.Summary))
	for i, r := range b.Summary {
		rows[i] = []interface{}{r.Key, r.Value}
	}
	w.sheet(SummarySheet, []interface{}{"key", "value"}, rows)
}

func (w *workbook) manifest(b *ports.ExportBundle) {
	m := b.Manifest
	if m == nil {
		return
	}
	rows := [][]interface{}{
		{"id", string(m.ID)},
		{"scenario", m.Scenario},
		{"criterion", m.Criterion},
		{"shape", m.Shape.String()},
		{"seed", strconv.FormatUint(m.Seed, 10)},
		{"code_version", m.CodeVersion},
		{"fingerprint", string(m.Fingerprint.Fingerprint)},
	}
	keys := make([]string, 0, len(m.DesignVars))
	for k := range m.DesignVars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rows = append(rows, []interface{}{"design." + k, m.DesignVars[k]})
	}
	w.sheet(ManifestSheet, []interface{}{"field", "value"}, rows)
}

func (w *workbook) truth(b *ports.ExportBundle) {
	if len(b.Truth) == 0 {
		return
	}
	rows := make([][]interface{}, len(b.Truth))
	for i, r := range b.Truth {
		rows[i] = []interface{}{r.SimModel, r.Experiment, r.Subject, r.Params}
	}
	w.sheet(TruthSheet, []interface{}{"sim_model", "experiment", "subject", "params"}, rows)
}

func (w *workbook) fits(b *ports.ExportBundle) {
	if len(b.Fits) == 0 {
		return
	}
	rows := make([][]interface{}, len(b.Fits))
	for i, r := range b.Fits {
		rows[i] = []interface{}{r.SimModel, r.FitModel, r.Experiment, r.Subject, r.LogLik, r.LogPost, r.BIC, r.AIC, r.K, r.Params}
	}
	w.sheet(FitsSheet, []interface{}{"sim_model", "fit_model", "experiment", "subject", "loglik", "logpost", "bic", "aic", "k", "params"}, rows)
}

func (w *workbook) confusion(b *ports.ExportBundle) {
	if len(b.Confusion) == 0 {
		return
	}
	header := []interface{}{"true \\ selected"}
	for j := range b.Confusion[0] {
		header = append(header, name(b.FitModels, j))
	}
	rows := make([][]interface{}, len(b.Confusion))
	for i, row := range b.Confusion {
		rows[i] = append(rows[i], name(b.SimModels, i))
		for _, v := range row {
			rows[i] = append(rows[i], v)
		}
	}
	w.sheet(ConfusionSheet, header, rows)
}

func (w *workbook) history(b *ports.ExportBundle) {
	if len(b.History) == 0 {
		return
	}
	header := []interface{}{"evaluation", "loss", "best"}
	for j := range b.History[0].X {
		header = append(header, fmt.Sprintf("x%d", j))
	}
	rows := make([][]interface{}, len(b.History))
	for i, s := range b.History {
		rows[i] = []interface{}{s.Evaluation, s.Loss, s.Best}
		for _, v := range s.X {
			rows[i] = append(rows[i], v)
		}
	}
	w.sheet(HistorySheet, header, rows)
}

func name(names []string, i int) string {
	if i < len(names) {
		return names[i]
	}
	return strconv.Itoa(i)
}
