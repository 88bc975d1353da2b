package csv

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"assocdesign/domain/run"
	"assocdesign/ports"

	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bundle() *ports.ExportBundle {
	return &ports.ExportBundle{
		Manifest: run.NewEvaluationManifest("kru2008", map[string]float64{"p_compound": 0.5},
			[]string{"rw", "hybrid"}, []string{"rw", "hybrid"}, "modsel", run.Shape{NSub: 1, NExp: 2, NStarts: 3}, 9),
		Summary: []ports.SummaryRecord{{Key: "avg_acc", Value: 0.75}, {Key: "loss", Value: -1.1}},
		Truth: []ports.TruthRecord{
			{SimModel: "rw", Experiment: 0, Subject: 0, Params: "evo.alpha=0.3"},
			{SimModel: "rw", Experiment: 1, Subject: 0, Params: "evo.alpha=0.4"},
		},
		Fits: []ports.FitRecord{
			{SimModel: "rw", FitModel: "rw", LogLik: -10, BIC: 22, K: 1, Params: "evo.alpha=0.31"},
			{SimModel: "rw", FitModel: "hybrid", LogLik: -9.5, BIC: 24, K: 2, Params: "evo.alphaInit=0.2,evo.eta=0.1"},
		},
		Confusion: [][]float64{{2, 0}, {1, 1}},
		SimModels: []string{"rw", "hybrid"},
		FitModels: []string{"rw", "hybrid"},
		History: []ports.OptimizationStep{
			{Evaluation: 1, X: []float64{0.5, 0.25}, Loss: 1, Best: 1},
			{Evaluation: 2, X: []float64{0.1, 0.9}, Loss: 2, Best: 1},
		},
	}
}

func TestExport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, NewExporter().Export(context.Background(), bundle(), dir))

	for _, name := range []string{ManifestFile, SummaryFile, TruthFile, FitsFile, ConfusionFile, HistoryFile} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	f, err := os.Open(filepath.Join(dir, FitsFile))
	require.NoError(t, err)
	defer f.Close()
	var fits []ports.FitRecord
	require.NoError(t, gocsv.UnmarshalFile(f, &fits))
	require.Len(t, fits, 2)
	assert.Equal(t, "hybrid", fits[1].FitModel)
	assert.Equal(t, "evo.alphaInit=0.2,evo.eta=0.1", fits[1].Params)

	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	require.NoError(t, err)
	var m run.EvaluationManifest
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "kru2008", m.Scenario)
	assert.Equal(t, uint64(9), m.Seed)
}

func TestExport_SkipsEmptyTables(t *testing.T) {
	b := bundle()
	b.Confusion = nil
	b.History = nil
	dir := t.TempDir()
	require.NoError(t, NewExporter().Export(context.Background(), b, dir))
	assert.NoFileExists(t, filepath.Join(dir, ConfusionFile))
	assert.NoFileExists(t, filepath.Join(dir, HistoryFile))
	assert.FileExists(t, filepath.Join(dir, SummaryFile))
}

func TestConfusionRecords(t *testing.T) {
	recs := ConfusionRecords(bundle())
	require.Len(t, recs, 4)
	assert.Equal(t, ConfusionRecord{TrueModel: "hybrid", SelectedModel: "rw", Count: 1}, recs[2])
}

func TestHistoryRecords(t *testing.T) {
	recs := HistoryRecords(bundle().History)
	require.Len(t, recs, 2)
	assert.Equal(t, "0.5;0.25", recs[0].X)
	assert.Equal(t, 1.0, recs[1].Best)
}
