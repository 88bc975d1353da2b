package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"assocdesign/adapters/csv"
	"assocdesign/adapters/excel"
	"assocdesign/app"
	"assocdesign/internal"
	"assocdesign/internal/config"
	"assocdesign/internal/design"
	apperrors "assocdesign/internal/errors"
	"assocdesign/internal/testkit"
	"assocdesign/ports"

	"github.com/spf13/cobra"
)

// runtime is everything a command needs after flags and config are read.
type runtime struct {
	cfg     *config.Config
	logger  *internal.Logger
	outDir  string
	formats []ports.OutcomeExporter
}

func loadRuntime(cmd *cobra.Command) (*runtime, error) {
	flags := cmd.Flags()
	envFile, _ := flags.GetString("env-file")
	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return nil, err
	}

	levelName := cfg.LogLevel
	if s, _ := flags.GetString("log-level"); s != "" {
		levelName = s
	}
	level, ok := internal.ParseLogLevel(levelName)
	if !ok {
		return nil, apperrors.ConfigInvalidf("unknown log level %q", levelName)
	}

	rt := &runtime{cfg: cfg, logger: internal.NewLoggerTo(cmd.ErrOrStderr(), level), outDir: cfg.OutputDir}
	if s, _ := flags.GetString("out"); s != "" {
		rt.outDir = s
	}
	format, _ := flags.GetString("format")
	rt.formats, err = exporters(format)
	if err != nil {
		return nil, err
	}
	return rt, nil
}

func exporters(format string) ([]ports.OutcomeExporter, error) {
	switch strings.ToLower(format) {
	case "csv":
		return []ports.OutcomeExporter{csv.NewExporter()}, nil
	case "xlsx":
		return []ports.OutcomeExporter{excel.NewExporter()}, nil
	case "both":
		return []ports.OutcomeExporter{csv.NewExporter(), excel.NewExporter()}, nil
	case "none":
		return nil, nil
	default:
		return nil, apperrors.ConfigInvalidf("unknown export format %q", format)
	}
}

// loadScenario reads a scenario file, or a built-in scenario by name.
func loadScenario(arg string) (*config.Scenario, error) {
	if _, err := os.Stat(arg); err == nil {
		return config.LoadScenario(arg)
	}
	for _, name := range testkit.Names() {
		if name == arg {
			return testkit.Scenario(name)
		}
	}
	return nil, apperrors.ConfigInvalidf("no scenario file or built-in scenario named %q (built-ins: %s)",
		arg, strings.Join(testkit.Names(), ", "))
}

// buildSetup applies command-line overrides on top of scenario and env.
func buildSetup(cmd *cobra.Command, rt *runtime, arg string) (app.Setup, error) {
	s, err := loadScenario(arg)
	if err != nil {
		return app.Setup{}, err
	}
	flags := cmd.Flags()
	if w, _ := flags.GetInt("workers"); w >= 0 {
		s.Workers = &w
	}
	if seed, _ := flags.GetInt64("seed"); seed >= 0 {
		u := uint64(seed)
		s.Seed = &u
	}
	return app.NewSetup(s, rt.cfg, rt.logger)
}

// parseVars turns name=value pairs into design variables.
func parseVars(pairs []string) (design.Vars, error) {
	out := make(design.Vars, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, apperrors.InvalidInput(fmt.Sprintf("design variable %q is not name=value", p))
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, apperrors.InvalidInput(fmt.Sprintf("design variable %s: %v", name, err))
		}
		out[strings.TrimSpace(name)] = v
	}
	return out, nil
}

func export(ctx context.Context, rt *runtime, b *ports.ExportBundle, run string) ([]string, error) {
	var written []string
	for _, ex := range rt.formats {
		path := filepath.Join(rt.outDir, run)
		if ex.Format() == "xlsx" {
			path = filepath.Join(rt.outDir, run, "report.xlsx")
		}
		if err := ex.Export(ctx, b, path); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
