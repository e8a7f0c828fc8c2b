package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/OpenTraceLab/gds2lef/pkg/direction"
	"github.com/OpenTraceLab/gds2lef/pkg/gds"
	"github.com/OpenTraceLab/gds2lef/pkg/layers"
	"github.com/OpenTraceLab/gds2lef/pkg/lef"
	"github.com/OpenTraceLab/gds2lef/pkg/macro"
	"github.com/OpenTraceLab/gds2lef/pkg/preview"
)

// ErrStrict is returned by strict runs that produced warnings.
var ErrStrict = errors.New("pipeline: warnings reported in strict mode")

// Inputs are the file paths of one run.
type Inputs struct {
	Layout     string // GDSII stream
	Layers     string // .lyp or .lyt
	Directions string // .lib, or .v/.sv through the elaborator
	Output     string // LEF file to write
}

// Result summarizes a finished run.
type Result struct {
	Macros         []*macro.Macro
	Warnings       []macro.Warning
	UnitsPerMicron float64
	Duration       time.Duration
}

// Runner executes conversions. It holds no per-run state.
type Runner struct {
	Config *Config
	Logger *log.Logger
	// Elaborator handles .v/.sv direction sources; nil runs Config.Yosys.
	Elaborator direction.Elaborator
}

// NewRunner creates a runner. A nil config uses DefaultConfig and a nil
// logger uses log.Default().
func NewRunner(cfg *Config, logger *log.Logger) *Runner {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Config: cfg, Logger: logger}
}

// Run converts in.Layout into in.Output.
func (r *Runner) Run(ctx context.Context, in Inputs) (*Result, error) {
	start := time.Now()
	if err := r.Config.Validate(); err != nil {
		return nil, err
	}

	catalog, err := layers.Load(in.Layers)
	if err != nil {
		return nil, fmt.Errorf("layer metadata: %w", err)
	}
	r.Logger.Debug("loaded layer catalog", "file", in.Layers, "records", len(catalog.Records()), "labels", catalog.HasLabels())

	elab := r.Elaborator
	if elab == nil {
		elab = direction.YosysElaborator(r.Config.Yosys)
	}
	dirs, err := direction.Load(ctx, in.Directions, elab)
	if err != nil {
		return nil, fmt.Errorf("pin directions: %w", err)
	}
	r.Logger.Debug("loaded pin directions", "file", in.Directions, "cells", dirs.Cells())

	lib, err := gds.ParseFile(in.Layout)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}

	upm := r.Config.LEF.UnitsPerMicron
	if upm == 0 {
		upm = lib.UnitsPerMicron()
	}
	r.Logger.Debug("parsed layout", "file", in.Layout, "cells", len(lib.Cells), "units_per_micron", upm)

	result := &Result{UnitsPerMicron: upm}
	err = writeAtomic(in.Output, func(f *os.File) error {
		return r.convert(ctx, f, lib, catalog, dirs, result)
	})
	if err != nil {
		return nil, err
	}

	if err := r.writePreviews(result); err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	r.Logger.Info("wrote LEF library",
		"file", in.Output,
		"macros", len(result.Macros),
		"warnings", len(result.Warnings),
		"duration", result.Duration.Round(time.Millisecond))
	return result, nil
}

func (r *Runner) convert(ctx context.Context, f *os.File, lib *gds.Library, catalog *layers.Catalog, dirs *direction.Table, result *Result) error {
	w := lef.NewWriter(f, r.Config.lefOptions(result.UnitsPerMicron), r.Logger)
	if err := w.WriteHeader(); err != nil {
		return err
	}

	ext := macro.NewExtractor(lib, catalog, r.Logger)
	for _, cell := range lib.TopCells() {
		if err := ctx.Err(); err != nil {
			return err
		}
		m := ext.Extract(cell)
		if !dirs.HasCell(m.Name) {
			r.Logger.Debug("cell missing from direction source", "cell", m.Name)
		}
		if err := w.WriteMacro(m, dirs); err != nil {
			return fmt.Errorf("write macro %s: %w", m.Name, err)
		}
		for _, warn := range m.Warnings {
			r.Logger.Warn(warn.Kind.String(), "cell", warn.Cell, "layer", warn.Layer, "detail", warn.Message)
		}
		r.Logger.Debug("extracted macro", "cell", m.Name, "pins", len(m.Pins), "obstructions", len(m.Obstructions))

		result.Macros = append(result.Macros, m)
		result.Warnings = append(result.Warnings, m.Warnings...)
	}
	if err := w.Close(); err != nil {
		return err
	}

	if r.Config.Strict && len(result.Warnings) > 0 {
		return fmt.Errorf("%w: %d warning(s), first: %s", ErrStrict, len(result.Warnings), result.Warnings[0])
	}
	return nil
}

func (r *Runner) writePreviews(result *Result) error {
	if path := r.Config.Preview.PDF; path != "" {
		if err := preview.WritePDF(path, result.Macros, result.UnitsPerMicron); err != nil {
			return fmt.Errorf("pdf preview: %w", err)
		}
		r.Logger.Info("wrote preview", "file", path)
	}
	if path := r.Config.Preview.DXF; path != "" {
		if err := preview.WriteDXF(path, result.Macros, result.UnitsPerMicron); err != nil {
			return fmt.Errorf("dxf preview: %w", err)
		}
		r.Logger.Info("wrote preview", "file", path)
	}
	return nil
}

// writeAtomic calls fill with a temporary file in the directory of path and
// renames it to path when fill succeeds. On failure the temporary file is
// removed and path is left untouched.
func writeAtomic(path string, fill func(f *os.File) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = fill(tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync output: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod output: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}
