// Package exporter runs the export pipeline: select host objects, build the
// scene, encode it and write the .dwn file.
package exporter

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/dawn-toolbox/internal/config"
	"github.com/Faultbox/dawn-toolbox/internal/source"
	"github.com/Faultbox/dawn-toolbox/pkg/dwn"
	"github.com/Faultbox/dawn-toolbox/pkg/host"
	"github.com/Faultbox/dawn-toolbox/pkg/scenegraph"
)

// Exporter writes host documents as .dwn files.
type Exporter struct {
	cfg    config.ExportConfig
	editor host.MeshEditor
	log    *zap.Logger
}

// Result describes one written file.
type Result struct {
	Output   string
	Bytes    int64
	Objects  int // mesh objects exported
	Skipped  int // host objects not exported
	Roots    int
	Duration time.Duration
}

// New creates an exporter. A nil editor uses host.Editor and a nil logger
// discards output.
func New(cfg config.ExportConfig, editor host.MeshEditor, log *zap.Logger) *Exporter {
	if editor == nil {
		editor = host.Editor{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Exporter{cfg: cfg, editor: editor, log: log}
}

// Select returns the objects an export covers, in document order.
func (e *Exporter) Select(doc *host.Document) []*host.Object {
	if e.cfg.SelectedOnly {
		return doc.Selected()
	}
	return doc.Objects
}

// Export builds doc and writes it to output. Nothing is written when any
// stage fails. A document without mesh objects fails with
// scenegraph.ErrNoMeshObjects unless empty exports are allowed.
func (e *Exporter) Export(doc *host.Document, output string) (*Result, error) {
	start := time.Now()
	log := e.log.With(zap.String("output", output))

	objects := e.Select(doc)
	log.Debug("objects selected",
		zap.Int("selected", len(objects)),
		zap.Int("total", len(doc.Objects)),
		zap.Bool("selected_only", e.cfg.SelectedOnly))

	scene, err := scenegraph.Build(objects, e.editor,
		scenegraph.WithColors(e.cfg.Colors),
		scenegraph.WithLogger(log))
	if errors.Is(err, scenegraph.ErrNoMeshObjects) && e.cfg.AllowEmpty {
		log.Warn("no mesh objects, writing an empty scene")
		err = nil
	}
	if err != nil {
		return nil, fmt.Errorf("building scene: %w", err)
	}

	var n int64
	if e.cfg.Atomic {
		n, err = dwn.WriteFile(output, scene)
	} else {
		n, err = dwn.WriteFileDirect(output, scene)
	}
	if err != nil {
		return nil, fmt.Errorf("writing %s: %w", output, err)
	}

	res := &Result{
		Output:   output,
		Bytes:    n,
		Objects:  len(scene.TransformNodes),
		Skipped:  len(doc.Objects) - len(scene.TransformNodes),
		Roots:    len(scene.Roots()),
		Duration: time.Since(start),
	}
	log.Info("scene written",
		zap.Int64("bytes", res.Bytes),
		zap.Int("objects", res.Objects),
		zap.Int("skipped", res.Skipped),
		zap.Int("accessors", len(scene.Accessors)),
		zap.Duration("took", res.Duration))
	return res, nil
}

// ExportFile loads input and exports it next to the input, or into the
// configured output directory.
func (e *Exporter) ExportFile(input string, opts source.Options) (*Result, error) {
	doc, err := source.Load(input, opts)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", input, err)
	}
	e.log.Debug("input loaded", zap.String("input", input), zap.Int("objects", len(doc.Objects)))
	return e.Export(doc, OutputPath(input, e.cfg.OutputDir))
}

// OutputPath derives the .dwn path for input. Archive paths use backslashes,
// so both separators are accepted.
func OutputPath(input, outputDir string) string {
	input = strings.ReplaceAll(input, "\\", "/")
	dir, file := filepath.Split(filepath.FromSlash(input))
	if outputDir != "" {
		dir = outputDir
	}
	name := strings.TrimSuffix(file, filepath.Ext(file)) + dwn.Extension
	return filepath.Join(dir, name)
}
