// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders analysis results, with optional per-drug research
// findings, as downloadable PDF or XLSX files and keeps an index of the
// files it has generated.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/protocol-analyzer/internal/logging"
	"github.com/pdiddy/protocol-analyzer/pkg/types"
)

// Format identifies a report file type.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

// ErrUnknownFormat is returned for formats with no renderer.
var ErrUnknownFormat = errors.New("unknown report format")

// ParseFormat accepts "pdf" or "xlsx", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatPDF, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Document is the content of one report.
type Document struct {
	Analysis types.AnalysisResult

	// Research maps drug IDs to their findings. Drugs without an entry are
	// listed without research.
	Research map[string]types.ResearchEnvelope
}

// Renderer writes a Document in one file format.
type Renderer interface {
	Render(w io.Writer, doc Document) error
}

// Report describes one generated report file.
type Report struct {
	ID            string    `json:"id" yaml:"id"`
	Filename      string    `json:"filename" yaml:"filename"`
	Format        Format    `json:"format" yaml:"format"`
	DrugCount     int       `json:"drug_count" yaml:"drug_count"`
	MainCondition string    `json:"main_condition" yaml:"main_condition"`
	CreatedAt     time.Time `json:"created_at" yaml:"created_at"`
}

// Generator renders reports into a directory and records them in a Store.
type Generator struct {
	Dir       string
	Store     *Store
	Renderers map[Format]Renderer
	Logger    *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewGenerator opens the report index in cfg.Dir and registers the PDF and
// XLSX renderers. The caller closes the generator.
func NewGenerator(cfg types.ReportConfig, logger *zap.Logger) (*Generator, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = DefaultDir
	}
	store, err := NewStore(dir)
	if err != nil {
		return nil, err
	}
	return &Generator{
		Dir:   dir,
		Store: store,
		Renderers: map[Format]Renderer{
			FormatPDF:  &PDFRenderer{FontPath: cfg.FontPath},
			FormatXLSX: &XLSXRenderer{},
		},
		Logger: logger,
	}, nil
}

// DefaultDir is used when the config leaves the report directory unset.
const DefaultDir = "downloads"

// Close closes the report index.
func (g *Generator) Close() error {
	if g.Store == nil {
		return nil
	}
	return g.Store.Close()
}

// Generate renders doc as format, writes it under Dir, and records it.
func (g *Generator) Generate(ctx context.Context, doc Document, format Format) (Report, error) {
	r, ok := g.Renderers[format]
	if !ok {
		return Report{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err := os.MkdirAll(g.Dir, 0o755); err != nil {
		return Report{}, fmt.Errorf("creating report directory: %w", err)
	}

	id := g.id()
	created := g.clock()
	rep := Report{
		ID:            id,
		Filename:      fmt.Sprintf("protocol_analysis_%s_%s.%s", created.Format(types.TimestampLayout), shortID(id), format),
		Format:        format,
		DrugCount:     len(doc.Analysis.Drugs),
		MainCondition: doc.Analysis.MainCondition,
		CreatedAt:     created,
	}

	if err := g.write(r, doc, rep.Filename); err != nil {
		return Report{}, err
	}
	if err := g.Store.Record(ctx, rep); err != nil {
		os.Remove(filepath.Join(g.Dir, rep.Filename))
		return Report{}, err
	}

	g.log().Info("report generated",
		zap.String("filename", rep.Filename),
		zap.String("format", string(format)),
		zap.Int("drugs", rep.DrugCount),
	)
	return rep, nil
}

// write renders into a temp file and renames it, so a failed render never
// leaves a partial report behind.
func (g *Generator) write(r Renderer, doc Document, filename string) error {
	tmp, err := os.CreateTemp(g.Dir, ".report-*")
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := r.Render(tmp, doc); err != nil {
		tmp.Close()
		return fmt.Errorf("rendering %s: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", filename, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(g.Dir, filename)); err != nil {
		return fmt.Errorf("saving %s: %w", filename, err)
	}
	return nil
}

// Open returns the registered report file with the given name. Names that
// are not bare file names, or that the index does not know, yield ErrNotFound.
func (g *Generator) Open(ctx context.Context, filename string) (*os.File, Report, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return nil, Report{}, ErrNotFound
	}
	rep, err := g.Store.Lookup(ctx, filename)
	if err != nil {
		return nil, Report{}, err
	}
	f, err := os.Open(filepath.Join(g.Dir, rep.Filename))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, Report{}, ErrNotFound
		}
		return nil, Report{}, fmt.Errorf("opening report: %w", err)
	}
	return f, rep, nil
}

// List returns the most recent reports, newest first.
func (g *Generator) List(ctx context.Context, limit int) ([]Report, error) {
	return g.Store.List(ctx, limit)
}

func (g *Generator) clock() time.Time {
	if g.now != nil {
		return g.now()
	}
	return time.Now()
}

func (g *Generator) id() string {
	if g.newID != nil {
		return g.newID()
	}
	return uuid.NewString()
}

func (g *Generator) log() *zap.Logger {
	return logging.OrNop(g.Logger)
}

func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// orderedResearch pairs each drug with its findings, in drug order.
func orderedResearch(doc Document) []drugResearch {
	var out []drugResearch
	for _, d := range doc.Analysis.Drugs {
		env, ok := doc.Research[d.ID]
		if !ok {
			continue
		}
		out = append(out, drugResearch{Drug: d, Envelope: env})
	}
	return out
}

type drugResearch struct {
	Drug     types.DrugRecord
	Envelope types.ResearchEnvelope
}

func drugLabel(d types.DrugRecord) string {
	if d.InnEnglish != "" && !strings.EqualFold(d.InnEnglish, d.Name) {
		if d.Name == "" {
			return d.InnEnglish
		}
		return fmt.Sprintf("%s (%s)", d.Name, d.InnEnglish)
	}
	return d.SearchName()
}
