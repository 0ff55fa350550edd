package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ppiankov/reginduce/internal/model"
	"github.com/ppiankov/reginduce/internal/worker"
)

// DocumentMatches is the rendered outcome for one document
type DocumentMatches struct {
	ID      string                 `json:"id"`
	Matches []model.MatchedElement `json:"matches"`
	Error   string                 `json:"error,omitempty"`
}

// Renderer writes extraction results as JSON
type Renderer struct {
	indent bool
}

// NewRenderer creates a renderer; indent pretty-prints whole documents
func NewRenderer(indent bool) *Renderer {
	return &Renderer{indent: indent}
}

// WriteResults writes one JSON object per document, one per line
func (r *Renderer) WriteResults(w io.Writer, results []*worker.ExtractResult) error {
	enc := json.NewEncoder(w)
	for _, res := range results {
		out := DocumentMatches{ID: res.ID, Matches: res.Matches}
		if out.Matches == nil {
			out.Matches = []model.MatchedElement{}
		}
		if res.Error != nil {
			out.Error = res.Error.Error()
		}
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("encode %s: %w", res.ID, err)
		}
	}
	return nil
}

// WriteJSON writes v as a single JSON document
func (r *Renderer) WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	if r.indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// RenderJSON writes v to path, creating parent directories
func (r *Renderer) RenderJSON(v any, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := r.WriteJSON(f, v); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
