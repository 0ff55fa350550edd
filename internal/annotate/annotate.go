// Package annotate reads annotated examples from line-oriented sources.
package annotate

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/reginduce/internal/model"
)

const maxLineSize = 4 * 1024 * 1024

// ReadFile loads examples from path: .jsonl/.ndjson as JSON lines, anything else as tagged lines
func ReadFile(path string) ([]model.Example, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open examples: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return ReadJSONL(f)
	default:
		return ReadTagged(f)
	}
}

// ReadJSONL reads one JSON-encoded example per line. Blank lines are skipped.
// Examples without an ID get "line-N".
func ReadJSONL(r io.Reader) ([]model.Example, error) {
	var examples []model.Example
	err := scanLines(r, func(n int, line string) error {
		if strings.TrimSpace(line) == "" {
			return nil
		}
		var ex model.Example
		if err := json.Unmarshal([]byte(line), &ex); err != nil {
			return fmt.Errorf("%w: line %d: %v", model.ErrMalformedExample, n, err)
		}
		if ex.ID == "" {
			ex.ID = lineID(n)
		}
		examples = append(examples, ex)
		return nil
	})
	return examples, err
}

func scanLines(r io.Reader, fn func(n int, line string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	n := 0
	for scanner.Scan() {
		n++
		if err := fn(n, scanner.Text()); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read examples: %w", err)
	}
	return nil
}

func lineID(n int) string {
	return fmt.Sprintf("line-%d", n)
}
