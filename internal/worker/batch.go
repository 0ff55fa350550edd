package worker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/ppiankov/reginduce/internal/model"
)

// Document is one target text submitted for extraction
type Document struct {
	ID   string
	Text string
}

// Extractor extracts matches from one document
type Extractor interface {
	ExtractText(ctx context.Context, text string) ([]model.MatchedElement, error)
}

// ExtractJob represents one document extraction
type ExtractJob struct {
	Index     int
	Document  Document
	Extractor Extractor
}

// Execute executes the extraction job
func (j *ExtractJob) Execute(ctx context.Context) Result {
	matches, err := j.Extractor.ExtractText(ctx, j.Document.Text)
	return &ExtractResult{
		Index:   j.Index,
		ID:      j.Document.ID,
		Matches: matches,
		Error:   err,
	}
}

// ExtractResult represents the result of an extraction job
type ExtractResult struct {
	Index   int                    `json:"-"`
	ID      string                 `json:"id"`
	Matches []model.MatchedElement `json:"matches"`
	Error   error                  `json:"-"`
}

// GetError returns the error from the extraction result
func (r *ExtractResult) GetError() error {
	return r.Error
}

// BatchProcessor extracts from many documents concurrently
type BatchProcessor struct {
	extractor   Extractor
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(extractor Extractor, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		extractor:   extractor,
		concurrency: concurrency,
	}
}

// ProcessDocuments extracts from every document and returns results in input order.
// Documents not started before ctx ends are reported with the context error.
func (b *BatchProcessor) ProcessDocuments(ctx context.Context, docs []Document) []*ExtractResult {
	if len(docs) == 0 {
		return []*ExtractResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, doc := range docs {
		pool.Submit(&ExtractJob{Index: i, Document: doc, Extractor: b.extractor})
	}

	results := pool.Wait()

	out := make([]*ExtractResult, len(docs))
	for _, r := range results {
		er := r.(*ExtractResult)
		out[er.Index] = er
	}
	for i, r := range out {
		if r != nil {
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		out[i] = &ExtractResult{Index: i, ID: docs[i].ID, Error: fmt.Errorf("not processed: %w", err)}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// ProcessFile reads documents from a file and processes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*ExtractResult, error) {
	docs, err := ReadDocumentsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read documents: %w", err)
	}

	return b.ProcessDocuments(ctx, docs), nil
}

// ReadDocumentsFromFile reads one document per line
func ReadDocumentsFromFile(filePath string) ([]Document, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return ReadDocuments(file)
}

// ReadDocuments reads one document per line, skipping blank lines and # comments.
// Documents are numbered by their line.
func ReadDocuments(r io.Reader) ([]Document, error) {
	var docs []Document

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		trimmed := strings.TrimSpace(text)

		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		docs = append(docs, Document{ID: fmt.Sprintf("line-%d", line), Text: text})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return docs, nil
}
