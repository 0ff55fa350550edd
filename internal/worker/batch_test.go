package worker

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/reginduce/internal/model"
)

// MockExtractor implements Extractor, matching the first digit run
type MockExtractor struct {
	ShouldError bool
	Delay       time.Duration
}

func (m *MockExtractor) ExtractText(ctx context.Context, text string) ([]model.MatchedElement, error) {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.ShouldError {
		return nil, errors.New("extract error")
	}
	start := strings.IndexAny(text, "0123456789")
	if start < 0 {
		return nil, nil
	}
	end := start
	for end < len(text) && text[end] >= '0' && text[end] <= '9' {
		end++
	}
	return []model.MatchedElement{{Start: start, End: end, Text: text[start:end]}}, nil
}

func TestBatchProcessor_ProcessDocuments(t *testing.T) {
	processor := NewBatchProcessor(&MockExtractor{}, 2)

	docs := []Document{
		{ID: "a", Text: "Weight: 184 lbs"},
		{ID: "b", Text: "no value"},
		{ID: "c", Text: "HR 72"},
	}

	results := processor.ProcessDocuments(context.Background(), docs)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, res := range results {
		if res.ID != docs[i].ID {
			t.Errorf("expected result %d for %s, got %s", i, docs[i].ID, res.ID)
		}
		if res.Error != nil {
			t.Errorf("unexpected error for %s: %v", res.ID, res.Error)
		}
	}
	if len(results[0].Matches) != 1 || results[0].Matches[0].Text != "184" {
		t.Errorf("expected match 184, got %+v", results[0].Matches)
	}
	if len(results[1].Matches) != 0 {
		t.Errorf("expected no match, got %+v", results[1].Matches)
	}
}

func TestBatchProcessor_ProcessDocuments_Error(t *testing.T) {
	processor := NewBatchProcessor(&MockExtractor{ShouldError: true}, 2)

	results := processor.ProcessDocuments(context.Background(), []Document{{ID: "a", Text: "1"}})

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Error == nil {
		t.Error("expected error, got nil")
	}
	if results[0].Matches != nil {
		t.Error("expected no matches on error")
	}
}

func TestBatchProcessor_ProcessDocuments_Empty(t *testing.T) {
	processor := NewBatchProcessor(&MockExtractor{}, 2)

	results := processor.ProcessDocuments(context.Background(), []Document{})
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestBatchProcessor_ProcessDocuments_Deadline(t *testing.T) {
	processor := NewBatchProcessor(&MockExtractor{Delay: time.Minute}, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	docs := []Document{{ID: "a", Text: "1"}, {ID: "b", Text: "2"}, {ID: "c", Text: "3"}}
	results := processor.ProcessDocuments(ctx, docs)

	if len(results) != len(docs) {
		t.Fatalf("expected %d results, got %d", len(docs), len(results))
	}
	for _, res := range results {
		if !errors.Is(res.Error, context.DeadlineExceeded) {
			t.Errorf("expected deadline error for %s, got %v", res.ID, res.Error)
		}
	}
}

func TestReadDocumentsFromFile(t *testing.T) {
	content := "Weight: 184 lbs\n# comment\nBP 120/80\n   \nHR 72   "

	tmpfile, err := os.CreateTemp("", "docs")
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = os.Remove(tmpfile.Name())
	}()

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	docs, err := ReadDocumentsFromFile(tmpfile.Name())
	if err != nil {
		t.Fatalf("ReadDocumentsFromFile failed: %v", err)
	}

	expected := []Document{
		{ID: "line-1", Text: "Weight: 184 lbs"},
		{ID: "line-3", Text: "BP 120/80"},
		{ID: "line-5", Text: "HR 72   "},
	}
	if len(docs) != len(expected) {
		t.Fatalf("expected %d documents, got %d", len(expected), len(docs))
	}
	for i, doc := range docs {
		if doc != expected[i] {
			t.Errorf("expected %+v at index %d, got %+v", expected[i], i, doc)
		}
	}
}

func TestReadDocumentsFromFile_NonExistent(t *testing.T) {
	_, err := ReadDocumentsFromFile("non_existent_file.txt")
	if err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestExtractResult_GetError(t *testing.T) {
	r1 := &ExtractResult{ID: "a"}
	if r1.GetError() != nil {
		t.Errorf("expected nil error, got %v", r1.GetError())
	}

	expected := errors.New("extract failed")
	r2 := &ExtractResult{ID: "a", Error: expected}
	if r2.GetError() != expected {
		t.Errorf("expected %v, got %v", expected, r2.GetError())
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	content := "a 1\nb 2\n# comment\n\nc 3\n"

	tmpfile, err := os.CreateTemp("", "batch_docs")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Remove(tmpfile.Name()) }()

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	processor := NewBatchProcessor(&MockExtractor{}, 2)

	results, err := processor.ProcessFile(context.Background(), tmpfile.Name())
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}

	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}
}

func TestBatchProcessor_ProcessFile_NonExistent(t *testing.T) {
	processor := NewBatchProcessor(&MockExtractor{}, 2)

	_, err := processor.ProcessFile(context.Background(), "no_such_file.txt")
	if err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}
