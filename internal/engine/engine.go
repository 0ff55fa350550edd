// Package engine abstracts pattern compilation and matching over a backtracking
// and a linear-time regular expression implementation.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/reginduce/internal/model"
)

// Group is one capturing group of a match, in byte offsets
type Group struct {
	Start   int
	End     int
	Matched bool
}

// Match is one non-overlapping match, in byte offsets. Groups[0] is the whole match.
type Match struct {
	Start  int
	End    int
	Groups []Group
}

// Group returns capturing group i, or an unmatched group if out of range
func (m Match) Group(i int) Group {
	if i < 0 || i >= len(m.Groups) {
		return Group{}
	}
	return m.Groups[i]
}

// Text returns the text captured by group i
func (m Match) Text(text string, i int) string {
	g := m.Group(i)
	if !g.Matched {
		return ""
	}
	return text[g.Start:g.End]
}

// Compiled is a pattern compiled by one engine. Implementations are safe for concurrent use.
type Compiled interface {
	// String returns the source pattern
	String() string
	// NumGroups returns the number of capturing groups, excluding the whole match
	NumGroups() int
	// FindAll returns every non-overlapping match in text
	FindAll(ctx context.Context, text string) ([]Match, error)
}

// Engine compiles patterns
type Engine interface {
	Kind() model.EngineKind
	Compile(pattern string) (Compiled, error)
}

// DefaultMatchTimeout bounds a backtracking match when no timeout is configured.
// regexp2 does not observe contexts, so an abandoned match only stops here.
const DefaultMatchTimeout = 5 * time.Minute

// Options configures engine construction
type Options struct {
	// MatchTimeout bounds a single backtracking match; zero means DefaultMatchTimeout
	MatchTimeout time.Duration
	Logger       *zap.Logger
}

// New creates an engine of the given kind
func New(kind model.EngineKind, opts Options) (Engine, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	switch kind {
	case model.EngineBacktracking:
		if opts.MatchTimeout <= 0 {
			opts.MatchTimeout = DefaultMatchTimeout
		}
		return &Backtracking{matchTimeout: opts.MatchTimeout, logger: opts.Logger}, nil
	case model.EngineLinear, "":
		return &Linear{logger: opts.Logger}, nil
	default:
		return nil, fmt.Errorf("%w: %q", model.ErrEngineUnavailable, kind)
	}
}

// FromConfig creates a cached engine from configuration
func FromConfig(cfg model.EngineConfig, logger *zap.Logger) (Engine, error) {
	e, err := New(cfg.Kind, Options{MatchTimeout: cfg.MatchTimeout, Logger: logger})
	if err != nil {
		return nil, err
	}
	return NewCache(e), nil
}

// WithMatchLimit returns an engine whose single-match bound does not exceed limit.
// Only a backtracking engine with a longer bound is replaced; the bool reports that.
func WithMatchLimit(e Engine, limit time.Duration) (Engine, bool) {
	inner := e
	if c, ok := e.(*Cache); ok {
		inner = c.engine
	}
	b, ok := inner.(*Backtracking)
	if !ok || limit <= 0 || b.matchTimeout <= limit {
		return e, false
	}
	return NewCache(&Backtracking{matchTimeout: limit, logger: b.logger}), true
}

func compileError(kind model.EngineKind, pattern string, err error) error {
	return fmt.Errorf("%w: %s engine rejected %q: %v", model.ErrEngineCompile, kind, pattern, err)
}
