package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/reginduce/internal/model"
)

func engines(t *testing.T) []Engine {
	t.Helper()
	var out []Engine
	for _, kind := range []model.EngineKind{model.EngineBacktracking, model.EngineLinear} {
		e, err := New(kind, Options{MatchTimeout: time.Second})
		require.NoError(t, err)
		out = append(out, e)
	}
	return out
}

func TestNew_UnknownKind(t *testing.T) {
	_, err := New("perl", Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrEngineUnavailable))
}

func TestFindAll_GroupSpans(t *testing.T) {
	for _, e := range engines(t) {
		t.Run(string(e.Kind()), func(t *testing.T) {
			c, err := e.Compile(`Weight:\s{1,3}?(\d+)`)
			require.NoError(t, err)
			assert.Equal(t, 1, c.NumGroups())

			text := "Weight: 184 lbs, Weight: 201 lbs"
			matches, err := c.FindAll(context.Background(), text)
			require.NoError(t, err)
			require.Len(t, matches, 2)
			assert.Equal(t, "184", matches[0].Text(text, 1))
			assert.Equal(t, Group{Start: 8, End: 11, Matched: true}, matches[0].Group(1))
			assert.Equal(t, "201", matches[1].Text(text, 1))
		})
	}
}

func TestFindAll_ByteOffsetsWithMultibyteText(t *testing.T) {
	for _, e := range engines(t) {
		t.Run(string(e.Kind()), func(t *testing.T) {
			c, err := e.Compile(`température:\s{1,3}?(\d+)`)
			require.NoError(t, err)

			text := "Ça va. température: 38 °C"
			matches, err := c.FindAll(context.Background(), text)
			require.NoError(t, err)
			require.Len(t, matches, 1)

			g := matches[0].Group(1)
			assert.Equal(t, "38", text[g.Start:g.End])
		})
	}
}

func TestFindAll_UnmatchedGroup(t *testing.T) {
	for _, e := range engines(t) {
		t.Run(string(e.Kind()), func(t *testing.T) {
			c, err := e.Compile(`(a)|(b)`)
			require.NoError(t, err)

			matches, err := c.FindAll(context.Background(), "b")
			require.NoError(t, err)
			require.Len(t, matches, 1)
			assert.False(t, matches[0].Group(1).Matched)
			assert.True(t, matches[0].Group(2).Matched)
			assert.Equal(t, "", matches[0].Text("b", 1))
		})
	}
}

func TestCompile_LinearRejectsBackreference(t *testing.T) {
	e, err := New(model.EngineLinear, Options{})
	require.NoError(t, err)

	_, err = e.Compile(`(a)\1`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrEngineCompile))

	b, err := New(model.EngineBacktracking, Options{})
	require.NoError(t, err)
	_, err = b.Compile(`(a)\1`)
	assert.NoError(t, err)
}

func TestBacktracking_MatchTimeout(t *testing.T) {
	e, err := New(model.EngineBacktracking, Options{MatchTimeout: 50 * time.Millisecond})
	require.NoError(t, err)

	c, err := e.Compile(`((a+)+)b`)
	require.NoError(t, err)

	start := time.Now()
	_, err = c.FindAll(context.Background(), strings.Repeat("a", 40)+"!")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrMatchTimeout))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestBacktracking_DefaultMatchTimeout(t *testing.T) {
	e, err := New(model.EngineBacktracking, Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultMatchTimeout, e.(*Backtracking).MatchTimeout())
}

func TestWithMatchLimit(t *testing.T) {
	slow, err := New(model.EngineBacktracking, Options{MatchTimeout: time.Minute})
	require.NoError(t, err)

	limited, clamped := WithMatchLimit(NewCache(slow), time.Second)
	assert.True(t, clamped)
	require.IsType(t, &Cache{}, limited)
	assert.Equal(t, time.Second, limited.(*Cache).engine.(*Backtracking).MatchTimeout())
	assert.Equal(t, time.Minute, slow.(*Backtracking).MatchTimeout())

	same, clamped := WithMatchLimit(slow, time.Hour)
	assert.False(t, clamped)
	assert.Same(t, slow, same)

	linear, err := New(model.EngineLinear, Options{})
	require.NoError(t, err)
	same, clamped = WithMatchLimit(linear, time.Millisecond)
	assert.False(t, clamped)
	assert.Same(t, linear, same)
}

func TestCache_InsertIfAbsent(t *testing.T) {
	e, err := New(model.EngineLinear, Options{})
	require.NoError(t, err)
	c := NewCache(e)
	assert.Same(t, c, NewCache(c))

	var wg sync.WaitGroup
	results := make([]Compiled, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			compiled, err := c.Compile(`(\d+)`)
			assert.NoError(t, err)
			results[i] = compiled
		}(i)
	}
	wg.Wait()

	first, err := c.Compile(`(\d+)`)
	require.NoError(t, err)
	for _, r := range results {
		assert.Same(t, first.(*linearPattern), r.(*linearPattern))
	}
	assert.Equal(t, 1, c.Len())
}

func TestCache_CachesFailures(t *testing.T) {
	e, err := New(model.EngineLinear, Options{})
	require.NoError(t, err)
	c := NewCache(e)

	_, err = c.Compile(`(?<=a)b`)
	require.Error(t, err)
	_, err = c.Compile(`(?<=a)b`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrEngineCompile))
	assert.Equal(t, 1, c.Len())
}
