package logging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/ppiankov/reginduce/internal/model"
)

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, level)

	level, err = ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, level)

	_, err = ParseLevel("loud")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrInvalidConfiguration))
}

func TestNew(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		logger, err := New(model.LoggingConfig{Level: "warn", Format: format})
		require.NoError(t, err)
		assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
		assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
	}
}

func TestObserved(t *testing.T) {
	o := NewObserved()
	o.Logger.Warn("skipping span overlapping an earlier span")
	o.Logger.Debug("phase finished")

	o.AssertLogged(t, zapcore.WarnLevel, "overlapping")
	o.AssertNotLogged(t, zapcore.ErrorLevel, "overlapping")
	assert.Equal(t, 1, o.Count(zapcore.DebugLevel, "phase"))
	assert.Len(t, o.All(), 2)
}
