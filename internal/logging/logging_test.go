package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLevelAndComponent(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	require.NoError(t, SetLevel("warn"))
	t.Cleanup(func() { _ = SetLevel("info") })

	log := For("audio")
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "audio")
	assert.Equal(t, zerolog.WarnLevel, Level())

	assert.Error(t, SetLevel("loud"))
	assert.Equal(t, zerolog.WarnLevel, Level(), "a bad name keeps the level")
}

func TestSetLevelReachesExistingLoggers(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	require.NoError(t, SetLevel("info"))
	t.Cleanup(func() { _ = SetLevel("info") })

	log := For("classifier")
	log.Debug().Msg("before")
	require.NoError(t, SetLevel("debug"))
	log.Debug().Msg("after")

	assert.NotContains(t, buf.String(), "before")
	assert.Contains(t, buf.String(), "after")
}
