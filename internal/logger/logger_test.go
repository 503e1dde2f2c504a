package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restore(t *testing.T) {
	t.Helper()
	level, logger := zerolog.GlobalLevel(), log.Logger
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(level)
		log.Logger = logger
	})
}

func TestSetupWriter_JSON(t *testing.T) {
	restore(t)

	var buf bytes.Buffer
	SetupWriter(Logger{Level: "warn", Format: "json"}, &buf)

	log.Info().Msg("hidden")
	log.Warn().Str("conversion_id", "abc").Msg("shown")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "abc", entry["conversion_id"])
	assert.Contains(t, entry, "time")
}

func TestSetupWriter_Console(t *testing.T) {
	restore(t)

	var buf bytes.Buffer
	SetupWriter(Logger{Level: "bogus", NoColor: true}, &buf)

	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	log.Info().Msg("ready")
	assert.Contains(t, buf.String(), "INF ready")
}
