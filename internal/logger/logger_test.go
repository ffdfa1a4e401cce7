package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupJSON(t *testing.T) {
	var buf bytes.Buffer
	setup(&buf, "debug", "json")
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	l := For("planner")
	l.Info().Str("token", "WETH").Msg("계획 생성")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "rebalancer", entry["service"])
	assert.Equal(t, "planner", entry["component"])
	assert.Equal(t, "WETH", entry["token"])
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestSetupInvalidLevel(t *testing.T) {
	var buf bytes.Buffer
	setup(&buf, "verbose", "text")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
