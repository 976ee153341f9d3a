package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestInit_DoesNotPanic(t *testing.T) {
	Init("debug", false)
	L().Debug().Msg("json debug")

	Init("info", true)
	L().Info().Msg("human info")

	Init("not-a-level", false)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))
	defer Init("info", false)

	log := With("store")
	log.Info().Msg("committed")

	assert.Contains(t, buf.String(), `"component":"store"`)
}
