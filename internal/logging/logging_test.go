package logging

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSetup_AllLevels(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":    zerolog.DebugLevel,
		"info":     zerolog.InfoLevel,
		"warn":     zerolog.WarnLevel,
		"error":    zerolog.ErrorLevel,
		"disabled": zerolog.Disabled,
		"unknown":  zerolog.InfoLevel,
		"":         zerolog.InfoLevel,
	}
	for level, want := range cases {
		Setup(level, false)
		assert.Equal(t, want, zerolog.GlobalLevel(), "level=%q", level)
	}
}

func TestSetup_PrettyDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		Setup("info", true)
	})
}
