package logutil

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestLevelFromEnv(t *testing.T) {
	tests := []struct {
		value string
		want  zerolog.Level
	}{
		{value: "", want: zerolog.InfoLevel},
		{value: "debug", want: zerolog.DebugLevel},
		{value: "warn", want: zerolog.WarnLevel},
		{value: "loud", want: zerolog.InfoLevel},
	}
	for _, test := range tests {
		t.Setenv(LevelEnv, test.value)
		if got := LevelFromEnv(zerolog.InfoLevel); got != test.want {
			t.Fatalf("LevelFromEnv with %q = %v, want %v", test.value, got, test.want)
		}
	}
}

func TestLevelSampler(t *testing.T) {
	var b bytes.Buffer
	logger := zerolog.New(&b).Sample(LevelSampler{Level: zerolog.WarnLevel})
	logger.Info().Msg("dropped")
	logger.Warn().Msg("kept")
	if strings.Contains(b.String(), "dropped") || !strings.Contains(b.String(), "kept") {
		t.Fatalf("unexpected output: %s", b.String())
	}
}

func TestErrorHook(t *testing.T) {
	var b bytes.Buffer
	logger := zerolog.New(&b).Hook(ErrorHook{})
	logger.Error().Msg("boom")
	if !strings.Contains(b.String(), `"severity":"error"`) {
		t.Fatalf("expected a severity field, got %s", b.String())
	}
}
