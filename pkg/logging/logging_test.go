package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      zerolog.Level
		expectErr bool
	}{
		{name: "hit", input: "hit", want: HitLevel},
		{name: "debug", input: "debug", want: zerolog.DebugLevel},
		{name: "info", input: "info", want: zerolog.InfoLevel},
		{name: "unknown", input: "bogus", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, err := ParseLevel(tt.input)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, level)
		})
	}
}

func TestHitLevelWriter(t *testing.T) {
	t.Run("rewrites marked warn entries to hit", func(t *testing.T) {
		var buf bytes.Buffer
		writer := NewHitLevelWriter(&buf)

		writer.markNextAsHit()
		_, err := writer.Write([]byte(`{"level":"warn","_hit":true,"message":"SECRET"}`))
		assert.NoError(t, err)

		var entry map[string]interface{}
		assert.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "hit", entry["level"])
		assert.NotContains(t, entry, "_hit")
	})

	t.Run("unmarked entries pass through untouched", func(t *testing.T) {
		var buf bytes.Buffer
		writer := NewHitLevelWriter(&buf)

		line := `{"level":"warn","message":"ordinary warning"}`
		_, err := writer.Write([]byte(line))
		assert.NoError(t, err)
		assert.Equal(t, line, buf.String())
	})

	t.Run("the mark only covers one write", func(t *testing.T) {
		var buf bytes.Buffer
		writer := NewHitLevelWriter(&buf)

		writer.markNextAsHit()
		_, _ = writer.Write([]byte(`{"level":"warn"}`))
		buf.Reset()

		line := `{"level":"warn","message":"second"}`
		_, err := writer.Write([]byte(line))
		assert.NoError(t, err)
		assert.Equal(t, line, buf.String())
	})
}
