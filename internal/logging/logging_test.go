package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zerolog.Level
		wantErr bool
	}{
		{"", zerolog.InfoLevel, false},
		{"debug", zerolog.DebugLevel, false},
		{"WARNING", zerolog.WarnLevel, false},
		{"loud", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "healthsync.log")
	logger, closer, err := New(Options{Level: "debug", File: path})
	require.NoError(t, err)

	child := logger.With().Str("component", "store").Logger()
	child.Info().Msg("refreshed")
	logger.Debug().Msg("detail")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"store"`)
	assert.Contains(t, string(data), `"message":"refreshed"`)
	assert.Contains(t, string(data), `"level":"debug"`)
}
