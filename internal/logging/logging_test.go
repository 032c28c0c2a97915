package logging

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLogFilePath(t *testing.T) {
	sessionStart := time.Date(2026, 8, 12, 21, 38, 36, 0, time.UTC)

	tests := []struct {
		name      string
		logsDir   string
		component string
		want      string
	}{
		{
			name:      "basic path",
			logsDir:   "overlaylogs",
			component: "overlaysim",
			want:      filepath.Join("overlaylogs", "overlaysim.20260812_213836.log"),
		},
		{
			name:      "relative path with dot",
			logsDir:   "./overlaylogs",
			component: "overlaysim",
			want:      filepath.Join(".", "overlaylogs", "overlaysim.20260812_213836.log"),
		},
		{
			name:      "absolute path",
			logsDir:   filepath.Join("/var", "log", "overlay"),
			component: "overlaysim",
			want:      filepath.Join("/var", "log", "overlay", "overlaysim.20260812_213836.log"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LogFilePath(tt.logsDir, tt.component, sessionStart)
			assert.Equal(t, tt.want, got)
		})
	}
}
