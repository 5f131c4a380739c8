package logger

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/costlens/bugreport-ops/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestLogger(t *testing.T) {
	var buf bytes.Buffer

	tests := []struct {
		name    string
		debug   bool
		level   string
		logFunc func() *zerolog.Event
		message string
		want    string
		wantLog bool
	}{
		{
			name:    "debug log with debug mode on",
			debug:   true,
			logFunc: Debug,
			message: "debug message",
			want:    "debug",
			wantLog: true,
		},
		{
			name:    "debug log with debug mode off",
			debug:   false,
			logFunc: Debug,
			message: "debug message",
			want:    "debug",
			wantLog: false,
		},
		{
			name:    "debug log via log_level",
			level:   "debug",
			logFunc: Debug,
			message: "debug message",
			want:    "debug",
			wantLog: true,
		},
		{
			name:    "info suppressed by warn level",
			level:   "warn",
			logFunc: Info,
			message: "info message",
			want:    "info",
			wantLog: false,
		},
		{
			name:    "info log",
			logFunc: Info,
			message: "info message",
			want:    "info",
			wantLog: true,
		},
		{
			name:    "warn log",
			logFunc: Warn,
			message: "warn message",
			want:    "warn",
			wantLog: true,
		},
		{
			name:    "error log",
			logFunc: Error,
			message: "error message",
			want:    "error",
			wantLog: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()

			Init(&config.Config{Debug: tt.debug, LogLevel: tt.level})
			// Redirect to a buffer so assertions do not depend on the
			// console writer's formatting.
			log.Logger = zerolog.New(&buf)

			tt.logFunc().Msg(tt.message)

			output := strings.TrimSpace(buf.String())
			if tt.wantLog {
				if output == "" {
					t.Error("Expected log output but got none")
					return
				}
				if !strings.Contains(output, fmt.Sprintf(`"level":"%s"`, tt.want)) {
					t.Errorf("Expected log level %s not found in output: %s", tt.want, output)
				}
				if !strings.Contains(output, fmt.Sprintf(`"message":"%s"`, tt.message)) {
					t.Errorf("Expected message %q not found in output: %s", tt.message, output)
				}
			} else if output != "" {
				t.Errorf("Expected no log output, but got: %s", output)
			}
		})
	}
}
