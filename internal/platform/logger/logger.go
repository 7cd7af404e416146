package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds a zerolog logger tagged with component. APP_ENV=dev switches
// to the human-readable console writer.
func New(component, appEnv, level string) zerolog.Logger {
	var out io.Writer = os.Stdout
	if strings.EqualFold(appEnv, "dev") {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Str("component", component).Logger()
}
