package config

import (
	"os"

	"github.com/phuslu/log"
)

// SetupLogger installs the global console logger at the given level.
func SetupLogger(level string) {
	if level == "" {
		level = "info"
	}
	log.DefaultLogger = log.Logger{
		Level:      log.ParseLevel(level),
		TimeFormat: "15:04:05",
		Writer: &log.ConsoleWriter{
			ColorOutput:    log.IsTerminal(os.Stderr.Fd()),
			EndWithMessage: true,
			Writer:         os.Stderr,
		},
	}
}
