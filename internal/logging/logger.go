// Package logging wires logrus into the service: base logger setup with
// optional file rotation, and Gin middleware for request logging and panic
// recovery.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupBaseLogger configures the package-level logrus logger with a full
// timestamp text formatter and info level. Call once at startup before any
// logging happens.
func SetupBaseLogger() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetLevel(log.InfoLevel)
	log.SetOutput(os.Stdout)
}

// SetLevel applies a named log level, defaulting to info on unknown values.
func SetLevel(level string) {
	parsed, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		parsed = log.InfoLevel
	}
	log.SetLevel(parsed)
}

// EnableFileOutput tees log output into a size-rotated file under dir.
// An empty dir leaves output on stdout only.
func EnableFileOutput(dir string) {
	if dir == "" {
		return
	}
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(dir, "kaiwa.log"),
		MaxSize:    20, // megabytes
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stdout, rotator))
}
