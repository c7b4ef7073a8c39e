// Package logging configures the process-wide logrus logger.
package logging

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LoggerSetupParams struct {
	LogFileName   string
	LogToStdout   bool
	LogLevel      string
	LogFormatJSON bool
	// MaxSizeMB caps one log file before rotation; 0 means 50.
	MaxSizeMB  int
	MaxBackups int
}

// Setup applies params to the standard logrus logger. With no file name,
// logs go to stdout only.
func Setup(params LoggerSetupParams) {
	if params.LogFormatJSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	logrus.SetLevel(GetLevel(params.LogLevel))

	if params.LogFileName == "" {
		logrus.SetOutput(os.Stdout)
		logrus.Debugln("writing logs only to STDOUT")
		return
	}

	logrus.SetOutput(NewWriter(params))
	if params.LogToStdout {
		logrus.Debugln("writing logs to file and STDOUT")
	}
}

// NewWriter returns the rotating file writer for params, combined with
// stdout when LogToStdout is set.
func NewWriter(params LoggerSetupParams) *CombinedWriter {
	fileName := params.LogFileName
	if !strings.HasSuffix(fileName, ".log") {
		fileName += ".log"
	}
	if dir := filepath.Dir(fileName); dir != "." {
		os.MkdirAll(dir, 0755)
	}

	maxSize := params.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 50
	}

	lumberJackLogger := &lumberjack.Logger{
		Filename:   fileName,
		MaxSize:    maxSize, // megabytes
		MaxBackups: params.MaxBackups,
		LocalTime:  false, // use UTC
		Compress:   true,
	}

	if params.LogToStdout {
		return NewCombinedWriter(os.Stdout, lumberJackLogger)
	}
	return NewCombinedWriter(lumberJackLogger)
}

// GetLevel maps a level name to a logrus level. Unknown names give info.
func GetLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "info":
		return logrus.InfoLevel
	case "trace":
		return logrus.TraceLevel
	case "warn", "warning":
		return logrus.WarnLevel
	default:
		return logrus.InfoLevel
	}
}

// ValidLevel reports whether level names a known logrus level.
func ValidLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "error", "fatal", "info", "trace", "warn", "warning":
		return true
	}
	return false
}
