package core

import (
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

const defaultLogPrefix = "Pipeline 🧩 "

var once sync.Once

type logger struct {
	*log.Logger
}

var singleton *logger

func getLogger() *logger {
	if singleton == nil {
		once.Do(
			func() {
				l := log.NewWithOptions(os.Stderr, log.Options{
					ReportCaller:    true,
					ReportTimestamp: true,
					TimeFormat:      time.RFC3339,
					Prefix:          defaultLogPrefix,
				})
				l.SetLevel(log.InfoLevel)
				singleton = &logger{l}
			})
	}
	return singleton
}

// LogConfigure sets the level ("debug", "info", "warn", "error", "fatal") and
// the prefix of the engine logger. An empty prefix keeps the current one.
func LogConfigure(level, prefix string) error {
	l := getLogger()
	if level != "" {
		lvl, err := log.ParseLevel(level)
		if err != nil {
			return err
		}
		l.SetLevel(lvl)
	}
	if prefix != "" {
		l.SetPrefix(prefix)
	}
	return nil
}

func LogDebug(msg string, args ...interface{}) {
	getLogger().Debugf(msg, args...)
}

func LogInfo(msg string, args ...interface{}) {
	getLogger().Infof(msg, args...)
}

func LogWarn(msg string, args ...interface{}) {
	getLogger().Warnf(msg, args...)
}

func LogError(msg string, args ...interface{}) {
	getLogger().Errorf(msg, args...)
}

func LogFatal(msg string, args ...interface{}) {
	getLogger().Fatalf(msg, args...)
}
