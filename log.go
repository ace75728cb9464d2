package main

import (
	"os"

	"github.com/charmbracelet/log"
)

// setupLog points the global logger at NARRATOR_LOGFILE when set,
// otherwise stderr. NARRATOR_DEBUG lowers the level to debug. The
// returned closer must run before exit so the log file is flushed.
func setupLog() (func() error, error) {
	if os.Getenv("NARRATOR_DEBUG") != "" {
		log.SetLevel(log.DebugLevel)
	}

	logFile := os.Getenv("NARRATOR_LOGFILE")
	if logFile == "" {
		return func() error { return nil }, nil
	}

	f, err := os.OpenFile(logFile, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o600) //nolint:gosec
	if err != nil {
		return nil, err
	}
	log.SetOutput(f)
	log.SetReportTimestamp(true)
	log.SetPrefix("narrator")
	return f.Close, nil
}
