package test

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger returns a logger that is silent unless TEST_LOGS is set. Use 2
// for debug and 3 for trace output.
func NewLogger() *logrus.Logger {
	l := logrus.New()

	v := os.Getenv("TEST_LOGS")
	if v == "" {
		l.SetOutput(io.Discard)
		return l
	}

	switch v {
	case "2":
		l.SetLevel(logrus.DebugLevel)
	case "3":
		l.SetLevel(logrus.TraceLevel)
	default:
		l.SetLevel(logrus.InfoLevel)
	}

	return l
}

// LogWriter collects every line written to it.
type LogWriter struct {
	Logs []string
}

func (tl *LogWriter) Write(p []byte) (n int, err error) {
	tl.Logs = append(tl.Logs, string(p))
	return len(p), nil
}

func (tl *LogWriter) Reset() {
	tl.Logs = tl.Logs[:0]
}

// NewCapturedLogger returns a logger writing plain, timestamp free text lines
// into the returned LogWriter.
func NewCapturedLogger() (*logrus.Logger, *LogWriter) {
	tl := &LogWriter{Logs: make([]string, 0)}

	l := logrus.New()
	l.Formatter = &logrus.TextFormatter{
		DisableTimestamp: true,
		DisableColors:    true,
	}
	l.Out = tl

	return l, tl
}
