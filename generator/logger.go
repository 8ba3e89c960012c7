package generator

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

type Format string

const (
	timeFormat = time.RFC3339Nano

	JSON  Format = "json"
	Plain Format = "plain"

	redacted = "[REDACTED]"
)

// secretFields never reach the log output with their value.
var secretFields = []string{"passphrase", "privateKey", "key"}

// redactHook masks secretFields on every entry before it is formatted.
type redactHook struct{}

func (redactHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (redactHook) Fire(e *logrus.Entry) error {
	for _, f := range secretFields {
		if _, ok := e.Data[f]; ok {
			e.Data[f] = redacted
		}
	}
	return nil
}

// NewLogger initializes a new (logrus) Logger instance writing to stderr.
// Supported log formats are: plain, json
func NewLogger(logLevel, logFormat string) (*logrus.Entry, error) {
	lvl, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return nil, err
	}

	format := Format(logFormat)
	if err := checkFormat(format, ServiceName); err != nil {
		return nil, err
	}

	l := newFormattedLogger(lvl, format)

	logger := logrus.NewEntry(l)
	logger.Level = l.Level
	logger = logger.WithFields(logrus.Fields{
		"serviceName": ServiceName,
		"version":     FullVersion,
	})
	return logger, nil
}

// newFormattedLogger returns a formatted Logger object (log format is JSON by default)
func newFormattedLogger(logLevel logrus.Level, logFormat Format) *logrus.Logger {

	l := logrus.New()
	var formatter logrus.Formatter
	// Select log Format
	switch logFormat {
	case Plain:
		formatter = &logrus.TextFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyMsg: "message",
			},
			TimestampFormat: timeFormat,
		}
	default:
		formatter = &logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyMsg: "message",
			},
			TimestampFormat: timeFormat,
		}
	}

	l.SetFormatter(formatter)
	l.AddHook(redactHook{})

	l.Level = logLevel

	if logLevel == logrus.DebugLevel {
		l.Warn(fmt.Sprintf("%s RUNNING IN DEBUG MODE. KEYSTORE PATHS AND TIMINGS WILL BE LOGGED", strings.ToUpper(ServiceName)))
	}
	return l
}

// Validation

func checkFormat(w Format, service string) error {
	switch w {
	case JSON, Plain:
		return nil
	default:
		return fmt.Errorf("invalid %s log format input '%v'", service, w)
	}
}

// Logger builds the run logger from the config. Every entry carries the
// output directory, KDF and overwrite policy of the run.
func (c *Config) Logger() (*logrus.Entry, error) {
	l, err := NewLogger(c.LogLevel, c.LogFormat)
	if err != nil {
		return nil, err
	}
	return l.WithFields(logrus.Fields{
		"outputDir": c.OutputDir,
		"kdf":       c.KDF,
		"overwrite": c.Overwrite,
	}), nil
}
