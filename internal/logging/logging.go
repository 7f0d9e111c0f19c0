package logging

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

var Log = logrus.New()

// SetLevel accepts debug, info, warn, error and fatal.
func SetLevel(level string) error {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		Log.SetLevel(logrus.DebugLevel)
	case "", "info":
		Log.SetLevel(logrus.InfoLevel)
	case "warning", "warn":
		Log.SetLevel(logrus.WarnLevel)
	case "error":
		Log.SetLevel(logrus.ErrorLevel)
	case "fatal":
		Log.SetLevel(logrus.FatalLevel)
	default:
		return fmt.Errorf("bad log level: %q", level)
	}
	return nil
}

// Leveled adapts a logrus logger to the retryablehttp.LeveledLogger
// interface. Everything is demoted one level so retries stay quiet at info.
type Leveled struct {
	Logger logrus.FieldLogger
}

func (l Leveled) Error(msg string, keysAndValues ...interface{}) {
	l.Logger.WithFields(fields(keysAndValues)).Warn(msg)
}

func (l Leveled) Info(msg string, keysAndValues ...interface{}) {
	l.Logger.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l Leveled) Debug(msg string, keysAndValues ...interface{}) {
	l.Logger.WithFields(fields(keysAndValues)).Trace(msg)
}

func (l Leveled) Warn(msg string, keysAndValues ...interface{}) {
	l.Logger.WithFields(fields(keysAndValues)).Debug(msg)
}

func fields(keysAndValues []interface{}) logrus.Fields {
	out := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		out[key] = keysAndValues[i+1]
	}
	return out
}
