package api

import (
	"fmt"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/alexisbeaulieu97/scenarist/internal/logger"
)

// leveledLogger routes retryablehttp's logging into the application logger.
type leveledLogger struct {
	log *logger.Logger
}

var _ retryablehttp.LeveledLogger = leveledLogger{}

func newLeveledLogger(log *logger.Logger) leveledLogger {
	if log == nil {
		log = logger.Nop()
	}
	return leveledLogger{log: log.WithFields(map[string]any{"component": "http"})}
}

func (l leveledLogger) Error(msg string, keysAndValues ...any) {
	l.log.Log("error", msg, fields(keysAndValues))
}

func (l leveledLogger) Info(msg string, keysAndValues ...any) {
	// Per-request chatter is debug noise for scenario runs.
	l.log.Log("debug", msg, fields(keysAndValues))
}

func (l leveledLogger) Debug(msg string, keysAndValues ...any) {
	l.log.Log("debug", msg, fields(keysAndValues))
}

func (l leveledLogger) Warn(msg string, keysAndValues ...any) {
	l.log.Log("warn", msg, fields(keysAndValues))
}

func fields(keysAndValues []any) map[string]any {
	out := make(map[string]any, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		value := keysAndValues[i+1]
		if err, isErr := value.(error); isErr {
			value = err.Error()
		}
		out[key] = value
	}
	return out
}
