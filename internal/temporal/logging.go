package temporal

import (
	"fmt"

	"github.com/rs/zerolog"
	"go.temporal.io/sdk/log"
)

// sdkLogger routes Temporal SDK logs through zerolog.
type sdkLogger struct {
	logger zerolog.Logger
}

func NewSDKLogger(logger zerolog.Logger) log.Logger {
	return &sdkLogger{
		logger: logger.With().Str("component", "temporal_sdk").Logger(),
	}
}

// withFields copies keyvals onto the logger context. A dangling key gets a nil value.
func withFields(logger zerolog.Logger, keyvals []interface{}) zerolog.Logger {
	if len(keyvals) == 0 {
		return logger
	}
	ctx := logger.With()
	for i := 0; i < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			key = fmt.Sprint(keyvals[i])
		}
		var val interface{}
		if i+1 < len(keyvals) {
			val = keyvals[i+1]
		}
		if err, ok := val.(error); ok {
			ctx = ctx.AnErr(key, err)
			continue
		}
		ctx = ctx.Interface(key, val)
	}
	return ctx.Logger()
}

func (l *sdkLogger) Debug(msg string, keyvals ...interface{}) {
	lg := withFields(l.logger, keyvals)
	lg.Debug().Msg(msg)
}

func (l *sdkLogger) Info(msg string, keyvals ...interface{}) {
	lg := withFields(l.logger, keyvals)
	lg.Info().Msg(msg)
}

func (l *sdkLogger) Warn(msg string, keyvals ...interface{}) {
	lg := withFields(l.logger, keyvals)
	lg.Warn().Msg(msg)
}

func (l *sdkLogger) Error(msg string, keyvals ...interface{}) {
	lg := withFields(l.logger, keyvals)
	lg.Error().Msg(msg)
}

// With implements log.WithLogger so workflow loggers keep their tags.
func (l *sdkLogger) With(keyvals ...interface{}) log.Logger {
	return &sdkLogger{logger: withFields(l.logger, keyvals)}
}
