// Package zaplogger adapts *zap.Logger to observability.Logger.
package zaplogger

import (
	"fmt"
	"time"

	"github.com/Zhima-Mochi/medishop/internal/observability"
	"go.uber.org/zap"
)

type Logger struct{ z *zap.Logger }

// New wraps base, binding fixed once. A nil base discards everything.
func New(base *zap.Logger, fixed ...observability.Field) *Logger {
	if base == nil {
		base = zap.NewNop()
	}
	if len(fixed) > 0 {
		base = base.With(convert(fixed)...)
	}
	return &Logger{z: base}
}

func (l *Logger) With(fields ...observability.Field) observability.Logger {
	if len(fields) == 0 {
		return l
	}
	return &Logger{z: l.z.With(convert(fields)...)}
}

func (l *Logger) Debug(msg string, fields ...observability.Field) { l.z.Debug(msg, convert(fields)...) }
func (l *Logger) Info(msg string, fields ...observability.Field)  { l.z.Info(msg, convert(fields)...) }
func (l *Logger) Warn(msg string, fields ...observability.Field)  { l.z.Warn(msg, convert(fields)...) }
func (l *Logger) Error(msg string, fields ...observability.Field) { l.z.Error(msg, convert(fields)...) }

func (l *Logger) Sync() error { return l.z.Sync() }

// convert picks typed zap fields for the common value kinds so hot paths skip reflection.
// Stringers such as decimal amounts and order statuses are logged by their string form.
func convert(fields []observability.Field) []zap.Field {
	out := make([]zap.Field, len(fields))
	for i, f := range fields {
		switch v := f.Value.(type) {
		case error:
			out[i] = zap.NamedError(f.Key, v)
		case string:
			out[i] = zap.String(f.Key, v)
		case int:
			out[i] = zap.Int(f.Key, v)
		case bool:
			out[i] = zap.Bool(f.Key, v)
		case time.Duration:
			out[i] = zap.Duration(f.Key, v)
		case time.Time:
			out[i] = zap.Time(f.Key, v)
		case fmt.Stringer:
			out[i] = zap.Stringer(f.Key, v)
		default:
			out[i] = zap.Any(f.Key, v)
		}
	}
	return out
}
