// Package zero adapts a zerolog.Logger to the durasock logger interface.
package zero

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/durasock/durasock/pkg/logger"
)

type zeroLogger struct {
	l zerolog.Logger
}

// New returns a Logger that forwards to the given zerolog.Logger.
func New(l zerolog.Logger) logger.Logger {
	return &zeroLogger{l: l}
}

func (z *zeroLogger) Debug(msg string, args ...any) { emit(z.l.Debug(), msg, args) }
func (z *zeroLogger) Info(msg string, args ...any)  { emit(z.l.Info(), msg, args) }
func (z *zeroLogger) Warn(msg string, args ...any)  { emit(z.l.Warn(), msg, args) }
func (z *zeroLogger) Error(msg string, args ...any) { emit(z.l.Error(), msg, args) }

func emit(e *zerolog.Event, msg string, args []any) {
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		e = e.Interface(key, args[i+1])
	}
	e.Msg(msg)
}
