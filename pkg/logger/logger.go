package logger

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

type ctxKey struct{}

type Logger struct {
	l *zap.Logger
}

func New(ctx context.Context) (context.Context, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("error creating new logger: %w", err)
	}
	ctx = context.WithValue(ctx, ctxKey{}, &Logger{logger})

	return ctx, nil
}

func GetLogger(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return &Logger{zap.NewNop()}
}

func (logger *Logger) Info(msg string, fields ...zap.Field) {
	logger.l.Info(msg, fields...)
}

func (logger *Logger) Warn(msg string, fields ...zap.Field) {
	logger.l.Warn(msg, fields...)
}

func (logger *Logger) Error(msg string, fields ...zap.Field) {
	logger.l.Error(msg, fields...)
}

func (logger *Logger) Fatal(msg string, fields ...zap.Field) {
	logger.l.Fatal(msg, fields...)
}
