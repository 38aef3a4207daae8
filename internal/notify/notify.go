// Package notify реализует поверхность уведомлений, в которую хранилища сообщают об исходе операций.
package notify

import (
	"context"

	"go.uber.org/zap"
)

// Level описывает тип уведомления.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notifier отображает человекочитаемое сообщение об успехе или ошибке.
// Реализации не возвращают ошибок: сбой доставки только логируется.
type Notifier interface {
	Success(ctx context.Context, msg string)
	Error(ctx context.Context, msg string)
}

// Func адаптирует функцию к интерфейсу Notifier.
type Func func(ctx context.Context, level Level, msg string)

func (f Func) Success(ctx context.Context, msg string) { f(ctx, LevelSuccess, msg) }

func (f Func) Error(ctx context.Context, msg string) { f(ctx, LevelError, msg) }

// Log пишет уведомления в журнал.
type Log struct {
	logger *zap.Logger
}

// NewLog создаёт уведомитель поверх zap-логгера.
func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Success(_ context.Context, msg string) {
	l.logger.Info("notification", zap.String("level", string(LevelSuccess)), zap.String("message", msg))
}

func (l *Log) Error(_ context.Context, msg string) {
	l.logger.Warn("notification", zap.String("level", string(LevelError)), zap.String("message", msg))
}

// Multi рассылает каждое уведомление всем вложенным получателям.
type Multi []Notifier

func (m Multi) Success(ctx context.Context, msg string) {
	for _, n := range m {
		if n != nil {
			n.Success(ctx, msg)
		}
	}
}

func (m Multi) Error(ctx context.Context, msg string) {
	for _, n := range m {
		if n != nil {
			n.Error(ctx, msg)
		}
	}
}

// Discard молча отбрасывает уведомления.
var Discard Notifier = Func(func(context.Context, Level, string) {})
