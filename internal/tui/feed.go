package tui

import (
	"context"
	"sync"

	"github.com/mmeshcher/food-admin/internal/notify"
)

// Feed запоминает последнее уведомление для строки состояния.
type Feed struct {
	mu    sync.Mutex
	seq   uint64
	level notify.Level
	msg   string
}

func NewFeed() *Feed {
	return &Feed{}
}

func (f *Feed) Success(_ context.Context, msg string) { f.set(notify.LevelSuccess, msg) }

func (f *Feed) Error(_ context.Context, msg string) { f.set(notify.LevelError, msg) }

func (f *Feed) set(level notify.Level, msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	f.level, f.msg = level, msg
}

// Last возвращает последнее уведомление и его порядковый номер. Номер 0 означает, что уведомлений не было.
func (f *Feed) Last() (uint64, notify.Level, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seq, f.level, f.msg
}
