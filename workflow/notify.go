package workflow

import (
	"sync"
	"time"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification 给用户看的非阻塞提示
type Notification struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

type Notifier interface {
	Notify(level Level, message string)
}

// Toasts 保存最近的若干条提示
type Toasts struct {
	mu    sync.Mutex
	max   int
	items []Notification
}

func NewToasts(max int) *Toasts {
	if max <= 0 {
		max = 20
	}
	return &Toasts{max: max}
}

func (t *Toasts) Notify(level Level, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.items = append(t.items, Notification{Level: level, Message: message, Time: time.Now()})
	if over := len(t.items) - t.max; over > 0 {
		t.items = append(t.items[:0], t.items[over:]...)
	}
}

// List 按时间顺序返回拷贝
func (t *Toasts) List() []Notification {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Notification, len(t.items))
	copy(out, t.items)
	return out
}

// Last 最近一条，没有时 ok=false
func (t *Toasts) Last() (Notification, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.items) == 0 {
		return Notification{}, false
	}
	return t.items[len(t.items)-1], true
}
