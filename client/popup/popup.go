// Package popup 把推送事件投影成短暂的弹窗提示。
// 纯附加行为：关掉它不影响任何已持久化的状态。
package popup

import (
	"sync"
	"time"
)

// 弹窗级别
const (
	LevelSuccess = "success"
	LevelError   = "error"
	LevelWarning = "warning"
	LevelInfo    = "info"
)

// DefaultDuration 弹窗默认展示时长
const DefaultDuration = 5000 * time.Millisecond

type Popup struct {
	Level     string
	Title     string
	Message   string
	ExpiresAt time.Time
}

// LevelForEvent 业务事件名到弹窗级别的映射，未知事件归为 info
func LevelForEvent(event string) string {
	switch event {
	case "notification:comment-reply":
		return LevelInfo
	case "order:status-updated":
		return LevelSuccess
	case "staff:new-order":
		return LevelWarning
	case "notification:new":
		return LevelInfo
	default:
		return LevelInfo
	}
}

type Dispatcher struct {
	mu     sync.Mutex
	active []Popup
	now    func() time.Time
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{now: time.Now}
}

// Dispatch 追加一个弹窗，标题为空则不弹
func (d *Dispatcher) Dispatch(level string, title string, message string) {
	d.DispatchWithDuration(level, title, message, DefaultDuration)
}

func (d *Dispatcher) DispatchWithDuration(level string, title string, message string, duration time.Duration) {
	if title == "" {
		return
	}
	if duration <= 0 {
		duration = DefaultDuration
	}
	d.mu.Lock()
	d.active = append(d.active, Popup{
		Level:     level,
		Title:     title,
		Message:   message,
		ExpiresAt: d.now().Add(duration),
	})
	d.mu.Unlock()
}

// DispatchEvent 按事件名映射级别后弹窗
func (d *Dispatcher) DispatchEvent(event string, title string, message string) {
	d.Dispatch(LevelForEvent(event), title, message)
}

// Active 返回尚未过期的弹窗，同时清理过期项
func (d *Dispatcher) Active() []Popup {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	kept := d.active[:0]
	for _, p := range d.active {
		if p.ExpiresAt.After(now) {
			kept = append(kept, p)
		}
	}
	d.active = kept

	out := make([]Popup, len(kept))
	copy(out, kept)
	return out
}
