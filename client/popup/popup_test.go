package popup

import (
	"testing"
	"time"
)

func TestDispatchAndExpire(t *testing.T) {
	now := time.Now()
	d := NewDispatcher()
	d.now = func() time.Time { return now }

	d.Dispatch(LevelInfo, "新消息", "您有一条新回复")
	if got := d.Active(); len(got) != 1 {
		t.Fatalf("期望 1 个弹窗，得到 %d", len(got))
	}

	// 默认 5 秒后过期
	now = now.Add(DefaultDuration + time.Millisecond)
	if got := d.Active(); len(got) != 0 {
		t.Fatalf("过期弹窗应被清理，得到 %d", len(got))
	}
}

func TestEmptyTitleDoesNotDispatch(t *testing.T) {
	d := NewDispatcher()
	d.Dispatch(LevelInfo, "", "没有标题")
	if got := d.Active(); len(got) != 0 {
		t.Fatalf("无标题不应弹窗，得到 %d", len(got))
	}
}

func TestLevelForEvent(t *testing.T) {
	cases := map[string]string{
		"notification:new":           LevelInfo,
		"notification:comment-reply": LevelInfo,
		"order:status-updated":       LevelSuccess,
		"staff:new-order":            LevelWarning,
		"something:unknown":          LevelInfo,
	}
	for event, want := range cases {
		if got := LevelForEvent(event); got != want {
			t.Errorf("%s: 期望 %s，得到 %s", event, want, got)
		}
	}
}

func TestDispatchEventUsesMappedLevel(t *testing.T) {
	d := NewDispatcher()
	d.DispatchEvent("staff:new-order", "新订单", "顾客张三下单了")
	got := d.Active()
	if len(got) != 1 || got[0].Level != LevelWarning {
		t.Fatalf("期望 warning 弹窗，得到 %+v", got)
	}
}
