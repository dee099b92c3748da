package push

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestDispatchToSubscribers(t *testing.T) {
	m := NewManager("ws://127.0.0.1:1/ws", "")
	defer m.Close()

	var got atomic.Value
	sub := m.Subscribe("notification:new", func(payload json.RawMessage) {
		got.Store(string(payload))
	})
	defer m.Unsubscribe(sub)

	m.dispatch([]byte(`{"event":"notification:new","data":{"title":"hi"}}`))

	v, _ := got.Load().(string)
	if v != `{"title":"hi"}` {
		t.Fatalf("载荷错误: %s", v)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	m := NewManager("ws://127.0.0.1:1/ws", "")
	defer m.Close()

	var count atomic.Int32
	sub := m.Subscribe("message.new", func(json.RawMessage) { count.Add(1) })
	m.dispatch([]byte(`{"event":"message.new","data":{}}`))
	m.Unsubscribe(sub)
	m.dispatch([]byte(`{"event":"message.new","data":{}}`))

	if count.Load() != 1 {
		t.Fatalf("退订后仍收到事件，计数 %d", count.Load())
	}
}

func TestUnknownEventIgnored(t *testing.T) {
	m := NewManager("ws://127.0.0.1:1/ws", "")
	defer m.Close()

	// 未订阅的事件与非法数据都只记日志，不得崩溃
	m.dispatch([]byte(`{"event":"something:else","data":{}}`))
	m.dispatch([]byte(`not-json`))
}

func TestEmitDeliversAfterLazyConnect(t *testing.T) {
	upgrader := websocket.Upgrader{}
	received := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		received <- string(raw)
	}))
	defer srv.Close()

	m := NewManager("ws"+strings.TrimPrefix(srv.URL, "http"), "tok")
	defer m.Close()

	if err := m.Emit("join_conversation", map[string]string{"conversation_id": "C1"}); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	select {
	case raw := <-received:
		var env envelope
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			t.Fatalf("解包失败: %v", err)
		}
		if env.Event != "join_conversation" {
			t.Fatalf("事件名错误: %s", env.Event)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("惰性连接后事件未送达")
	}
}

func TestReconnectHookFiresAfterDrop(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var conns atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		n := conns.Add(1)
		if n == 1 {
			// 第一条连接立即掐断，触发重连
			conn.Close()
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	m := NewManager("ws"+strings.TrimPrefix(srv.URL, "http"), "")
	defer m.Close()

	hookFired := make(chan struct{}, 1)
	m.OnReconnect(func() {
		select {
		case hookFired <- struct{}{}:
		default:
		}
	})

	// 触发惰性连接
	m.Subscribe("noop", func(json.RawMessage) {})

	select {
	case <-hookFired:
	case <-time.After(5 * time.Second):
		t.Fatal("断线重连后钩子未触发")
	}
}
