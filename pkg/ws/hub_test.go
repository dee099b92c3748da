package ws

import (
	"encoding/json"
	"sync"
	"testing"
)

func recvEnvelope(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case raw := <-c.send:
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("解包失败: %v", err)
		}
		return env
	default:
		t.Fatal("没有收到任何消息")
	}
	return Envelope{}
}

func TestSendEventReachesAllUserConnections(t *testing.T) {
	hub := NewHub()
	c1 := NewClient("u1", nil)
	c2 := NewClient("u1", nil)
	hub.Register(c1)
	hub.Register(c2)

	if err := hub.SendEvent("u1", "notification:new", map[string]string{"title": "hi"}); err != nil {
		t.Fatalf("SendEvent: %v", err)
	}

	for _, c := range []*Client{c1, c2} {
		env := recvEnvelope(t, c)
		if env.Event != "notification:new" {
			t.Fatalf("事件名错误: %s", env.Event)
		}
	}
}

func TestSendEventToOtherUserNotDelivered(t *testing.T) {
	hub := NewHub()
	c := NewClient("u1", nil)
	hub.Register(c)

	if err := hub.SendEvent("u2", "notification:new", nil); err != nil {
		t.Fatalf("SendEvent: %v", err)
	}
	select {
	case <-c.send:
		t.Fatal("不应收到他人的事件")
	default:
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	hub := NewHub()
	c := NewClient("u1", nil)
	hub.Register(c)

	hub.Join(c, "C1")
	hub.Join(c, "C1")

	if err := hub.SendToRoom("C1", "message.new", map[string]string{"content": "hi"}); err != nil {
		t.Fatalf("SendToRoom: %v", err)
	}

	recvEnvelope(t, c)
	select {
	case <-c.send:
		t.Fatal("重复入房不应导致重复投递")
	default:
	}
}

func TestUnregisterLeavesRooms(t *testing.T) {
	hub := NewHub()
	c := NewClient("u1", nil)
	hub.Register(c)
	hub.Join(c, "C1")
	hub.Unregister(c)

	if err := hub.SendToRoom("C1", "message.new", nil); err != nil {
		t.Fatalf("SendToRoom: %v", err)
	}

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	if len(hub.rooms) != 0 {
		t.Fatal("注销后房间应被清空")
	}
	if len(hub.clients) != 0 {
		t.Fatal("注销后用户连接应被清空")
	}
}

func TestSendAfterCloseDoesNotPanic(t *testing.T) {
	hub := NewHub()
	c := NewClient("u1", nil)
	hub.Register(c)

	c.Close()
	if err := hub.SendEvent("u1", "notification:new", nil); err != nil {
		t.Fatalf("SendEvent: %v", err)
	}

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	if len(hub.clients) != 0 {
		t.Fatal("向已关闭连接投递后应将其移除")
	}
}

func TestConcurrentSendAndUnregister(t *testing.T) {
	hub := NewHub()
	clients := make([]*Client, 16)
	for i := range clients {
		clients[i] = NewClient("u1", nil)
		hub.Register(clients[i])
		hub.Join(clients[i], "C1")
	}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_ = hub.SendEvent("u1", "notification:new", nil)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_ = hub.SendToRoom("C1", "message.new", nil)
		}
	}()
	go func() {
		defer wg.Done()
		for _, c := range clients {
			hub.Unregister(c)
		}
	}()
	wg.Wait()
}

func TestSlowClientIsDropped(t *testing.T) {
	hub := NewHub()
	c := NewClient("u1", nil)
	hub.Register(c)

	// 填满发送缓冲
	for i := 0; i < cap(c.send); i++ {
		c.send <- []byte("{}")
	}
	_ = hub.SendEvent("u1", "notification:new", nil)

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	if len(hub.clients) != 0 {
		t.Fatal("缓冲满的连接应被移除")
	}
}
