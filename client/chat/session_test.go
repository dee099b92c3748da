package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"ShopPulse/client/api"
	"ShopPulse/client/push"

	"github.com/gorilla/websocket"
)

func writeOK(w http.ResponseWriter, data interface{}) {
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    200,
		"message": "Success",
		"data":    data,
	})
}

// chatBackend 同时承担 REST 与 websocket 两个面
type chatBackend struct {
	mu        sync.Mutex
	openCalls int
	msgSeq    int
	upgrader  websocket.Upgrader
}

func (b *chatBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/conversations", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.openCalls++
		isNew := b.openCalls == 1
		b.mu.Unlock()
		writeOK(w, map[string]interface{}{
			"conversation_id": "C1",
			"is_new":          isNew,
			"state":           "open",
		})
	})
	mux.HandleFunc("/conversations/C1/messages", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		b.mu.Lock()
		b.msgSeq++
		id := b.msgSeq
		b.mu.Unlock()
		writeOK(w, Message{
			MessageId:      fmt.Sprintf("M%d", id),
			ConversationId: "C1",
			SenderType:     "USER",
			Content:        r.FormValue("content"),
			CreatedAt:      time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := b.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var env struct {
				Event string          `json:"event"`
				Data  json.RawMessage `json:"data"`
			}
			if json.Unmarshal(raw, &env) != nil || env.Event != "join_conversation" {
				continue
			}
			// 入房即回一次空历史快照，随后推一条新消息
			snapshot, _ := json.Marshal(map[string]interface{}{
				"event": "history.messages",
				"data":  []Message{},
			})
			_ = conn.WriteMessage(websocket.TextMessage, snapshot)
			newMsg, _ := json.Marshal(map[string]interface{}{
				"event": "message.new",
				"data": Message{
					MessageId:      "M-push",
					ConversationId: "C1",
					SenderType:     "STAFF",
					Content:        "hi",
				},
			})
			_ = conn.WriteMessage(websocket.TextMessage, newMsg)
		}
	})
	return mux
}

func newTestSession(t *testing.T) (*Session, *chatBackend) {
	t.Helper()
	backend := &chatBackend{}
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	mgr := push.NewManager(wsURL, "")
	t.Cleanup(mgr.Close)

	return NewSession(api.NewClient(srv.URL, "test-token"), mgr, false), backend
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestOpenIsIdempotent(t *testing.T) {
	s, backend := newTestSession(t)

	id1, err := s.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	id2, err := s.Open(context.Background())
	if err != nil {
		t.Fatalf("Open again: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("两次 Open 返回了不同会话: %s vs %s", id1, id2)
	}
	if s.State() != StateActive {
		t.Fatalf("期望 ACTIVE，得到 %s", s.State())
	}

	backend.mu.Lock()
	calls := backend.openCalls
	backend.mu.Unlock()
	if calls != 1 {
		t.Fatalf("已 ACTIVE 时不应重复创建，实际请求 %d 次", calls)
	}
}

func TestJoinReceivesHistoryThenNewMessage(t *testing.T) {
	s, _ := newTestSession(t)

	if _, err := s.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}

	waitFor(t, func() bool {
		msgs := s.Messages()
		return len(msgs) == 1 && msgs[0].Content == "hi"
	}, "未收到入房后的推送消息")
}

func TestSendEmptyDraftNeverHitsNetwork(t *testing.T) {
	// 指向不可达地址：若发起了网络请求，错误将不是 ErrEmptySend
	mgr := push.NewManager("ws://127.0.0.1:1/ws", "")
	defer mgr.Close()
	s := NewSession(api.NewClient("http://127.0.0.1:1", ""), mgr, false)
	s.mu.Lock()
	s.state = StateActive
	s.convID = "C1"
	s.mu.Unlock()

	s.SetDraftText("   ")
	if _, err := s.Send(context.Background()); !errors.Is(err, ErrEmptySend) {
		t.Fatalf("期望 ErrEmptySend，得到 %v", err)
	}
}

func TestStageFileCapAtFive(t *testing.T) {
	mgr := push.NewManager("ws://127.0.0.1:1/ws", "")
	defer mgr.Close()
	s := NewSession(api.NewClient("http://127.0.0.1:1", ""), mgr, false)

	for i := 0; i < MaxStagedFiles; i++ {
		if err := s.StageFile(StagedFile{Name: "f", Mime: "image/png"}); err != nil {
			t.Fatalf("第 %d 个附件不应失败: %v", i+1, err)
		}
	}
	if err := s.StageFile(StagedFile{Name: "f6"}); !errors.Is(err, ErrAttachmentFull) {
		t.Fatalf("第 6 个附件应被拒绝，得到 %v", err)
	}
}

func TestPushDuplicateDedupedById(t *testing.T) {
	mgr := push.NewManager("ws://127.0.0.1:1/ws", "")
	defer mgr.Close()
	s := NewSession(api.NewClient("http://127.0.0.1:1", ""), mgr, false)
	s.mu.Lock()
	s.convID = "C1"
	s.mu.Unlock()

	raw, _ := json.Marshal(Message{MessageId: "M1", ConversationId: "C1", Content: "hi"})
	s.onMessageNew(raw)
	s.onMessageNew(raw)

	if got := s.Messages(); len(got) != 1 {
		t.Fatalf("同一消息出现了 %d 次", len(got))
	}
}

func TestHistoryMergeKeepsPushedTail(t *testing.T) {
	mgr := push.NewManager("ws://127.0.0.1:1/ws", "")
	defer mgr.Close()
	s := NewSession(api.NewClient("http://127.0.0.1:1", ""), mgr, false)
	s.mu.Lock()
	s.convID = "C1"
	s.mu.Unlock()

	// 快照到达前已有一条推送消息
	pushed, _ := json.Marshal(Message{MessageId: "M3", ConversationId: "C1", Content: "late"})
	s.onMessageNew(pushed)

	snapshot, _ := json.Marshal([]Message{
		{MessageId: "M1", ConversationId: "C1"},
		{MessageId: "M2", ConversationId: "C1"},
	})
	s.onHistory(snapshot)

	got := s.Messages()
	if len(got) != 3 {
		t.Fatalf("期望合并后 3 条，得到 %d", len(got))
	}
	if got[0].MessageId != "M1" || got[2].MessageId != "M3" {
		t.Fatalf("顺序错误: %+v", got)
	}
}

func TestHistorySnapshotForOtherConversationIgnored(t *testing.T) {
	mgr := push.NewManager("ws://127.0.0.1:1/ws", "")
	defer mgr.Close()

	// 两个会话共用同一条推送通道，快照只能落到属于它的会话里
	a := NewSession(api.NewClient("http://127.0.0.1:1", ""), mgr, false)
	a.mu.Lock()
	a.convID = "C-A"
	a.mu.Unlock()
	b := NewSession(api.NewClient("http://127.0.0.1:1", ""), mgr, true)
	b.mu.Lock()
	b.convID = "C-B"
	b.mu.Unlock()

	pushed, _ := json.Marshal(Message{MessageId: "MB1", ConversationId: "C-B", Content: "b-hello"})
	b.onMessageNew(pushed)

	snapshot, _ := json.Marshal([]Message{
		{MessageId: "MA1", ConversationId: "C-A", Content: "a-hi"},
	})
	a.onHistory(snapshot)
	b.onHistory(snapshot)

	if got := a.Messages(); len(got) != 1 || got[0].MessageId != "MA1" {
		t.Fatalf("所属会话应接受快照: %+v", got)
	}
	got := b.Messages()
	if len(got) != 1 || got[0].MessageId != "MB1" {
		t.Fatalf("别的会话的快照不应进入本会话: %+v", got)
	}
}

func TestSendAppendsAndClearsDraft(t *testing.T) {
	s, _ := newTestSession(t)
	if _, err := s.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}

	s.SetDraftText("你好")
	msg, err := s.Send(context.Background())
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if msg.Content != "你好" {
		t.Fatalf("回包内容错误: %s", msg.Content)
	}

	found := false
	for _, m := range s.Messages() {
		if m.MessageId == msg.MessageId {
			found = true
		}
	}
	if !found {
		t.Fatal("发送成功后消息应已入列")
	}

	s.mu.Lock()
	empty := s.draftText == "" && len(s.draftFiles) == 0
	s.mu.Unlock()
	if !empty {
		t.Fatal("发送成功后草稿应被清空")
	}
}
