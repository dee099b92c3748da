package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"ShopPulse/client/api"
)

func writeOK(w http.ResponseWriter, data interface{}) {
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    200,
		"message": "Success",
		"data":    data,
	})
}

func writeErr(w http.ResponseWriter) {
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    500,
		"message": "系统错误，请联系工作人员",
	})
}

// fakeBackend 内存版通知服务端
type fakeBackend struct {
	mu    sync.Mutex
	items []Notification
}

func (f *fakeBackend) unread() int64 {
	var n int64
	for _, it := range f.items {
		if !it.IsRead {
			n++
		}
	}
	return n
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/notifications/unread-count", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeOK(w, map[string]int64{"unreadCount": f.unread()})
	})
	mux.HandleFunc("/notifications/read-all", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var n int64
		for i := range f.items {
			if !f.items[i].IsRead {
				f.items[i].IsRead = true
				n++
			}
		}
		writeOK(w, map[string]interface{}{"message": "所有通知已标记为已读", "modifiedCount": n})
	})
	mux.HandleFunc("/notifications", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeOK(w, map[string]interface{}{
			"notifications": f.items,
			"total":         len(f.items),
			"page":          1,
			"limit":         10,
			"totalPages":    1,
			"unreadCount":   f.unread(),
		})
	})
	mux.HandleFunc("/notifications/", func(w http.ResponseWriter, r *http.Request) {
		// PATCH /notifications/:id/read
		f.mu.Lock()
		defer f.mu.Unlock()
		id := r.URL.Path[len("/notifications/"):]
		if len(id) > len("/read") && id[len(id)-len("/read"):] == "/read" {
			id = id[:len(id)-len("/read")]
		}
		for i := range f.items {
			if f.items[i].NotificationId == id {
				f.items[i].IsRead = true
			}
		}
		writeOK(w, nil)
	})
	return mux
}

func newStore(t *testing.T, backend http.Handler) (*Store, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	return NewStore(api.NewClient(srv.URL, "test-token"), nil, nil, RoleCustomer), srv
}

func TestUnreadCountScenario(t *testing.T) {
	backend := &fakeBackend{items: []Notification{
		{NotificationId: "n1", Title: "t1"},
		{NotificationId: "n2", Title: "t2"},
		{NotificationId: "n3", Title: "t3"},
	}}
	store, _ := newStore(t, backend.handler())
	ctx := context.Background()

	if got := store.UnreadCount(ctx); got != 3 {
		t.Fatalf("期望未读 3，得到 %d", got)
	}

	store.MarkRead(ctx, "n1")

	if got := store.UnreadCount(ctx); got != 2 {
		t.Fatalf("标记 n1 已读后期望未读 2，得到 %d", got)
	}
}

func TestMarkAllReadCountsActualFlips(t *testing.T) {
	backend := &fakeBackend{items: []Notification{
		{NotificationId: "n1"},
		{NotificationId: "n2"},
		{NotificationId: "n3", IsRead: true},
	}}
	store, _ := newStore(t, backend.handler())
	ctx := context.Background()

	if err := store.FetchPage(ctx, 1, 10); err != nil {
		t.Fatalf("FetchPage: %v", err)
	}

	modified := store.MarkAllRead(ctx)
	if modified != 2 {
		t.Fatalf("期望翻转 2 条，得到 %d", modified)
	}
	if got := store.Unread(); got != 0 {
		t.Fatalf("全部已读后未读应为 0，得到 %d", got)
	}
	for _, it := range store.Items() {
		if !it.IsRead {
			t.Fatalf("仍有未读项: %s", it.NotificationId)
		}
	}
}

func TestStaffMarkAllReadUsesPerItemEndpoint(t *testing.T) {
	var mu sync.Mutex
	readAllHits := 0
	readIds := map[string]bool{}

	mux := http.NewServeMux()
	mux.HandleFunc("/notifications/read-all", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		readAllHits++
		mu.Unlock()
		writeOK(w, map[string]interface{}{"message": "所有通知已标记为已读", "modifiedCount": 0})
	})
	mux.HandleFunc("/notifications/staff", func(w http.ResponseWriter, r *http.Request) {
		writeOK(w, map[string]interface{}{
			"notifications": []Notification{{NotificationId: "s1"}, {NotificationId: "s2"}},
			"total":         2,
			"unreadCount":   2,
		})
	})
	mux.HandleFunc("/notifications/staff/", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[len("/notifications/staff/"):]
		if len(id) > len("/read") && id[len(id)-len("/read"):] == "/read" {
			mu.Lock()
			readIds[id[:len(id)-len("/read")]] = true
			mu.Unlock()
		}
		writeOK(w, nil)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	store := NewStore(api.NewClient(srv.URL, "test-token"), nil, nil, RoleStaff)
	ctx := context.Background()

	if err := store.FetchPage(ctx, 1, 10); err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if got := store.MarkAllRead(ctx); got != 2 {
		t.Fatalf("期望翻转 2 条，得到 %d", got)
	}
	if got := store.Unread(); got != 0 {
		t.Fatalf("全部已读后未读应为 0，得到 %d", got)
	}

	mu.Lock()
	defer mu.Unlock()
	if readAllHits != 0 {
		t.Fatal("员工视图不应调用顾客侧的 read-all 端点")
	}
	if !readIds["s1"] || !readIds["s2"] {
		t.Fatalf("翻转过的项应逐条上报: %v", readIds)
	}
}

func TestUnreadCountDegradesToZero(t *testing.T) {
	fail := false
	backend := &fakeBackend{items: []Notification{{NotificationId: "n1"}}}
	base := backend.handler()
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail && r.URL.Path == "/notifications/unread-count" {
			writeErr(w)
			return
		}
		base.ServeHTTP(w, r)
	})
	store, _ := newStore(t, h)
	ctx := context.Background()

	if got := store.UnreadCount(ctx); got != 1 {
		t.Fatalf("期望未读 1，得到 %d", got)
	}

	fail = true
	if got := store.UnreadCount(ctx); got != 0 {
		t.Fatalf("失败时角标必须降级为 0，得到 %d", got)
	}
	if got := store.Unread(); got != 0 {
		t.Fatalf("缓存值也应归零，得到 %d", got)
	}
}

func TestFetchPageReplaceAndAppendDedup(t *testing.T) {
	pages := map[string][]Notification{
		"1": {{NotificationId: "a"}, {NotificationId: "b"}},
		"2": {{NotificationId: "b"}, {NotificationId: "c"}},
	}
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		items := pages[r.URL.Query().Get("page")]
		writeOK(w, map[string]interface{}{
			"notifications": items,
			"total":         3,
			"unreadCount":   3,
		})
	})
	store, _ := newStore(t, h)
	ctx := context.Background()

	if err := store.FetchPage(ctx, 1, 2); err != nil {
		t.Fatalf("FetchPage(1): %v", err)
	}
	if err := store.FetchPage(ctx, 2, 2); err != nil {
		t.Fatalf("FetchPage(2): %v", err)
	}

	got := store.Items()
	if len(got) != 3 {
		t.Fatalf("追加去重后期望 3 条，得到 %d", len(got))
	}

	// 第 1 页整体替换
	pages["1"] = []Notification{{NotificationId: "x"}}
	if err := store.FetchPage(ctx, 1, 2); err != nil {
		t.Fatalf("FetchPage(1) again: %v", err)
	}
	got = store.Items()
	if len(got) != 1 || got[0].NotificationId != "x" {
		t.Fatalf("第 1 页应替换缓存，得到 %+v", got)
	}
}

func TestStaleListResponseDiscarded(t *testing.T) {
	release := make(chan struct{})
	arrived := make(chan struct{})
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			close(arrived)
			<-release
			writeOK(w, map[string]interface{}{
				"notifications": []Notification{{NotificationId: "n1", IsRead: false}},
				"unreadCount":   1,
			})
			return
		}
		writeOK(w, nil)
	})
	store, _ := newStore(t, h)
	ctx := context.Background()

	store.mu.Lock()
	store.items = []Notification{{NotificationId: "n1"}}
	store.unread = 1
	store.mu.Unlock()

	done := make(chan error)
	go func() { done <- store.FetchPage(ctx, 1, 10) }()

	<-arrived
	// 响应在途期间用户标记了已读
	store.MarkRead(ctx, "n1")
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("FetchPage: %v", err)
	}

	got := store.Items()
	if len(got) != 1 || !got[0].IsRead {
		t.Fatalf("迟到的响应不应覆盖更新的本地状态: %+v", got)
	}
	if store.Unread() != 0 {
		t.Fatalf("未读数被迟到响应覆盖: %d", store.Unread())
	}
}

func TestDeleteWaitsForConfirmation(t *testing.T) {
	fail := true
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			if fail {
				writeErr(w)
			} else {
				writeOK(w, nil)
			}
			return
		}
		writeOK(w, nil)
	})
	store, _ := newStore(t, h)
	ctx := context.Background()

	store.mu.Lock()
	store.items = []Notification{{NotificationId: "n1"}}
	store.unread = 1
	store.mu.Unlock()

	if err := store.Delete(ctx, "n1"); err == nil {
		t.Fatal("服务端失败时 Delete 应返回错误")
	}
	if len(store.Items()) != 1 {
		t.Fatal("未确认前不得从缓存移除")
	}

	fail = false
	if err := store.Delete(ctx, "n1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(store.Items()) != 0 {
		t.Fatal("确认后应从缓存移除")
	}
}

func TestReconciliationLoopStopsOnCancel(t *testing.T) {
	backend := &fakeBackend{}
	store, _ := newStore(t, backend.handler())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.RunReconciliation(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("取消后对账循环未退出")
	}
}
