// Package notify 维护通知列表与未读角标的本地缓存：
// 推送到达即刷新，30 秒轮询兜底，读写操作先改本地再上报。
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"ShopPulse/client/api"
	"ShopPulse/client/popup"
	"ShopPulse/client/push"
	"ShopPulse/pkg/zlog"
)

// 角色视图：顾客与员工看到的是同一通知域的两个投影
const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
)

// ReconcileInterval 轮询对账周期
const ReconcileInterval = 30 * time.Second

const defaultPageSize = 10

type Notification struct {
	NotificationId string `json:"notificationId"`
	Actor          string `json:"actor"`
	Type           string `json:"type"`
	Title          string `json:"title"`
	Message        string `json:"message"`
	Link           string `json:"link,omitempty"`
	IsRead         bool   `json:"isRead"`
	CreatedAt      string `json:"createdAt"`
}

type listRespond struct {
	Notifications []Notification `json:"notifications"`
	Total         int64          `json:"total"`
	Page          int            `json:"page"`
	Limit         int            `json:"limit"`
	TotalPages    int            `json:"totalPages"`
	UnreadCount   int64          `json:"unreadCount"`
}

type unreadRespond struct {
	UnreadCount int64 `json:"unreadCount"`
}

type markAllReadRespond struct {
	Message       string `json:"message"`
	ModifiedCount int64  `json:"modifiedCount"`
}

type unreadCountPush struct {
	Count int64 `json:"count"`
}

type notificationPush struct {
	NotificationId string `json:"notificationId"`
	Type           string `json:"type"`
	Title          string `json:"title"`
	Message        string `json:"message"`
}

type Store struct {
	api  *api.Client
	push *push.Manager
	pops *popup.Dispatcher
	role string

	mu          sync.Mutex
	items       []Notification
	total       int64
	unread      int64
	listVisible bool
	// 每次本地状态被替换或修改时递增，迟到的旧响应据此丢弃
	gen uint64

	subs []*push.Subscription
}

func NewStore(apiClient *api.Client, pushMgr *push.Manager, pops *popup.Dispatcher, role string) *Store {
	if role != RoleStaff {
		role = RoleCustomer
	}
	return &Store{
		api:  apiClient,
		push: pushMgr,
		pops: pops,
		role: role,
	}
}

func (s *Store) listPath() string {
	if s.role == RoleStaff {
		return "/notifications/staff"
	}
	return "/notifications"
}

func (s *Store) unreadPath() string {
	if s.role == RoleStaff {
		return "/notifications/staff/unread-count"
	}
	return "/notifications/unread-count"
}

func (s *Store) markReadPath(id string) string {
	if s.role == RoleStaff {
		return "/notifications/staff/" + id + "/read"
	}
	return "/notifications/" + id + "/read"
}

// FetchPage 拉取一页通知。第 1 页整体替换缓存，后续页按 id 去重追加；
// 拉取失败保留旧缓存不动。
func (s *Store) FetchPage(ctx context.Context, page int, pageSize int) error {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	var resp listRespond
	path := fmt.Sprintf("%s?page=%d&limit=%d", s.listPath(), page, pageSize)
	if err := s.api.Get(ctx, path, &resp); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		// 响应在途期间本地状态已变，丢弃以免覆盖更新的数据
		return nil
	}

	if page == 1 {
		s.items = resp.Notifications
		s.gen++
	} else {
		seen := make(map[string]struct{}, len(s.items))
		for _, n := range s.items {
			seen[n.NotificationId] = struct{}{}
		}
		for _, n := range resp.Notifications {
			if _, ok := seen[n.NotificationId]; ok {
				continue
			}
			s.items = append(s.items, n)
		}
	}
	s.total = resp.Total
	s.unread = resp.UnreadCount
	return nil
}

// UnreadCount 拉取未读数。任何失败都降级为 0：角标绝不阻塞外层界面。
func (s *Store) UnreadCount(ctx context.Context) int64 {
	var resp unreadRespond
	if err := s.api.Get(ctx, s.unreadPath(), &resp); err != nil {
		zlog.Warn("拉取未读数失败: " + err.Error())
		s.mu.Lock()
		s.unread = 0
		s.mu.Unlock()
		return 0
	}
	s.mu.Lock()
	s.unread = resp.UnreadCount
	s.mu.Unlock()
	return resp.UnreadCount
}

// MarkRead 乐观更新：先翻本地再上报，失败只记日志，等下次对账自愈
func (s *Store) MarkRead(ctx context.Context, id string) {
	s.mu.Lock()
	for i := range s.items {
		if s.items[i].NotificationId == id && !s.items[i].IsRead {
			s.items[i].IsRead = true
			if s.unread > 0 {
				s.unread--
			}
			s.gen++
			break
		}
	}
	s.mu.Unlock()

	if err := s.api.Patch(ctx, s.markReadPath(id), nil); err != nil {
		zlog.Warn("标记已读失败: " + err.Error())
	}
}

// MarkAllRead 翻转本地全部未读项，角标按实际翻转条数扣减；
// 服务端确认后以 modifiedCount 校正。
// read-all 端点只作用于顾客侧，员工视图逐条上报翻转过的项。
func (s *Store) MarkAllRead(ctx context.Context) int64 {
	s.mu.Lock()
	before := s.unread
	var flipped int64
	var flippedIds []string
	for i := range s.items {
		if !s.items[i].IsRead {
			s.items[i].IsRead = true
			flipped++
			flippedIds = append(flippedIds, s.items[i].NotificationId)
		}
	}
	s.unread = before - flipped
	if s.unread < 0 {
		s.unread = 0
	}
	s.gen++
	s.mu.Unlock()

	if s.role == RoleStaff {
		for _, id := range flippedIds {
			if err := s.api.Patch(ctx, s.markReadPath(id), nil); err != nil {
				zlog.Warn("标记已读失败: " + err.Error())
			}
		}
		return flipped
	}

	var resp markAllReadRespond
	if err := s.api.Patch(ctx, "/notifications/read-all", &resp); err != nil {
		zlog.Warn("全部已读失败: " + err.Error())
		return flipped
	}

	s.mu.Lock()
	s.unread = before - resp.ModifiedCount
	if s.unread < 0 {
		s.unread = 0
	}
	s.mu.Unlock()
	return resp.ModifiedCount
}

// Hide 软移除：从默认视图摘掉但不删除，同样是乐观更新
func (s *Store) Hide(ctx context.Context, id string) {
	s.mu.Lock()
	for i := range s.items {
		if s.items[i].NotificationId == id {
			if !s.items[i].IsRead && s.unread > 0 {
				s.unread--
			}
			s.items = append(s.items[:i], s.items[i+1:]...)
			s.gen++
			break
		}
	}
	s.mu.Unlock()

	if err := s.api.Patch(ctx, "/notifications/"+id+"/hide", nil); err != nil {
		zlog.Warn("隐藏通知失败: " + err.Error())
	}
}

// Delete 删除不可逆，必须等服务端确认后才从缓存移除
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.api.Delete(ctx, "/notifications/"+id, nil); err != nil {
		return err
	}

	s.mu.Lock()
	for i := range s.items {
		if s.items[i].NotificationId == id {
			if !s.items[i].IsRead && s.unread > 0 {
				s.unread--
			}
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	if s.total > 0 {
		s.total--
	}
	s.gen++
	s.mu.Unlock()
	return nil
}

// DeleteAll 同样是确认后清空
func (s *Store) DeleteAll(ctx context.Context) error {
	if err := s.api.Delete(ctx, "/notifications", nil); err != nil {
		return err
	}

	s.mu.Lock()
	s.items = nil
	s.total = 0
	s.unread = 0
	s.gen++
	s.mu.Unlock()
	return nil
}

// Bind 订阅推送事件并挂载重连钩子。
// 新通知到达：有标题先弹窗，然后全量重拉第一页和未读数。
func (s *Store) Bind() {
	newNotif := func(event string) push.Handler {
		return func(payload json.RawMessage) {
			var p notificationPush
			if err := json.Unmarshal(payload, &p); err != nil {
				zlog.Warn("通知推送载荷不合法: " + err.Error())
				return
			}
			if s.pops != nil && p.Title != "" {
				s.pops.DispatchEvent(event, p.Title, p.Message)
			}
			go s.reconcile(context.Background())
		}
	}

	events := []string{"notification:new", "notification:comment-reply"}
	if s.role == RoleStaff {
		events = append(events, "staff:new-order")
	} else {
		events = append(events, "order:status-updated")
	}
	for _, ev := range events {
		s.subs = append(s.subs, s.push.Subscribe(ev, newNotif(ev)))
	}

	s.subs = append(s.subs, s.push.Subscribe("notification:unread-count", func(payload json.RawMessage) {
		var p unreadCountPush
		if err := json.Unmarshal(payload, &p); err != nil {
			zlog.Warn("未读数推送载荷不合法: " + err.Error())
			return
		}
		s.mu.Lock()
		s.unread = p.Count
		s.mu.Unlock()
	}))

	// 重连后推送可能有遗漏，强制做一次全量对账
	s.push.OnReconnect(func() {
		go s.reconcile(context.Background())
	})
}

// Unbind 卸载时退订全部推送事件
func (s *Store) Unbind() {
	for _, sub := range s.subs {
		s.push.Unsubscribe(sub)
	}
	s.subs = nil
}

// RunReconciliation 每 30 秒对账一次，ctx 取消后退出。
// 列表不可见时只刷未读数。
func (s *Store) RunReconciliation(ctx context.Context) {
	ticker := time.NewTicker(ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.UnreadCount(ctx)
			s.mu.Lock()
			visible := s.listVisible
			s.mu.Unlock()
			if visible {
				if err := s.FetchPage(ctx, 1, defaultPageSize); err != nil {
					zlog.Warn("对账拉取通知列表失败: " + err.Error())
				}
			}
		}
	}
}

func (s *Store) reconcile(ctx context.Context) {
	if err := s.FetchPage(ctx, 1, defaultPageSize); err != nil {
		zlog.Warn("刷新通知列表失败: " + err.Error())
	}
	s.UnreadCount(ctx)
}

func (s *Store) SetListVisible(visible bool) {
	s.mu.Lock()
	s.listVisible = visible
	s.mu.Unlock()
}

// Items 返回缓存列表的副本
func (s *Store) Items() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Unread() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

func (s *Store) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}
