package ws

import (
	"encoding/json"
	"sync"
	"time"

	"ShopPulse/pkg/zlog"

	"github.com/gorilla/websocket"
)

// Envelope 服务端推送事件的统一外层结构
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Hub 按用户维度管理连接，按会话维度管理房间。
// 一个用户可以有多个并发连接（多标签页），每个连接可加入多个会话房间。
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		rooms:   make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(c *Client) {
	if c == nil || c.userID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[c.userID]
	if set == nil {
		set = make(map[*Client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) Unregister(c *Client) {
	if c == nil || c.userID == "" {
		return
	}
	h.mu.Lock()
	set := h.clients[c.userID]
	if set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.userID)
		}
	}
	// 离开所有已加入的房间
	for room := range c.rooms {
		members := h.rooms[room]
		if members != nil {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	h.mu.Unlock()
	c.Close()
}

// Join 将连接加入会话房间，重复加入是幂等的
func (h *Hub) Join(c *Client, room string) {
	if c == nil || room == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	members := h.rooms[room]
	if members == nil {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

// snapshot 在读锁内拷贝集合，发送阶段不持锁
func snapshot(set map[*Client]struct{}) []*Client {
	out := make([]*Client, 0, len(set))
	for c := range set {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

func (h *Hub) send(targets []*Client, payload []byte) {
	for _, c := range targets {
		if !c.trySend(payload) {
			// 已关闭或发送缓冲满，视为僵尸连接
			h.Unregister(c)
		}
	}
}

// SendEvent 向某个用户的所有连接推送一个命名事件
func (h *Hub) SendEvent(userID string, event string, data interface{}) error {
	payload, err := marshalEnvelope(event, data)
	if err != nil {
		return err
	}

	h.mu.RLock()
	targets := snapshot(h.clients[userID])
	h.mu.RUnlock()
	h.send(targets, payload)
	return nil
}

// BroadcastEvent 向多个用户推送同一事件
func (h *Hub) BroadcastEvent(userIDs []string, event string, data interface{}) error {
	payload, err := marshalEnvelope(event, data)
	if err != nil {
		return err
	}
	for _, uid := range userIDs {
		h.mu.RLock()
		targets := snapshot(h.clients[uid])
		h.mu.RUnlock()
		h.send(targets, payload)
	}
	return nil
}

// SendToRoom 向会话房间内的所有连接推送事件
func (h *Hub) SendToRoom(room string, event string, data interface{}) error {
	payload, err := marshalEnvelope(event, data)
	if err != nil {
		return err
	}

	h.mu.RLock()
	targets := snapshot(h.rooms[room])
	h.mu.RUnlock()
	h.send(targets, payload)
	return nil
}

// SendEventTo 只向单个连接推送事件（如 join 后的历史快照）
func (h *Hub) SendEventTo(c *Client, event string, data interface{}) error {
	if c == nil {
		return nil
	}
	payload, err := marshalEnvelope(event, data)
	if err != nil {
		return err
	}
	if !c.trySend(payload) {
		h.Unregister(c)
	}
	return nil
}

func marshalEnvelope(event string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

type Client struct {
	userID string
	conn   *websocket.Conn
	send   chan []byte
	rooms  map[string]struct{}

	// mu 保护 closed 与 send 的关闭时序：
	// 并发的推送和注销绝不能撞上已关闭的 channel
	mu     sync.Mutex
	closed bool
}

func NewClient(userID string, conn *websocket.Conn) *Client {
	return &Client{
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, 64),
		rooms:  make(map[string]struct{}),
	}
}

func (c *Client) UserID() string {
	return c.userID
}

// trySend 非阻塞投递；连接已关闭或缓冲已满时返回 false
func (c *Client) trySend(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *Client) WritePump() {
	if c.conn == nil {
		return
	}
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			zlog.Error(err.Error())
			return
		}
	}
}
