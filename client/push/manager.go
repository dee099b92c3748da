// Package push 维护与服务端的长连接：进程内只有一条连接，
// 所有订阅方共享；断线后自动退避重连，并回调挂载的重连钩子，
// 由订阅方自行重新入房并做一次全量对账。
package push

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"ShopPulse/pkg/zlog"

	"github.com/gorilla/websocket"
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 10 * time.Second

	reconnectMinDelay = time.Second
	reconnectMaxDelay = 30 * time.Second
)

// Handler 收到指定事件时被调用，payload 为事件的原始 JSON
type Handler func(payload json.RawMessage)

// Subscription 一次订阅的凭据，退订时原样传回
type Subscription struct {
	event   string
	handler Handler
}

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type Manager struct {
	url   string
	token string

	mu          sync.Mutex
	conn        *websocket.Conn
	started     bool
	closed      bool
	subs        map[string][]*Subscription
	onReconnect []func()
	sendCh      chan []byte
	done        chan struct{}
}

func NewManager(url string, token string) *Manager {
	return &Manager{
		url:    url,
		token:  token,
		subs:   make(map[string][]*Subscription),
		sendCh: make(chan []byte, 64),
		done:   make(chan struct{}),
	}
}

// Subscribe 注册事件处理器。连接是惰性建立的：首次订阅即触发连接。
func (m *Manager) Subscribe(event string, h Handler) *Subscription {
	sub := &Subscription{event: event, handler: h}
	m.mu.Lock()
	m.subs[event] = append(m.subs[event], sub)
	m.mu.Unlock()

	m.ensureStarted()
	return sub
}

// Unsubscribe 按订阅凭据退订，卸载视图时必须调用以免泄漏
func (m *Manager) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.subs[sub.event]
	for i, s := range list {
		if s == sub {
			m.subs[sub.event] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(m.subs[sub.event]) == 0 {
		delete(m.subs, sub.event)
	}
}

// OnReconnect 挂载重连钩子，连接重新建立后依次调用
func (m *Manager) OnReconnect(fn func()) {
	m.mu.Lock()
	m.onReconnect = append(m.onReconnect, fn)
	m.mu.Unlock()
}

// Emit 向服务端发送事件，发出即忘
func (m *Manager) Emit(event string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg, err := json.Marshal(envelope{Event: event, Data: raw})
	if err != nil {
		return err
	}

	m.ensureStarted()

	select {
	case m.sendCh <- msg:
	default:
		zlog.Warn("push 发送缓冲已满，事件被丢弃: " + event)
	}
	return nil
}

func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	conn := m.conn
	m.mu.Unlock()

	close(m.done)
	if conn != nil {
		_ = conn.Close()
	}
}

func (m *Manager) ensureStarted() {
	m.mu.Lock()
	if m.started || m.closed {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	go m.run()
}

// run 负责连接生命周期：拨号、收发、断线重连
func (m *Manager) run() {
	delay := reconnectMinDelay
	first := true

	for {
		select {
		case <-m.done:
			return
		default:
		}

		conn, err := m.dial()
		if err != nil {
			zlog.Warn("push 连接失败: " + err.Error())
			select {
			case <-m.done:
				return
			case <-time.After(delay):
			}
			if delay *= 2; delay > reconnectMaxDelay {
				delay = reconnectMaxDelay
			}
			continue
		}
		delay = reconnectMinDelay

		m.mu.Lock()
		m.conn = conn
		hooks := append([]func(){}, m.onReconnect...)
		m.mu.Unlock()

		// 首次连接不算重连，钩子只在断线恢复后触发
		if !first {
			for _, fn := range hooks {
				fn()
			}
		}
		first = false

		writerDone := make(chan struct{})
		go m.writeLoop(conn, writerDone)
		m.readLoop(conn)
		close(writerDone)

		m.mu.Lock()
		m.conn = nil
		closed := m.closed
		m.mu.Unlock()
		_ = conn.Close()
		if closed {
			return
		}
	}
}

func (m *Manager) dial() (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	header := http.Header{}
	url := m.url
	if m.token != "" {
		url += "?token=" + m.token
	}
	conn, _, err := dialer.Dial(url, header)
	return conn, err
}

func (m *Manager) writeLoop(conn *websocket.Conn, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-m.done:
			return
		case msg := <-m.sendCh:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				zlog.Warn("push 发送失败: " + err.Error())
				return
			}
		}
	}
}

func (m *Manager) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			m.mu.Lock()
			closed := m.closed
			m.mu.Unlock()
			if !closed {
				zlog.Warn("push 连接断开: " + err.Error())
			}
			return
		}
		m.dispatch(raw)
	}
}

// dispatch 解包事件并分发给该事件名下的所有订阅者。
// 未注册的事件只记日志，不做任何形状假设。
func (m *Manager) dispatch(raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		zlog.Warn("push 收到非法数据: " + err.Error())
		return
	}

	m.mu.Lock()
	list := append([]*Subscription{}, m.subs[env.Event]...)
	m.mu.Unlock()

	if len(list) == 0 {
		zlog.Debug("push 收到未订阅的事件: " + env.Event)
		return
	}
	for _, sub := range list {
		sub.handler(env.Data)
	}
}
