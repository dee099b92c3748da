// Package chat 客服会话的客户端状态机：
// NONE → CREATING → ACTIVE。会话创建是幂等的，消息顺序以服务端
// 推送顺序为准，客户端只按 id 去重追加，从不重排。
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"strings"
	"sync"

	"ShopPulse/client/api"
	"ShopPulse/client/push"
	"ShopPulse/pkg/zlog"
)

// 会话状态
const (
	StateNone     = "NONE"
	StateCreating = "CREATING"
	StateActive   = "ACTIVE"
)

// MaxStagedFiles 单条消息可携带的附件上限
const MaxStagedFiles = 5

var (
	ErrEmptySend      = errors.New("消息内容和附件不能同时为空")
	ErrAttachmentFull = errors.New("单条消息最多携带 5 个附件")
	ErrNotActive      = errors.New("会话尚未建立")
)

type Attachment struct {
	Url  string `json:"url"`
	Kind string `json:"kind"`
	Name string `json:"name"`
	Size int64  `json:"size"`
	Mime string `json:"mime"`
}

type Message struct {
	MessageId      string       `json:"message_id"`
	ConversationId string       `json:"conversation_id"`
	SenderType     string       `json:"sender_type"`
	SenderId       string       `json:"sender_id"`
	Content        string       `json:"content"`
	Attachments    []Attachment `json:"attachments"`
	IsRead         bool         `json:"is_read"`
	CreatedAt      string       `json:"created_at"`
}

// StagedFile 暂存在草稿里的待发附件
type StagedFile struct {
	Name string
	Mime string
	Data []byte
}

type openRespond struct {
	ConversationId string `json:"conversation_id"`
	IsNew          bool   `json:"is_new"`
	State          string `json:"state"`
}

type joinPayload struct {
	ConversationId string `json:"conversation_id"`
}

type Session struct {
	api   *api.Client
	push  *push.Manager
	staff bool

	mu         sync.Mutex
	state      string
	convID     string
	messages   []Message
	seen       map[string]struct{}
	draftText  string
	draftFiles []StagedFile
	subs       []*push.Subscription
	hooked     bool
}

func NewSession(apiClient *api.Client, pushMgr *push.Manager, staff bool) *Session {
	return &Session{
		api:   apiClient,
		push:  pushMgr,
		staff: staff,
		state: StateNone,
		seen:  make(map[string]struct{}),
	}
}

func (s *Session) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.convID
}

// Open 建立会话：幂等创建后入房，等待一次历史快照。
// 已经 ACTIVE 时直接返回现有会话 id。
func (s *Session) Open(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.state == StateActive {
		id := s.convID
		s.mu.Unlock()
		return id, nil
	}
	if s.state == StateCreating {
		s.mu.Unlock()
		return "", errors.New("会话正在建立中")
	}
	s.state = StateCreating
	s.mu.Unlock()

	var resp openRespond
	if err := s.api.PostJSON(ctx, "/conversations", map[string]string{}, &resp); err != nil {
		s.mu.Lock()
		s.state = StateNone
		s.mu.Unlock()
		return "", err
	}

	s.mu.Lock()
	s.convID = resp.ConversationId
	// 先订阅再入房，避免漏掉紧跟入房的快照
	if len(s.subs) == 0 {
		s.subs = append(s.subs,
			s.push.Subscribe("history.messages", s.onHistory),
			s.push.Subscribe("message.new", s.onMessageNew),
		)
	}
	if !s.hooked {
		s.hooked = true
		// 重连后房间成员关系不保证还在，必须重新入房
		s.push.OnReconnect(s.rejoin)
	}
	s.state = StateActive
	s.mu.Unlock()

	_ = s.push.Emit("join_conversation", joinPayload{ConversationId: resp.ConversationId})
	return resp.ConversationId, nil
}

func (s *Session) rejoin() {
	s.mu.Lock()
	id := s.convID
	active := s.state == StateActive
	s.mu.Unlock()
	if active && id != "" {
		_ = s.push.Emit("join_conversation", joinPayload{ConversationId: id})
	}
}

// onHistory 入房后的一次性快照：以快照为基底，
// 把快照之后已经推送到本地的消息保留在尾部。
func (s *Session) onHistory(payload json.RawMessage) {
	var snapshot []Message
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		zlog.Warn("历史快照载荷不合法: " + err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// 推送通道是全局共享的，别的会话入房时的快照也会经过这里
	if len(snapshot) > 0 && snapshot[0].ConversationId != s.convID {
		return
	}

	seen := make(map[string]struct{}, len(snapshot))
	merged := make([]Message, 0, len(snapshot)+len(s.messages))
	for _, m := range snapshot {
		if _, ok := seen[m.MessageId]; ok {
			continue
		}
		seen[m.MessageId] = struct{}{}
		merged = append(merged, m)
	}
	for _, m := range s.messages {
		if _, ok := seen[m.MessageId]; ok {
			continue
		}
		seen[m.MessageId] = struct{}{}
		merged = append(merged, m)
	}
	s.messages = merged
	s.seen = seen
}

func (s *Session) onMessageNew(payload json.RawMessage) {
	var m Message
	if err := json.Unmarshal(payload, &m); err != nil {
		zlog.Warn("消息推送载荷不合法: " + err.Error())
		return
	}
	s.appendMessage(m)
}

// appendMessage 按 id 去重后追加到尾部
func (s *Session) appendMessage(m Message) {
	if m.MessageId == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[m.MessageId]; ok {
		return
	}
	if m.ConversationId != "" && s.convID != "" && m.ConversationId != s.convID {
		return
	}
	s.seen[m.MessageId] = struct{}{}
	s.messages = append(s.messages, m)
}

// Messages 返回当前消息列表的副本
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// SetDraftText 更新草稿文本
func (s *Session) SetDraftText(text string) {
	s.mu.Lock()
	s.draftText = text
	s.mu.Unlock()
}

// StageFile 暂存一个附件，超过上限直接拒绝
func (s *Session) StageFile(f StagedFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.draftFiles) >= MaxStagedFiles {
		return ErrAttachmentFull
	}
	s.draftFiles = append(s.draftFiles, f)
	return nil
}

// ClearDraft 清空草稿（发送成功或切换会话时调用）
func (s *Session) ClearDraft() {
	s.mu.Lock()
	s.draftText = ""
	s.draftFiles = nil
	s.mu.Unlock()
}

// Send 把草稿打包成一次 multipart 请求发出。
// 空文本且零附件在发起网络请求之前就被拒绝。
func (s *Session) Send(ctx context.Context) (*Message, error) {
	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return nil, ErrNotActive
	}
	convID := s.convID
	text := strings.TrimSpace(s.draftText)
	files := append([]StagedFile{}, s.draftFiles...)
	s.mu.Unlock()

	if text == "" && len(files) == 0 {
		return nil, ErrEmptySend
	}
	if len(files) > MaxStagedFiles {
		files = files[:MaxStagedFiles]
	}

	body, contentType, err := buildMultipart(text, files)
	if err != nil {
		return nil, err
	}

	path := "/conversations/" + convID + "/messages"
	if s.staff {
		path += "/staff"
	}

	var msg Message
	if err := s.api.PostRaw(ctx, path, contentType, body, &msg); err != nil {
		zlog.Warn("发送消息失败: " + err.Error())
		return nil, err
	}

	// 房间推送会把同一条消息再送回来，这里先追加，推送到达时按 id 去重
	s.appendMessage(msg)
	s.ClearDraft()
	return &msg, nil
}

func buildMultipart(text string, files []StagedFile) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	if text != "" {
		if err := w.WriteField("content", text); err != nil {
			return nil, "", err
		}
	}
	for _, f := range files {
		part, err := w.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

// Close 退订推送并复位状态
func (s *Session) Close() {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.state = StateNone
	s.convID = ""
	s.messages = nil
	s.seen = make(map[string]struct{})
	s.draftText = ""
	s.draftFiles = nil
	s.mu.Unlock()

	for _, sub := range subs {
		s.push.Unsubscribe(sub)
	}
}
