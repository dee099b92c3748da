// Package aichat AI 购物助手的客户端会话：服务端完全无状态，
// 历史轮次保存在客户端内存里，每次提问整体重放，从不持久化。
package aichat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"ShopPulse/client/api"
	"ShopPulse/pkg/zlog"
)

// 轮次角色
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ApologyText 远端调用失败时补的固定道歉轮次。
// 会话绝不允许以用户的提问收尾。
const ApologyText = "抱歉，我暂时无法回答，请稍后再试。"

var ErrEmptyQuestion = errors.New("消息内容不能为空")

type Turn struct {
	Role string
	Text string
}

type chatRequest struct {
	Message string         `json:"message"`
	History []historyEntry `json:"history"`
	Image   string         `json:"image,omitempty"`
}

type historyEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRespond struct {
	Reply string `json:"reply"`
}

type Transcript struct {
	api *api.Client

	mu    sync.Mutex
	turns []Turn
}

func NewTranscript(apiClient *api.Client) *Transcript {
	return &Transcript{api: apiClient}
}

// Ask 发起一次提问：把已有轮次作为历史整体带上，最新一问最多附一张
// base64 图片。失败时恰好追加一条道歉轮次。
func (t *Transcript) Ask(ctx context.Context, question string, imageBase64 string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}

	t.mu.Lock()
	history := make([]historyEntry, 0, len(t.turns))
	for _, turn := range t.turns {
		role := "user"
		if turn.Role == RoleModel {
			role = "assistant"
		}
		history = append(history, historyEntry{Role: role, Content: turn.Text})
	}
	t.mu.Unlock()

	req := chatRequest{
		Message: question,
		History: history,
		Image:   imageBase64,
	}

	var resp chatRespond
	err := t.api.PostJSON(ctx, "/ai/chat", req, &resp)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.turns = append(t.turns, Turn{Role: RoleUser, Text: question})
	if err != nil {
		zlog.Warn("AI 问答失败: " + err.Error())
		t.turns = append(t.turns, Turn{Role: RoleModel, Text: ApologyText})
		return ApologyText, err
	}
	t.turns = append(t.turns, Turn{Role: RoleModel, Text: resp.Reply})
	return resp.Reply, nil
}

// Turns 返回会话轮次的副本
func (t *Transcript) Turns() []Turn {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Reset 清空会话历史
func (t *Transcript) Reset() {
	t.mu.Lock()
	t.turns = nil
	t.mu.Unlock()
}
