package service

import (
	"context"
	"errors"
	"testing"

	aichatRequest "ShopPulse/internal/modules/aichat/application/dto/request"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

type fakeChatModel struct {
	got   []*schema.Message
	reply string
	err   error
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.got = input
	if f.err != nil {
		return nil, f.err
	}
	return &schema.Message{Role: schema.Assistant, Content: f.reply}, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func TestChatReplaysHistoryInOrder(t *testing.T) {
	fake := &fakeChatModel{reply: "有的"}
	svc := NewAssistantService(fake)

	resp, err := svc.Chat(context.Background(), aichatRequest.AiChatRequest{
		Message: "有优惠吗",
		History: []aichatRequest.HistoryEntry{
			{Role: "user", Content: "这个锅多少钱"},
			{Role: "assistant", Content: "99 元"},
		},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Reply != "有的" {
		t.Fatalf("回复错误: %s", resp.Reply)
	}

	// system + 2 条历史 + 本次提问
	if len(fake.got) != 4 {
		t.Fatalf("期望 4 条消息，得到 %d", len(fake.got))
	}
	if fake.got[0].Role != schema.System {
		t.Fatal("第一条应为系统提示")
	}
	if fake.got[1].Role != schema.User || fake.got[2].Role != schema.Assistant {
		t.Fatalf("历史角色顺序错误: %s %s", fake.got[1].Role, fake.got[2].Role)
	}
	last := fake.got[len(fake.got)-1]
	if last.Role != schema.User || last.Content != "有优惠吗" {
		t.Fatalf("最后一条应为本次提问: %+v", last)
	}
}

func TestChatEmptyMessageRejected(t *testing.T) {
	fake := &fakeChatModel{}
	svc := NewAssistantService(fake)

	if _, err := svc.Chat(context.Background(), aichatRequest.AiChatRequest{Message: "  "}); err == nil {
		t.Fatal("空提问应被拒绝")
	}
	if fake.got != nil {
		t.Fatal("被拒绝的提问不应调用模型")
	}
}

func TestChatWithImageUsesMultiContent(t *testing.T) {
	fake := &fakeChatModel{reply: "这是不粘锅"}
	svc := NewAssistantService(fake)

	_, err := svc.Chat(context.Background(), aichatRequest.AiChatRequest{
		Message: "这是什么锅",
		Image:   "data:image/png;base64,iVBORw0KGgo=",
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	last := fake.got[len(fake.got)-1]
	if len(last.MultiContent) != 2 {
		t.Fatalf("带图提问应有文本+图片两段内容，得到 %d 段", len(last.MultiContent))
	}
	if last.MultiContent[1].Type != schema.ChatMessagePartTypeImageURL {
		t.Fatalf("第二段应为图片: %s", last.MultiContent[1].Type)
	}
}

func TestChatModelFailureReturnsFriendlyError(t *testing.T) {
	fake := &fakeChatModel{err: errors.New("upstream timeout")}
	svc := NewAssistantService(fake)

	if _, err := svc.Chat(context.Background(), aichatRequest.AiChatRequest{Message: "在吗"}); err == nil {
		t.Fatal("模型失败应返回错误")
	}
}

func TestChatHistoryTruncatedToLimit(t *testing.T) {
	fake := &fakeChatModel{reply: "ok"}
	svc := NewAssistantService(fake)

	history := make([]aichatRequest.HistoryEntry, maxHistoryTurns+10)
	for i := range history {
		history[i] = aichatRequest.HistoryEntry{Role: "user", Content: "问"}
	}
	if _, err := svc.Chat(context.Background(), aichatRequest.AiChatRequest{Message: "最后一问", History: history}); err != nil {
		t.Fatalf("Chat: %v", err)
	}

	// system + 截断后的历史 + 本次提问
	if len(fake.got) != maxHistoryTurns+2 {
		t.Fatalf("历史应截断到 %d 条，实际消息数 %d", maxHistoryTurns, len(fake.got))
	}
}
