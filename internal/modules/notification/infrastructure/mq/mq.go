// Package mq 是通知域的事件总线边界：
// 上游业务事件从 shop.* 主题流入变成通知，审计记录从这里发往审计主题。
package mq

import (
	"context"
	"encoding/json"
	"time"

	"ShopPulse/pkg/util"
)

// 消息头约定，消费端据此做追踪与来源判断
const (
	HeaderEventId   = "event_id"
	HeaderEmittedAt = "emitted_at"
	HeaderSource    = "source"
)

const sourceName = "shoppulse"

type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// NewEventMessage 把领域载荷编成带事件头的消息。
// key 做分区粘滞：同一收件人的事件落在同一分区，消费顺序即产生顺序。
func NewEventMessage(topic string, key string, payload interface{}) (Message, error) {
	value, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Headers: map[string]string{
			HeaderEventId:   util.GenerateShortUUID(),
			HeaderEmittedAt: time.Now().Format(time.RFC3339),
			HeaderSource:    sourceName,
		},
	}, nil
}

type PublishResult struct {
	Partition int32
	Offset    int64
}

type Publisher interface {
	Publish(ctx context.Context, msg Message) (PublishResult, error)
	Close() error
}

type Handler interface {
	Handle(ctx context.Context, msg Message) error
}

type Consumer interface {
	Run(ctx context.Context, handler Handler) error
	Close() error
}
