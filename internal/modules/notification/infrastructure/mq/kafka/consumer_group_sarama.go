package kafka

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ShopPulse/internal/modules/notification/infrastructure/mq"
	"ShopPulse/pkg/zlog"

	"github.com/IBM/sarama"
)

// 通知流水线的消费组名；新部署从最早位点追起，既有业务事件不能漏成通知
const defaultGroupID = "shoppulse-notification-workers"

type ConsumerConfig struct {
	Brokers  []string
	GroupID  string
	Topics   []string
	ClientID string
}

type eventConsumer struct {
	cg     sarama.ConsumerGroup
	topics []string
}

// NewConsumer 构建 shop.* 业务事件的消费端
func NewConsumer(cfg ConsumerConfig) (mq.Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers is empty")
	}
	if len(cfg.Topics) == 0 {
		return nil, errors.New("kafka topics is empty")
	}
	groupID := strings.TrimSpace(cfg.GroupID)
	if groupID == "" {
		groupID = defaultGroupID
	}

	sc := sarama.NewConfig()
	sc.Version = sarama.V2_8_0_0
	sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	sc.Consumer.Group.Rebalance.Timeout = 30 * time.Second
	sc.Consumer.Group.Session.Timeout = 30 * time.Second
	sc.ClientID = strings.TrimSpace(cfg.ClientID)

	cg, err := sarama.NewConsumerGroup(cfg.Brokers, groupID, sc)
	if err != nil {
		return nil, err
	}
	return &eventConsumer{cg: cg, topics: cfg.Topics}, nil
}

func (c *eventConsumer) Run(ctx context.Context, handler mq.Handler) error {
	if handler == nil {
		return errors.New("handler is nil")
	}
	h := &claimHandler{h: handler}

	for {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}

		if err := c.cg.Consume(ctx, c.topics, h); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		zlog.Info("通知事件消费组再均衡，重新认领分区")
	}
}

func (c *eventConsumer) Close() error {
	if c == nil {
		return nil
	}
	return c.cg.Close()
}

// claimHandler 把 kafka 消息转交通知流水线。
// 处理成功才提交位点，失败的消息留待重投；
// 载荷格式错误由上层按成功处理，坏消息不堵塞分区。
type claimHandler struct {
	h mq.Handler
}

func (claimHandler) Setup(sess sarama.ConsumerGroupSession) error {
	zlog.Info(fmt.Sprintf("通知事件消费就绪: %v", sess.Claims()))
	return nil
}

func (claimHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *claimHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for m := range claim.Messages() {
		msg := mq.Message{
			Topic: m.Topic,
			Key:   m.Key,
			Value: m.Value,
		}

		if len(m.Headers) > 0 {
			msg.Headers = make(map[string]string, len(m.Headers))
			for _, hdr := range m.Headers {
				if hdr == nil || len(hdr.Key) == 0 {
					continue
				}
				msg.Headers[string(hdr.Key)] = string(hdr.Value)
			}
		}

		if err := h.h.Handle(sess.Context(), msg); err != nil {
			zlog.Warn(fmt.Sprintf("通知事件处理失败，等待重投: topic=%s partition=%d offset=%d err=%v",
				m.Topic, m.Partition, m.Offset, err))
			continue
		}
		sess.MarkMessage(m, "")
	}
	return nil
}
