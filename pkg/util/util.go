package util

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateUUID 生成一个标准的 UUID (v4)
func GenerateUUID() string {
	return uuid.New().String()
}

// GenerateShortUUID 生成一个不带中划线的短 UUID
func GenerateShortUUID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// GenerateNotificationID 通知 uuid，N 前缀，定长 20
func GenerateNotificationID() string {
	return "N" + GenerateShortUUID()[:19]
}

// GenerateConversationID 会话 uuid，C 前缀，定长 20
func GenerateConversationID() string {
	return "C" + GenerateShortUUID()[:19]
}

// GenerateMessageID 消息 uuid，M 前缀，定长 20
func GenerateMessageID() string {
	return "M" + GenerateShortUUID()[:19]
}
