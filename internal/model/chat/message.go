package chat

import (
	"time"

	"github.com/zhouzirui/mindmate/backend/internal/analysis/emotion"
)

// MaxContentLength 单条消息内容的上限（按码点计）。
const MaxContentLength = 2000

// SessionType 区分文字聊天和视频聊天。
type SessionType string

const (
	SessionText  SessionType = "text"
	SessionVideo SessionType = "video"
)

// Role 标记消息的发送方。
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Message is one side of an exchange.
type Message struct {
	Role      Role          `json:"role"`
	Content   string        `json:"content"`
	Emotion   emotion.Label `json:"emotion"`
	Timestamp time.Time     `json:"timestamp"`
}

// Turn persists a completed exchange: the user's message followed by the bot reply.
// Turns are append-only and never updated after creation.
type Turn struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user"`
	SessionType SessionType `json:"sessionType"`
	Messages    []Message   `json:"messages"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// NewTurn 构造一轮完整对话，用户消息与回复共享同一个情绪标签。
func NewTurn(userID string, sessionType SessionType, userContent, botContent string, label emotion.Label, at time.Time) Turn {
	label = label.OrNeutral()
	return Turn{
		UserID:      userID,
		SessionType: sessionType,
		Messages: []Message{
			{Role: RoleUser, Content: userContent, Emotion: label, Timestamp: at},
			{Role: RoleBot, Content: botContent, Emotion: label, Timestamp: at},
		},
	}
}

// UserEmotion returns the emotion recorded on the user's message.
func (t Turn) UserEmotion() (emotion.Label, bool) {
	for _, m := range t.Messages {
		if m.Role == RoleUser && m.Emotion != "" {
			return m.Emotion, true
		}
	}
	return "", false
}

// Truncate 截断到 MaxContentLength 个码点。
func Truncate(content string) string {
	count := 0
	for i := range content {
		if count == MaxContentLength {
			return content[:i]
		}
		count++
	}
	return content
}
