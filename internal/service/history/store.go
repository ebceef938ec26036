// Package history persists completed conversation turns and reads them back
// newest first.
package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/zhouzirui/mindmate/backend/internal/model/chat"
)

var (
	ErrUserRequired = errors.New("turn user is required")
	ErrInvalidTurn  = errors.New("turn must contain a user message followed by a bot message")
)

// Query 限定 ListByUser 的返回范围，零值表示不过滤。
type Query struct {
	SessionType chat.SessionType
	Since       time.Time
	Limit       int
}

// Store 是会话历史的唯一写入方。
type Store interface {
	// Append 分配 ID 与 CreatedAt 并保存，返回保存后的记录。
	Append(ctx context.Context, turn chat.Turn) (chat.Turn, error)
	// ListByUser 按 CreatedAt 倒序返回，时间相同按写入顺序倒序。
	ListByUser(ctx context.Context, userID string, q Query) ([]chat.Turn, error)
	Close() error
}

// prepare validates the turn and returns a normalized copy ready to persist.
func prepare(turn chat.Turn, createdAt time.Time) (chat.Turn, error) {
	if turn.UserID == "" {
		return chat.Turn{}, ErrUserRequired
	}
	if len(turn.Messages) != 2 || turn.Messages[0].Role != chat.RoleUser || turn.Messages[1].Role != chat.RoleBot {
		return chat.Turn{}, ErrInvalidTurn
	}

	out := turn
	out.CreatedAt = createdAt
	out.Messages = make([]chat.Message, len(turn.Messages))
	for i, m := range turn.Messages {
		m.Content = chat.Truncate(m.Content)
		m.Emotion = m.Emotion.OrNeutral()
		if m.Timestamp.IsZero() {
			m.Timestamp = createdAt
		} else {
			m.Timestamp = storageTime(m.Timestamp)
		}
		out.Messages[i] = m
	}
	return out, nil
}

// storageTime 统一存储精度为毫秒，各驱动读写结果一致。
func storageTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// Open 根据驱动名创建 Store。
func Open(ctx context.Context, driver, dsn, database string) (Store, error) {
	switch driver {
	case "memory", "":
		return NewMemoryStore(), nil
	case "sqlite", "postgres":
		return NewGormStore(driver, dsn)
	case "mongo":
		return NewMongoStore(ctx, dsn, database)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
}

// Summary 汇总用户消息上的情绪。
type Summary struct {
	EmotionTrends map[string]int            `json:"emotionTrends"`
	DailyEmotions map[string]map[string]int `json:"dailyEmotions"`
	TotalSessions int                       `json:"totalSessions"`
}

// Summarize 只统计 role=user 的消息，按 UTC 日期分桶。
func Summarize(turns []chat.Turn) Summary {
	summary := Summary{
		EmotionTrends: make(map[string]int),
		DailyEmotions: make(map[string]map[string]int),
		TotalSessions: len(turns),
	}
	for _, turn := range turns {
		userLabel, ok := turn.UserEmotion()
		if !ok {
			continue
		}
		day := turn.CreatedAt.UTC().Format(time.DateOnly)
		label := string(userLabel)
		summary.EmotionTrends[label]++
		if summary.DailyEmotions[day] == nil {
			summary.DailyEmotions[day] = make(map[string]int)
		}
		summary.DailyEmotions[day][label]++
	}
	return summary
}

// sortNewestFirst sorts by CreatedAt desc; seq breaks ties, higher first.
func sortNewestFirst(turns []chat.Turn, seq []int64) {
	idx := make([]int, len(turns))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ta, tb := turns[idx[a]].CreatedAt, turns[idx[b]].CreatedAt
		if !ta.Equal(tb) {
			return ta.After(tb)
		}
		return seq[idx[a]] > seq[idx[b]]
	})
	sorted := make([]chat.Turn, len(turns))
	for i, j := range idx {
		sorted[i] = turns[j]
	}
	copy(turns, sorted)
}
