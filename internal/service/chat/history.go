package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/zhouzirui/mindmate/backend/internal/model/chat"
	"github.com/zhouzirui/mindmate/backend/internal/service/history"
)

// VideoHistory 视频聊天记录及用户情绪统计。
type VideoHistory struct {
	Turns        []chat.Turn
	EmotionStats map[string]int
}

// Analytics 是一段时间内的情绪统计。
type Analytics struct {
	history.Summary
	Start time.Time
	End   time.Time
}

// History 返回调用者的全部会话，最新的在前。
func (s *Service) History(ctx context.Context, userID string, q history.Query) ([]chat.Turn, error) {
	if userID == "" {
		return nil, ErrIdentityRequired
	}
	if s.store == nil {
		return []chat.Turn{}, nil
	}
	turns, err := s.store.ListByUser(ctx, userID, q)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return turns, nil
}

// VideoHistory 返回最近 50 条视频会话。
func (s *Service) VideoHistory(ctx context.Context, userID string) (VideoHistory, error) {
	turns, err := s.History(ctx, userID, history.Query{SessionType: chat.SessionVideo, Limit: videoHistoryLimit})
	if err != nil {
		return VideoHistory{}, err
	}
	return VideoHistory{Turns: turns, EmotionStats: history.Summarize(turns).EmotionTrends}, nil
}

// Analytics 统计最近 days 天所有会话的情绪，days<=0 时取 30。
func (s *Service) Analytics(ctx context.Context, userID string, days int) (Analytics, error) {
	if days <= 0 {
		days = defaultAnalyticsDays
	}
	end := s.now().UTC()
	start := end.AddDate(0, 0, -days)

	turns, err := s.History(ctx, userID, history.Query{Since: start})
	if err != nil {
		return Analytics{}, err
	}
	return Analytics{Summary: history.Summarize(turns), Start: start, End: end}, nil
}
