package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/mindmate/backend/internal/model/chat"
)

type memoryRecord struct {
	seq  int64
	turn chat.Turn
}

// MemoryStore keeps turns in process memory. Suitable for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records []memoryRecord
	seq     int64
	now     func() time.Time
}

// MemoryOption customizes a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock 替换时间来源，测试中用于构造相同的 CreatedAt。
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore bootstraps an empty in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		records: make([]memoryRecord, 0, 16),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Append(_ context.Context, turn chat.Turn) (chat.Turn, error) {
	prepared, err := prepare(turn, storageTime(s.now()))
	if err != nil {
		return chat.Turn{}, err
	}
	prepared.ID = uuid.NewString()

	s.mu.Lock()
	s.seq++
	s.records = append(s.records, memoryRecord{seq: s.seq, turn: prepared})
	s.mu.Unlock()

	return cloneTurn(prepared), nil
}

func (s *MemoryStore) ListByUser(_ context.Context, userID string, q Query) ([]chat.Turn, error) {
	s.mu.RLock()
	turns := make([]chat.Turn, 0)
	seqs := make([]int64, 0)
	for _, rec := range s.records {
		if rec.turn.UserID != userID {
			continue
		}
		if q.SessionType != "" && rec.turn.SessionType != q.SessionType {
			continue
		}
		if !q.Since.IsZero() && rec.turn.CreatedAt.Before(q.Since) {
			continue
		}
		turns = append(turns, cloneTurn(rec.turn))
		seqs = append(seqs, rec.seq)
	}
	s.mu.RUnlock()

	sortNewestFirst(turns, seqs)
	if q.Limit > 0 && len(turns) > q.Limit {
		turns = turns[:q.Limit]
	}
	return turns, nil
}

func (s *MemoryStore) Close() error { return nil }

func cloneTurn(t chat.Turn) chat.Turn {
	out := t
	out.Messages = append([]chat.Message(nil), t.Messages...)
	return out
}
