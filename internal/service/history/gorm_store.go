package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zhouzirui/mindmate/backend/internal/analysis/emotion"
	dbpkg "github.com/zhouzirui/mindmate/backend/internal/db"
	"github.com/zhouzirui/mindmate/backend/internal/model/chat"
)

// GormStore persists turns in sqlite or postgres.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

type turnRow struct {
	Seq         int64     `gorm:"primaryKey;autoIncrement"`
	TurnID      string    `gorm:"size:36;uniqueIndex"`
	UserID      string    `gorm:"size:64;index:idx_turn_user_created,priority:1;not null"`
	SessionType string    `gorm:"size:16;not null"`
	CreatedAt   time.Time `gorm:"index:idx_turn_user_created,priority:2;not null"`

	Messages []messageRow `gorm:"foreignKey:TurnSeq;references:Seq"`
}

func (turnRow) TableName() string { return "conversation_turns" }

type messageRow struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	TurnSeq   int64     `gorm:"index;not null"`
	Position  int       `gorm:"not null"`
	Role      string    `gorm:"size:8;not null"`
	Content   string    `gorm:"type:text"`
	Emotion   string    `gorm:"size:16"`
	Timestamp time.Time `gorm:"not null"`
}

func (messageRow) TableName() string { return "conversation_messages" }

func (r turnRow) toTurn() chat.Turn {
	turn := chat.Turn{
		ID:          r.TurnID,
		UserID:      r.UserID,
		SessionType: chat.SessionType(r.SessionType),
		CreatedAt:   r.CreatedAt.UTC(),
		Messages:    make([]chat.Message, 0, len(r.Messages)),
	}
	for _, m := range r.Messages {
		turn.Messages = append(turn.Messages, chat.Message{
			Role:      chat.Role(m.Role),
			Content:   m.Content,
			Emotion:   emotion.Label(m.Emotion),
			Timestamp: m.Timestamp.UTC(),
		})
	}
	return turn
}

// NewGormStore 打开数据库并执行迁移。
func NewGormStore(driver, dsn string) (*GormStore, error) {
	gormDB, err := dbpkg.OpenGorm(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open gorm store: %w", err)
	}

	store := &GormStore{db: gormDB, now: time.Now}
	if err := store.db.AutoMigrate(&turnRow{}, &messageRow{}); err != nil {
		return nil, fmt.Errorf("migrate conversation tables: %w", err)
	}
	return store, nil
}

func (s *GormStore) Append(ctx context.Context, turn chat.Turn) (chat.Turn, error) {
	prepared, err := prepare(turn, storageTime(s.now()))
	if err != nil {
		return chat.Turn{}, err
	}
	prepared.ID = uuid.NewString()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := turnRow{
			TurnID:      prepared.ID,
			UserID:      prepared.UserID,
			SessionType: string(prepared.SessionType),
			CreatedAt:   prepared.CreatedAt,
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("create turn: %w", err)
		}

		messages := make([]messageRow, 0, len(prepared.Messages))
		for i, m := range prepared.Messages {
			messages = append(messages, messageRow{
				TurnSeq:   row.Seq,
				Position:  i,
				Role:      string(m.Role),
				Content:   m.Content,
				Emotion:   string(m.Emotion),
				Timestamp: storageTime(m.Timestamp),
			})
		}
		if err := tx.Create(&messages).Error; err != nil {
			return fmt.Errorf("create turn messages: %w", err)
		}
		return nil
	})
	if err != nil {
		return chat.Turn{}, err
	}
	return prepared, nil
}

func (s *GormStore) ListByUser(ctx context.Context, userID string, q Query) ([]chat.Turn, error) {
	query := s.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("user_id = ?", userID)
	if q.SessionType != "" {
		query = query.Where("session_type = ?", string(q.SessionType))
	}
	if !q.Since.IsZero() {
		query = query.Where("created_at >= ?", q.Since.UTC())
	}
	query = query.Order("created_at DESC").Order("seq DESC")
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var rows []turnRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}

	turns := make([]chat.Turn, 0, len(rows))
	for _, row := range rows {
		turns = append(turns, row.toTurn())
	}
	return turns, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
