package history

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/zhouzirui/mindmate/backend/internal/analysis/emotion"
	"github.com/zhouzirui/mindmate/backend/internal/model/chat"
)

const turnCollection = "chatmessages"

// MongoStore 每轮对话存为一个文档，消息内嵌在 messages 数组中。
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	now    func() time.Time
}

type turnDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	User        string             `bson:"user"`
	SessionType string             `bson:"sessionType"`
	Messages    []messageDocument  `bson:"messages"`
	CreatedAt   time.Time          `bson:"createdAt"`
}

type messageDocument struct {
	Role      string    `bson:"role"`
	Content   string    `bson:"content"`
	Emotion   string    `bson:"emotion"`
	Timestamp time.Time `bson:"timestamp"`
}

func (d turnDocument) toTurn() chat.Turn {
	turn := chat.Turn{
		ID:          d.ID.Hex(),
		UserID:      d.User,
		SessionType: chat.SessionType(d.SessionType),
		CreatedAt:   d.CreatedAt.UTC(),
		Messages:    make([]chat.Message, 0, len(d.Messages)),
	}
	for _, m := range d.Messages {
		turn.Messages = append(turn.Messages, chat.Message{
			Role:      chat.Role(m.Role),
			Content:   m.Content,
			Emotion:   emotion.Label(m.Emotion),
			Timestamp: m.Timestamp.UTC(),
		})
	}
	return turn
}

// NewMongoStore 连接 MongoDB 并确保 user+createdAt 索引存在。
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	if database == "" {
		database = "mindmate"
	}

	coll := client.Database(database).Collection(turnCollection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create mongo index: %w", err)
	}

	return &MongoStore{client: client, coll: coll, now: time.Now}, nil
}

func (s *MongoStore) Append(ctx context.Context, turn chat.Turn) (chat.Turn, error) {
	prepared, err := prepare(turn, storageTime(s.now()))
	if err != nil {
		return chat.Turn{}, err
	}

	doc := turnDocument{
		ID:          primitive.NewObjectID(),
		User:        prepared.UserID,
		SessionType: string(prepared.SessionType),
		CreatedAt:   prepared.CreatedAt,
		Messages:    make([]messageDocument, 0, len(prepared.Messages)),
	}
	for _, m := range prepared.Messages {
		doc.Messages = append(doc.Messages, messageDocument{
			Role:      string(m.Role),
			Content:   m.Content,
			Emotion:   string(m.Emotion),
			Timestamp: storageTime(m.Timestamp),
		})
	}

	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return chat.Turn{}, fmt.Errorf("insert turn: %w", err)
	}
	prepared.ID = doc.ID.Hex()
	return prepared, nil
}

func (s *MongoStore) ListByUser(ctx context.Context, userID string, q Query) ([]chat.Turn, error) {
	filter := bson.M{"user": userID}
	if q.SessionType != "" {
		filter["sessionType"] = string(q.SessionType)
	}
	if !q.Since.IsZero() {
		filter["createdAt"] = bson.M{"$gte": q.Since.UTC()}
	}

	// ObjectID 在进程内单调递增，用作同一时刻写入的次序。
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find turns: %w", err)
	}
	var docs []turnDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode turns: %w", err)
	}

	turns := make([]chat.Turn, 0, len(docs))
	for _, d := range docs {
		turns = append(turns, d.toTurn())
	}
	return turns, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
