package repository

import (
	"context"
	"errors"

	"trip_chat_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageRepository definition append-only message log
type MessageRepository interface {
	Insert(ctx context.Context, msg *domain.ChatMessage) error
	// FindByConversation all messages in (timestamp, seq) order
	FindByConversation(ctx context.Context, conversationID string) ([]domain.ChatMessage, error)
	// FindLast newest message, nil when the conversation is empty
	FindLast(ctx context.Context, conversationID string) (*domain.ChatMessage, error)
	// CountUnread messages not sent by viewer and newer than its watermark
	CountUnread(ctx context.Context, conversationID, viewerID string, afterTimestamp int64) (int, error)
}

type chatMessageRepository struct {
	coll *mongo.Collection
}

// NewMongoMessageRepository create a MessageRepository
func NewMongoMessageRepository(db *mongo.Database) MessageRepository {
	return &chatMessageRepository{
		coll: db.Collection("chat_messages"),
	}
}

func (r *chatMessageRepository) Insert(ctx context.Context, msg *domain.ChatMessage) error {
	_, err := r.coll.InsertOne(ctx, msg)
	return err
}

func (r *chatMessageRepository) FindByConversation(ctx context.Context, conversationID string) ([]domain.ChatMessage, error) {
	filter := bson.M{"conversation_id": conversationID}
	opts := options.Find().SetSort(bson.D{
		{Key: "timestamp", Value: 1},
		{Key: "seq", Value: 1},
	})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var messages []domain.ChatMessage
	if err := cur.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *chatMessageRepository) FindLast(ctx context.Context, conversationID string) (*domain.ChatMessage, error) {
	filter := bson.M{"conversation_id": conversationID}
	opts := options.FindOne().SetSort(bson.D{
		{Key: "timestamp", Value: -1},
		{Key: "seq", Value: -1},
	})
	var msg domain.ChatMessage
	err := r.coll.FindOne(ctx, filter, opts).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *chatMessageRepository) CountUnread(ctx context.Context, conversationID, viewerID string, afterTimestamp int64) (int, error) {
	filter := bson.M{
		"conversation_id": conversationID,
		"sender_id":       bson.M{"$ne": viewerID},
		"timestamp":       bson.M{"$gt": afterTimestamp},
	}
	n, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
