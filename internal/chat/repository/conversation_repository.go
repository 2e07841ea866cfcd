package repository

import (
	"context"
	"errors"

	"trip_chat_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConversationRepository definition two-party conversation store
type ConversationRepository interface {
	// Touch upsert the conversation for a message send: participants are
	// written idempotently, readBy resets to the sender, and the next
	// arrival seq plus the message timestamp are allocated in the same
	// roundtrip. updatedAt only ever moves forward, so the returned
	// timestamp can never order against arrival: a sender whose clock
	// lags a concurrent commit inherits that commit's timestamp and the
	// seq breaks the tie.
	Touch(ctx context.Context, conversationID string, participants []string, senderID string, now int64) (seq int64, timestamp int64, err error)
	// EnsureExists create the conversation record on a first read-state
	// write. No-op when the record already exists.
	EnsureExists(ctx context.Context, conversationID string, participants []string, readerID string, now int64) error
	FindByID(ctx context.Context, conversationID string) (*domain.Conversation, error)
	// FindByParticipant list the user's conversations, updatedAt descending
	FindByParticipant(ctx context.Context, userID string) ([]domain.Conversation, error)
	// CommitReadState commit a read-modify-write of readBy/lastRead.
	// Returns false without writing when expectedVersion lost the race.
	CommitReadState(ctx context.Context, conversationID string, expectedVersion int64, readBy []string, lastRead map[string]int64) (bool, error)
}

type conversationRepository struct {
	coll *mongo.Collection
}

// NewMongoConversationRepository create a ConversationRepository
func NewMongoConversationRepository(db *mongo.Database) ConversationRepository {
	return &conversationRepository{
		coll: db.Collection("conversations"),
	}
}

func (r *conversationRepository) Touch(ctx context.Context, conversationID string, participants []string, senderID string, now int64) (int64, int64, error) {
	filter := bson.M{"_id": conversationID}
	update := bson.M{
		"$set": bson.M{
			"participants": participants,
			// a new message invalidates everyone's acknowledgement but the sender's
			"read_by": []string{senderID},
		},
		// never backwards, even when concurrent senders' clocks disagree
		"$max": bson.M{"updated_at": now},
		"$inc": bson.M{
			"last_seq": 1,
			"version":  1,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var conv domain.Conversation
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&conv); err != nil {
		return 0, 0, err
	}
	return conv.LastSeq, conv.UpdatedAt, nil
}

func (r *conversationRepository) EnsureExists(ctx context.Context, conversationID string, participants []string, readerID string, now int64) error {
	filter := bson.M{"_id": conversationID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"participants": participants,
			"updated_at":   now,
			"read_by":      []string{readerID},
			"last_read":    bson.M{readerID: now},
			"version":      int64(0),
			"last_seq":     int64(0),
		},
	}
	_, err := r.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (r *conversationRepository) FindByID(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := r.coll.FindOne(ctx, bson.M{"_id": conversationID}).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) FindByParticipant(ctx context.Context, userID string) ([]domain.Conversation, error) {
	filter := bson.M{"participants": userID}
	opts := options.Find().SetSort(bson.M{"updated_at": -1})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var convs []domain.Conversation
	if err := cur.All(ctx, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

func (r *conversationRepository) CommitReadState(ctx context.Context, conversationID string, expectedVersion int64, readBy []string, lastRead map[string]int64) (bool, error) {
	filter := bson.M{"_id": conversationID, "version": expectedVersion}
	update := bson.M{
		"$set": bson.M{
			"read_by":   readBy,
			"last_read": lastRead,
		},
		"$inc": bson.M{"version": 1},
	}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}
