package app

import (
	"context"

	"trip_chat_service/internal/chat/domain"

	"github.com/stretchr/testify/mock"
)

// MockConversationRepository Mock ConversationRepository
type MockConversationRepository struct {
	mock.Mock
}

// Touch mock upsert for a message send
func (m *MockConversationRepository) Touch(ctx context.Context, conversationID string, participants []string, senderID string, now int64) (int64, int64, error) {
	args := m.Called(ctx, conversationID, participants, senderID, now)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

// EnsureExists mock create on first read-state write
func (m *MockConversationRepository) EnsureExists(ctx context.Context, conversationID string, participants []string, readerID string, now int64) error {
	args := m.Called(ctx, conversationID, participants, readerID, now)
	return args.Error(0)
}

// FindByID mock find conversation by id
func (m *MockConversationRepository) FindByID(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindByParticipant mock list conversations of one user
func (m *MockConversationRepository) FindByParticipant(ctx context.Context, userID string) ([]domain.Conversation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// CommitReadState mock versioned read-state commit
func (m *MockConversationRepository) CommitReadState(ctx context.Context, conversationID string, expectedVersion int64, readBy []string, lastRead map[string]int64) (bool, error) {
	args := m.Called(ctx, conversationID, expectedVersion, readBy, lastRead)
	return args.Bool(0), args.Error(1)
}

// MockMessageRepository Mock MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// Insert mock insert msg
func (m *MockMessageRepository) Insert(ctx context.Context, msg *domain.ChatMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// FindByConversation mock find ordered history
func (m *MockMessageRepository) FindByConversation(ctx context.Context, conversationID string) ([]domain.ChatMessage, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.ChatMessage), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindLast mock find newest msg
func (m *MockMessageRepository) FindLast(ctx context.Context, conversationID string) (*domain.ChatMessage, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.ChatMessage), args.Error(1)
	}
	return nil, args.Error(1)
}

// CountUnread mock unread count past watermark
func (m *MockMessageRepository) CountUnread(ctx context.Context, conversationID, viewerID string, afterTimestamp int64) (int, error) {
	args := m.Called(ctx, conversationID, viewerID, afterTimestamp)
	return args.Int(0), args.Error(1)
}

// MockPresenceRepository Mock PresenceRepository
type MockPresenceRepository struct {
	mock.Mock
}

// Set mock overwrite presence record
func (m *MockPresenceRepository) Set(ctx context.Context, userID string, rec domain.PresenceRecord) error {
	args := m.Called(ctx, userID, rec)
	return args.Error(0)
}

// Get mock read presence record
func (m *MockPresenceRepository) Get(ctx context.Context, userID string) (domain.PresenceRecord, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(domain.PresenceRecord), args.Error(1)
}

// MockPubSub Mock PubSub
type MockPubSub struct {
	mock.Mock
}

// Publish mock publisher
func (m *MockPubSub) Publish(ctx context.Context, channel string, message interface{}) error {
	args := m.Called(ctx, channel, message)
	return args.Error(0)
}

// Subscribe mock subscriber
func (m *MockPubSub) Subscribe(ctx context.Context, channel string, handler func(payload []byte)) error {
	args := m.Called(ctx, channel, handler)
	return args.Error(0)
}

// MockProfileClient Mock ProfileClient
type MockProfileClient struct {
	mock.Mock
}

// GetProfile mock fetch partner profile
func (m *MockProfileClient) GetProfile(ctx context.Context, userID string) (domain.PartnerProfile, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(domain.PartnerProfile), args.Error(1)
}

// MockNotificationClient Mock NotificationClient
type MockNotificationClient struct {
	mock.Mock
}

// PushMessage mock push dispatch
func (m *MockNotificationClient) PushMessage(ctx context.Context, toUserID, title, body string) error {
	args := m.Called(ctx, toUserID, title, body)
	return args.Error(0)
}
