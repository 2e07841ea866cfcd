package app

import (
	"context"
	"testing"

	"trip_chat_service/internal/chat/domain"
	"trip_chat_service/internal/chat/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSendMessageUseCase_Append(t *testing.T) {
	ctx := context.Background()
	conversationID := "u1_u2"

	mockConvRepo := new(MockConversationRepository)
	mockMsgRepo := new(MockMessageRepository)
	mockPubSub := new(MockPubSub)

	// conversation upserted with both participants, readBy reset to sender
	mockConvRepo.On("Touch", ctx, conversationID, []string{"u1", "u2"}, "u1", mock.Anything).
		Return(int64(1), int64(1000), nil)
	mockMsgRepo.On("Insert", ctx, mock.Anything).Return(nil)

	// live fan-out to the conversation channel and both inboxes
	mockPubSub.On("Publish", ctx, repository.ConversationChannel(conversationID), mock.Anything).Return(nil)
	mockPubSub.On("Publish", ctx, repository.InboxChannel("u1"), mock.Anything).Return(nil)
	mockPubSub.On("Publish", ctx, repository.InboxChannel("u2"), mock.Anything).Return(nil)

	uc := NewSendMessageUseCase(mockConvRepo, mockMsgRepo, mockPubSub, nil)
	msg, err := uc.Append(ctx, conversationID, "u1", "  hey  ")

	assert.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "hey", msg.Text, "text is trimmed before storing")
	assert.Equal(t, "u1", msg.SenderID)
	assert.Equal(t, int64(1), msg.Seq)
	assert.Equal(t, int64(1000), msg.Timestamp, "timestamp comes from the store roundtrip")

	mockConvRepo.AssertExpectations(t)
	mockMsgRepo.AssertExpectations(t)
	mockPubSub.AssertExpectations(t)
}

func TestSendMessageUseCase_Append_LaggingClock(t *testing.T) {
	ctx := context.Background()
	conversationID := "u1_u2"

	// a concurrent commit already advanced updatedAt past this sender's
	// clock; the store hands back the later timestamp and the message
	// must carry it, or the stream would deliver decreasing timestamps
	mockConvRepo := new(MockConversationRepository)
	mockConvRepo.On("Touch", ctx, conversationID, []string{"u1", "u2"}, "u1", mock.Anything).
		Return(int64(2), int64(2001), nil)

	mockMsgRepo := new(MockMessageRepository)
	mockMsgRepo.On("Insert", ctx, mock.MatchedBy(func(m *domain.ChatMessage) bool {
		return m.Timestamp == 2001 && m.Seq == 2
	})).Return(nil)

	mockPubSub := new(MockPubSub)
	mockPubSub.On("Publish", ctx, mock.Anything, mock.Anything).Return(nil)

	uc := NewSendMessageUseCase(mockConvRepo, mockMsgRepo, mockPubSub, nil)
	msg, err := uc.Append(ctx, conversationID, "u1", "late clock")

	assert.NoError(t, err)
	assert.Equal(t, int64(2001), msg.Timestamp)
	mockMsgRepo.AssertExpectations(t)
}

func TestSendMessageUseCase_Append_EmptyText(t *testing.T) {
	ctx := context.Background()

	uc := NewSendMessageUseCase(new(MockConversationRepository), new(MockMessageRepository), new(MockPubSub), nil)

	_, err := uc.Append(ctx, "u1_u2", "u1", "   ")
	assert.ErrorIs(t, err, domain.ErrEmptyMessage, "blank text never reaches the store")

	_, err = uc.Append(ctx, "u1_u2", "u1", "")
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)
}

func TestSendMessageUseCase_Append_SenderNotParticipant(t *testing.T) {
	ctx := context.Background()

	uc := NewSendMessageUseCase(new(MockConversationRepository), new(MockMessageRepository), new(MockPubSub), nil)

	_, err := uc.Append(ctx, "u1_u2", "u3", "hello")
	assert.ErrorIs(t, err, domain.ErrInvalidParticipants)
}

func TestSendMessageUseCase_Append_MalformedConversationID(t *testing.T) {
	ctx := context.Background()

	uc := NewSendMessageUseCase(new(MockConversationRepository), new(MockMessageRepository), new(MockPubSub), nil)

	_, err := uc.Append(ctx, "u1", "u1", "hello")
	assert.ErrorIs(t, err, domain.ErrInvalidParticipants)
}

func TestSendMessageUseCase_Open_NoGapBetweenStreamAndSnapshot(t *testing.T) {
	ctx := context.Background()
	conversationID := "u1_u2"

	// m2 lands right after the subscription starts, before the history
	// read; it must arrive live and be filtered from the snapshot
	var liveHandler func(payload []byte)
	mockPubSub := new(MockPubSub)
	mockPubSub.On("Subscribe", ctx, repository.ConversationChannel(conversationID), mock.Anything).
		Run(func(args mock.Arguments) {
			liveHandler = args.Get(2).(func(payload []byte))
			liveHandler([]byte(`{"id":"m2","conversation_id":"u1_u2","seq":2,"sender_id":"u2","text":"second","timestamp":200}`))
		}).
		Return(nil)

	mockMsgRepo := new(MockMessageRepository)
	mockMsgRepo.On("FindByConversation", ctx, conversationID).Return([]domain.ChatMessage{
		{ID: "m1", ConversationID: conversationID, Seq: 1, SenderID: "u1", Text: "first", Timestamp: 100},
		{ID: "m2", ConversationID: conversationID, Seq: 2, SenderID: "u2", Text: "second", Timestamp: 200},
	}, nil)

	uc := NewSendMessageUseCase(new(MockConversationRepository), mockMsgRepo, mockPubSub, nil)

	var live []domain.ChatMessage
	snapshot, err := uc.Open(ctx, conversationID, func(m domain.ChatMessage) {
		live = append(live, m)
	})

	assert.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, "second", live[0].Text)
	require.Len(t, snapshot, 1, "live-delivered message is not duplicated in the snapshot")
	assert.Equal(t, "first", snapshot[0].Text)

	// after the snapshot the stream delivers as usual
	liveHandler([]byte(`{"id":"m3","conversation_id":"u1_u2","seq":3,"sender_id":"u1","text":"third","timestamp":300}`))
	require.Len(t, live, 2)
	assert.Equal(t, "third", live[1].Text)
}

func TestSendMessageUseCase_SubscribeMessages(t *testing.T) {
	ctx := context.Background()
	conversationID := "u1_u2"

	mockPubSub := new(MockPubSub)
	mockPubSub.On("Subscribe", ctx, repository.ConversationChannel(conversationID), mock.Anything).Return(nil)

	uc := NewSendMessageUseCase(new(MockConversationRepository), new(MockMessageRepository), mockPubSub, nil)

	var got []domain.ChatMessage
	err := uc.SubscribeMessages(ctx, conversationID, func(m domain.ChatMessage) {
		got = append(got, m)
	})
	assert.NoError(t, err)

	// replay two payloads through the captured handler, order must hold
	handler := mockPubSub.Calls[0].Arguments.Get(2).(func(payload []byte))
	handler([]byte(`{"id":"m1","conversation_id":"u1_u2","seq":1,"sender_id":"u1","text":"first","timestamp":100}`))
	handler([]byte(`{"id":"m2","conversation_id":"u1_u2","seq":2,"sender_id":"u2","text":"second","timestamp":200}`))
	handler([]byte(`not json`))

	assert.Len(t, got, 2, "malformed payloads are dropped")
	assert.Equal(t, "first", got[0].Text)
	assert.Equal(t, "second", got[1].Text)
	assert.True(t, got[0].Before(got[1]))

	mockPubSub.AssertExpectations(t)
}
