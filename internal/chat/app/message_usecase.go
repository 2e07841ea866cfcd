package app

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"trip_chat_service/internal/chat/domain"
	"trip_chat_service/internal/chat/repository"
	"trip_chat_service/pkg"

	"github.com/google/uuid"
)

// Notifier decides per outgoing message whether the recipient needs a push
type Notifier interface {
	OnMessageSent(ctx context.Context, conversationID, senderID, recipientID, text string)
}

// SendMessageUseCase append messages and fan them out live
type SendMessageUseCase struct {
	convRepo repository.ConversationRepository
	msgRepo  repository.MessageRepository
	pubsub   repository.PubSub
	notifier Notifier
}

// NewSendMessageUseCase init send message use case
func NewSendMessageUseCase(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	pubsub repository.PubSub,
	notifier Notifier,
) *SendMessageUseCase {
	return &SendMessageUseCase{
		convRepo: convRepo,
		msgRepo:  msgRepo,
		pubsub:   pubsub,
		notifier: notifier,
	}
}

// Append validate, persist and fan out one message.
// The conversation record is upserted in the same step, so the first
// message of a pair creates the conversation implicitly.
func (uc *SendMessageUseCase) Append(ctx context.Context, conversationID, senderID, text string) (*domain.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrEmptyMessage
	}

	participants, err := domain.ParticipantsOf(conversationID)
	if err != nil {
		return nil, err
	}
	if !pkg.Contains(participants, senderID) {
		return nil, domain.ErrInvalidParticipants
	}

	// server clock, never the client's; the store returns the effective
	// timestamp alongside the seq so the two can never diverge
	seq, ts, err := uc.convRepo.Touch(ctx, conversationID, participants, senderID, time.Now().UnixMilli())
	if err != nil {
		return nil, err
	}

	msg := &domain.ChatMessage{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Seq:            seq,
		SenderID:       senderID,
		Text:           text,
		Timestamp:      ts,
	}
	if err := uc.msgRepo.Insert(ctx, msg); err != nil {
		return nil, err
	}

	// live fan-out: the message is durable already, a lost publish only
	// delays delivery until the next snapshot
	if err := uc.pubsub.Publish(ctx, repository.ConversationChannel(conversationID), msg); err != nil {
		log.Printf("Publish error: %v", err)
	}
	for _, p := range participants {
		if err := uc.pubsub.Publish(ctx, repository.InboxChannel(p), msg); err != nil {
			log.Printf("Publish error: %v", err)
		}
	}

	if uc.notifier != nil {
		recipient := pkg.Other(participants, senderID)
		go uc.notifier.OnMessageSent(context.Background(), conversationID, senderID, recipient, text)
	}

	return msg, nil
}

// History all messages of the conversation in delivery order
func (uc *SendMessageUseCase) History(ctx context.Context, conversationID string) ([]domain.ChatMessage, error) {
	return uc.msgRepo.FindByConversation(ctx, conversationID)
}

// Open start the live stream, then snapshot the history. Subscribing
// first closes the gap between the two: a message appended in between
// arrives live and is filtered from the snapshot, so it is neither
// lost nor delivered twice.
func (uc *SendMessageUseCase) Open(ctx context.Context, conversationID string, handler func(domain.ChatMessage)) ([]domain.ChatMessage, error) {
	var mu sync.Mutex
	delivered := make(map[string]bool)
	snapshotTaken := false

	err := uc.SubscribeMessages(ctx, conversationID, func(m domain.ChatMessage) {
		mu.Lock()
		if !snapshotTaken {
			delivered[m.ID] = true
		}
		mu.Unlock()
		handler(m)
	})
	if err != nil {
		return nil, err
	}

	history, err := uc.msgRepo.FindByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	snapshot := make([]domain.ChatMessage, 0, len(history))
	for _, m := range history {
		if !delivered[m.ID] {
			snapshot = append(snapshot, m)
		}
	}
	snapshotTaken = true
	mu.Unlock()
	return snapshot, nil
}

// SubscribeMessages deliver every message appended after this call,
// in order, until ctx is canceled
func (uc *SendMessageUseCase) SubscribeMessages(ctx context.Context, conversationID string, handler func(domain.ChatMessage)) error {
	return uc.pubsub.Subscribe(ctx, repository.ConversationChannel(conversationID), func(payload []byte) {
		var msg domain.ChatMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			log.Printf("unmarshal message error: %v", err)
			return
		}
		handler(msg)
	})
}
