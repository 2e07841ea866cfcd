package app

import (
	"context"
	"errors"
	"log"
	"time"

	"trip_chat_service/internal/chat/domain"
	"trip_chat_service/internal/chat/repository"
	"trip_chat_service/pkg"
)

const defaultMarkReadRetry = 5

// ReadStateUseCase transactional read acknowledgement plus the exact
// unread count derived from per-participant watermarks
type ReadStateUseCase struct {
	convRepo repository.ConversationRepository
	msgRepo  repository.MessageRepository
	pubsub   repository.PubSub
	maxRetry int
}

// NewReadStateUseCase init read state use case
func NewReadStateUseCase(convRepo repository.ConversationRepository, msgRepo repository.MessageRepository, pubsub repository.PubSub, maxRetry int) *ReadStateUseCase {
	if maxRetry <= 0 {
		maxRetry = defaultMarkReadRetry
	}
	return &ReadStateUseCase{
		convRepo: convRepo,
		msgRepo:  msgRepo,
		pubsub:   pubsub,
		maxRetry: maxRetry,
	}
}

// MarkRead add userID to readBy and advance its watermark, as a
// read-modify-write guarded by the record version. Both participants'
// devices may race here; a lost version check retries with fresh state,
// so no membership is ever dropped. Retries are bounded: exhaustion
// surfaces ErrTransactionContention and the caller skips the update.
func (uc *ReadStateUseCase) MarkRead(ctx context.Context, conversationID, userID string) error {
	participants, err := domain.ParticipantsOf(conversationID)
	if err != nil {
		return err
	}
	if !pkg.Contains(participants, userID) {
		return domain.ErrInvalidParticipants
	}

	attempts := 0
	ensured := false
	for {
		conv, err := uc.convRepo.FindByID(ctx, conversationID)
		if errors.Is(err, domain.ErrConversationNotFound) {
			if ensured {
				return err
			}
			// a first read-state write creates the record implicitly
			now := time.Now().UnixMilli()
			if err := uc.convRepo.EnsureExists(ctx, conversationID, participants, userID, now); err != nil {
				return err
			}
			ensured = true
			continue
		}
		if err != nil {
			return err
		}

		readBy := pkg.AppendIfMissing(append([]string{}, conv.ReadBy...), userID)
		lastRead := make(map[string]int64, len(conv.LastRead)+1)
		for k, v := range conv.LastRead {
			lastRead[k] = v
		}
		lastRead[userID] = time.Now().UnixMilli()

		ok, err := uc.convRepo.CommitReadState(ctx, conversationID, conv.Version, readBy, lastRead)
		if err != nil {
			return err
		}
		if ok {
			// the badge of both sides changed: the reader's unread count
			// and the partner's readBy view
			for _, p := range participants {
				if err := uc.pubsub.Publish(ctx, repository.InboxChannel(p), conversationID); err != nil {
					log.Printf("Publish error: %v", err)
				}
			}
			return nil
		}

		attempts++
		if attempts >= uc.maxRetry {
			return domain.ErrTransactionContention
		}
		time.Sleep(time.Duration(attempts) * 10 * time.Millisecond)
	}
}

// Unread exact count of partner messages newer than the viewer's
// watermark. A conversation that does not exist yet has nothing unread.
func (uc *ReadStateUseCase) Unread(ctx context.Context, conversationID, viewerID string) (int, error) {
	conv, err := uc.convRepo.FindByID(ctx, conversationID)
	if errors.Is(err, domain.ErrConversationNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return uc.msgRepo.CountUnread(ctx, conversationID, viewerID, conv.LastRead[viewerID])
}
