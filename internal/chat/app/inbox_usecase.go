package app

import (
	"context"
	"log"
	"sync"
	"time"

	"trip_chat_service/internal/chat/domain"
	"trip_chat_service/internal/chat/repository"
	"trip_chat_service/pkg"
)

const defaultProfileCacheTTL = time.Minute

// InboxUseCase compose the conversation list a user sees: partner
// profile, last message preview and unread count per conversation,
// ordered by latest activity
type InboxUseCase struct {
	convRepo repository.ConversationRepository
	msgRepo  repository.MessageRepository
	profiles repository.ProfileClient
	pubsub   repository.PubSub

	cacheTTL time.Duration
	mu       sync.Mutex
	cache    map[string]cachedProfile
}

type cachedProfile struct {
	profile   domain.PartnerProfile
	fetchedAt time.Time
}

// NewInboxUseCase init inbox use case
func NewInboxUseCase(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	profiles repository.ProfileClient,
	pubsub repository.PubSub,
	cacheTTL time.Duration,
) *InboxUseCase {
	if cacheTTL <= 0 {
		cacheTTL = defaultProfileCacheTTL
	}
	return &InboxUseCase{
		convRepo: convRepo,
		msgRepo:  msgRepo,
		profiles: profiles,
		pubsub:   pubsub,
		cacheTTL: cacheTTL,
		cache:    make(map[string]cachedProfile),
	}
}

// BuildInbox one aggregation pass over the user's conversations,
// already sorted by updatedAt descending by the store
func (uc *InboxUseCase) BuildInbox(ctx context.Context, userID string) ([]domain.ConversationSummary, error) {
	convs, err := uc.convRepo.FindByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		partnerID := pkg.Other(conv.Participants, userID)
		profile := uc.partnerProfile(ctx, partnerID)

		summary := domain.ConversationSummary{
			ConversationID: conv.ID,
			PartnerID:      partnerID,
			PartnerName:    profile.Name,
			PartnerAvatar:  profile.Avatar,
			LastTimestamp:  conv.UpdatedAt,
		}

		last, err := uc.msgRepo.FindLast(ctx, conv.ID)
		if err != nil {
			log.Printf("last message of %s: %v", conv.ID, err)
		} else if last != nil {
			summary.LastMessage = last.Text
			summary.LastTimestamp = last.Timestamp
		}

		unread, err := uc.msgRepo.CountUnread(ctx, conv.ID, userID, conv.LastRead[userID])
		if err != nil {
			log.Printf("unread count of %s: %v", conv.ID, err)
		} else {
			summary.UnreadCount = unread
		}

		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// partnerProfile fetch with a short-lived cache so repeated passes do
// not hammer the profile service. A failed lookup falls back to a
// placeholder and is not cached, the next pass can recover.
func (uc *InboxUseCase) partnerProfile(ctx context.Context, partnerID string) domain.PartnerProfile {
	uc.mu.Lock()
	if c, ok := uc.cache[partnerID]; ok && time.Since(c.fetchedAt) < uc.cacheTTL {
		uc.mu.Unlock()
		return c.profile
	}
	uc.mu.Unlock()

	profile, err := uc.profiles.GetProfile(ctx, partnerID)
	if err != nil {
		log.Printf("profile fetch %s: %v", partnerID, err)
		return domain.PartnerProfile{ID: partnerID, Name: "Unknown"}
	}

	uc.mu.Lock()
	uc.cache[partnerID] = cachedProfile{profile: profile, fetchedAt: time.Now()}
	uc.mu.Unlock()
	return profile
}

// SubscribeInbox deliver the current inbox, then a rebuilt one on
// every change to any of the user's conversations, until ctx cancel
func (uc *InboxUseCase) SubscribeInbox(ctx context.Context, userID string, handler func([]domain.ConversationSummary)) error {
	list, err := uc.BuildInbox(ctx, userID)
	if err != nil {
		return err
	}
	handler(list)

	return uc.pubsub.Subscribe(ctx, repository.InboxChannel(userID), func(_ []byte) {
		list, err := uc.BuildInbox(ctx, userID)
		if err != nil {
			log.Printf("rebuild inbox for %s: %v", userID, err)
			return
		}
		handler(list)
	})
}
