package app

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"trip_chat_service/internal/chat/domain"
	"trip_chat_service/internal/chat/repository"
)

// PresenceUseCase narrow write API over each user's presence record.
// The record has a single writer (the owner's connection); the only
// other mutation path is the disconnect hook registered here.
type PresenceUseCase struct {
	presenceRepo repository.PresenceRepository
	pubsub       repository.PubSub

	mu    sync.Mutex
	hooks map[string]func()
}

// NewPresenceUseCase init presence use case
func NewPresenceUseCase(presenceRepo repository.PresenceRepository, pubsub repository.PubSub) *PresenceUseCase {
	return &PresenceUseCase{
		presenceRepo: presenceRepo,
		pubsub:       pubsub,
		hooks:        make(map[string]func()),
	}
}

// GoOnline flip the record online and register the disconnect hook.
// Calling again while online is a no-op on the flag but the newest
// connection takes over the hook.
func (uc *PresenceUseCase) GoOnline(ctx context.Context, userID string) error {
	rec, err := uc.presenceRepo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !rec.Online {
		rec = domain.PresenceRecord{
			Online:   true,
			LastSeen: time.Now().UnixMilli(),
		}
		if err := uc.presenceRepo.Set(ctx, userID, rec); err != nil {
			return err
		}
	}

	uc.mu.Lock()
	uc.hooks[userID] = func() { uc.markOffline(userID) }
	uc.mu.Unlock()
	return nil
}

// GoOffline graceful offline transition, drops the disconnect hook
func (uc *PresenceUseCase) GoOffline(ctx context.Context, userID string) error {
	uc.mu.Lock()
	delete(uc.hooks, userID)
	uc.mu.Unlock()

	return uc.presenceRepo.Set(ctx, userID, domain.PresenceRecord{
		Online:   false,
		LastSeen: time.Now().UnixMilli(),
	})
}

// SetCurrentChat record which conversation the user is viewing.
// Pass "" when the user leaves the chat screen, otherwise the
// dispatcher keeps suppressing pushes the user no longer sees.
func (uc *PresenceUseCase) SetCurrentChat(ctx context.Context, userID, conversationID string) error {
	rec, err := uc.presenceRepo.Get(ctx, userID)
	if err != nil {
		return err
	}
	rec.CurrentChatID = conversationID
	rec.LastSeen = time.Now().UnixMilli()
	return uc.presenceRepo.Set(ctx, userID, rec)
}

// FireDisconnect run the registered hook for an abruptly dropped
// connection. Called from the server's connection teardown, never
// from client code. Firing without a registered hook is a no-op.
func (uc *PresenceUseCase) FireDisconnect(userID string) {
	uc.mu.Lock()
	hook := uc.hooks[userID]
	delete(uc.hooks, userID)
	uc.mu.Unlock()

	if hook != nil {
		hook()
	}
}

func (uc *PresenceUseCase) markOffline(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := uc.presenceRepo.Set(ctx, userID, domain.PresenceRecord{
		Online:   false,
		LastSeen: time.Now().UnixMilli(),
	})
	if err != nil {
		log.Printf("disconnect hook for %s: %v", userID, err)
	}
}

// Subscribe deliver the user's current record, then every change,
// until ctx is canceled
func (uc *PresenceUseCase) Subscribe(ctx context.Context, userID string, handler func(domain.PresenceRecord)) error {
	rec, err := uc.presenceRepo.Get(ctx, userID)
	if err != nil {
		return err
	}
	handler(rec)

	return uc.pubsub.Subscribe(ctx, repository.UserPresenceChannel(userID), func(payload []byte) {
		var rec domain.PresenceRecord
		if err := json.Unmarshal(payload, &rec); err != nil {
			log.Printf("unmarshal presence error: %v", err)
			return
		}
		handler(rec)
	})
}

// Get read the latest record, bypassing any cache
func (uc *PresenceUseCase) Get(ctx context.Context, userID string) (domain.PresenceRecord, error) {
	return uc.presenceRepo.Get(ctx, userID)
}
