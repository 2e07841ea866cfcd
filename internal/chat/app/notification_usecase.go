package app

import (
	"context"
	"log"

	"trip_chat_service/internal/chat/repository"
)

// NotificationUseCase presence-gated push dispatch. Best effort: a
// failed push is logged and forgotten, the message itself is already
// durable by the time this runs.
type NotificationUseCase struct {
	presenceRepo repository.PresenceRepository
	profiles     repository.ProfileClient
	notify       repository.NotificationClient
}

// NewNotificationUseCase init notification use case
func NewNotificationUseCase(
	presenceRepo repository.PresenceRepository,
	profiles repository.ProfileClient,
	notify repository.NotificationClient,
) *NotificationUseCase {
	return &NotificationUseCase{
		presenceRepo: presenceRepo,
		profiles:     profiles,
		notify:       notify,
	}
}

// OnMessageSent push to the recipient unless it is actively viewing
// this conversation. Presence is read fresh at send time, never from
// a cache that could lag behind a screen change.
func (uc *NotificationUseCase) OnMessageSent(ctx context.Context, conversationID, senderID, recipientID, text string) {
	rec, err := uc.presenceRepo.Get(ctx, recipientID)
	if err != nil {
		// unknown presence counts as not viewing, push anyway
		log.Printf("presence read for %s: %v", recipientID, err)
	}
	if rec.Viewing(conversationID) {
		// the live subscription already delivers this message
		return
	}

	title := senderID
	if prof, err := uc.profiles.GetProfile(ctx, senderID); err == nil && prof.Name != "" {
		title = prof.Name
	}

	if err := uc.notify.PushMessage(ctx, recipientID, title, text); err != nil {
		log.Printf("push notification to %s: %v", recipientID, err)
	}
}
