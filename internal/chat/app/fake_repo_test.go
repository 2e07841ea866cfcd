package app

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"trip_chat_service/internal/chat/domain"
	"trip_chat_service/internal/chat/repository"
	"trip_chat_service/pkg"
)

// In-memory fakes for the end-to-end flow tests. They keep the store
// semantics the mongo and redis implementations have: versioned
// read-state commits, arrival seq allocation and channel fan-out.
// Fan-out is synchronous, so a test sees every delivery as soon as
// Publish returns.

type fakePubSub struct {
	mu       sync.Mutex
	handlers map[string][]func([]byte)
}

func newFakePubSub() *fakePubSub {
	return &fakePubSub{handlers: make(map[string][]func([]byte))}
}

func (f *fakePubSub) Publish(_ context.Context, channel string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	f.mu.Lock()
	hs := append([]func([]byte){}, f.handlers[channel]...)
	f.mu.Unlock()

	for _, h := range hs {
		h(data)
	}
	return nil
}

func (f *fakePubSub) Subscribe(_ context.Context, channel string, handler func(payload []byte)) error {
	f.mu.Lock()
	f.handlers[channel] = append(f.handlers[channel], handler)
	f.mu.Unlock()
	return nil
}

type fakeConversationRepository struct {
	mu    sync.Mutex
	convs map[string]*domain.Conversation
}

func newFakeConversationRepository() *fakeConversationRepository {
	return &fakeConversationRepository{convs: make(map[string]*domain.Conversation)}
}

func (f *fakeConversationRepository) Touch(_ context.Context, conversationID string, participants []string, senderID string, now int64) (int64, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	conv, ok := f.convs[conversationID]
	if !ok {
		conv = &domain.Conversation{ID: conversationID}
		f.convs[conversationID] = conv
	}
	conv.Participants = participants
	if now > conv.UpdatedAt {
		conv.UpdatedAt = now
	}
	conv.ReadBy = []string{senderID}
	conv.LastSeq++
	conv.Version++
	return conv.LastSeq, conv.UpdatedAt, nil
}

func (f *fakeConversationRepository) EnsureExists(_ context.Context, conversationID string, participants []string, readerID string, now int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.convs[conversationID]; ok {
		return nil
	}
	f.convs[conversationID] = &domain.Conversation{
		ID:           conversationID,
		Participants: participants,
		UpdatedAt:    now,
		ReadBy:       []string{readerID},
		LastRead:     map[string]int64{readerID: now},
	}
	return nil
}

func (f *fakeConversationRepository) FindByID(_ context.Context, conversationID string) (*domain.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	conv, ok := f.convs[conversationID]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	return copyConversation(conv), nil
}

func (f *fakeConversationRepository) FindByParticipant(_ context.Context, userID string) ([]domain.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var convs []domain.Conversation
	for _, conv := range f.convs {
		if pkg.Contains(conv.Participants, userID) {
			convs = append(convs, *copyConversation(conv))
		}
	}
	sort.Slice(convs, func(i, j int) bool {
		return convs[i].UpdatedAt > convs[j].UpdatedAt
	})
	return convs, nil
}

func (f *fakeConversationRepository) CommitReadState(_ context.Context, conversationID string, expectedVersion int64, readBy []string, lastRead map[string]int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	conv, ok := f.convs[conversationID]
	if !ok || conv.Version != expectedVersion {
		return false, nil
	}
	conv.ReadBy = append([]string{}, readBy...)
	conv.LastRead = make(map[string]int64, len(lastRead))
	for k, v := range lastRead {
		conv.LastRead[k] = v
	}
	conv.Version++
	return true, nil
}

func copyConversation(conv *domain.Conversation) *domain.Conversation {
	cp := *conv
	cp.Participants = append([]string{}, conv.Participants...)
	cp.ReadBy = append([]string{}, conv.ReadBy...)
	cp.LastRead = make(map[string]int64, len(conv.LastRead))
	for k, v := range conv.LastRead {
		cp.LastRead[k] = v
	}
	return &cp
}

type fakeMessageRepository struct {
	mu   sync.Mutex
	msgs map[string][]domain.ChatMessage
}

func newFakeMessageRepository() *fakeMessageRepository {
	return &fakeMessageRepository{msgs: make(map[string][]domain.ChatMessage)}
}

func (f *fakeMessageRepository) Insert(_ context.Context, msg *domain.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs[msg.ConversationID] = append(f.msgs[msg.ConversationID], *msg)
	return nil
}

func (f *fakeMessageRepository) FindByConversation(_ context.Context, conversationID string) ([]domain.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	msgs := append([]domain.ChatMessage{}, f.msgs[conversationID]...)
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Before(msgs[j]) })
	return msgs, nil
}

func (f *fakeMessageRepository) FindLast(_ context.Context, conversationID string) (*domain.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var last *domain.ChatMessage
	for i := range f.msgs[conversationID] {
		m := f.msgs[conversationID][i]
		if last == nil || last.Before(m) {
			last = &m
		}
	}
	return last, nil
}

func (f *fakeMessageRepository) CountUnread(_ context.Context, conversationID, viewerID string, afterTimestamp int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := 0
	for _, m := range f.msgs[conversationID] {
		if m.SenderID != viewerID && m.Timestamp > afterTimestamp {
			count++
		}
	}
	return count, nil
}

type fakePresenceRepository struct {
	mu     sync.Mutex
	recs   map[string]domain.PresenceRecord
	pubsub *fakePubSub
}

func newFakePresenceRepository(pubsub *fakePubSub) *fakePresenceRepository {
	return &fakePresenceRepository{
		recs:   make(map[string]domain.PresenceRecord),
		pubsub: pubsub,
	}
}

func (f *fakePresenceRepository) Set(ctx context.Context, userID string, rec domain.PresenceRecord) error {
	f.mu.Lock()
	f.recs[userID] = rec
	f.mu.Unlock()
	return f.pubsub.Publish(ctx, repository.UserPresenceChannel(userID), rec)
}

func (f *fakePresenceRepository) Get(_ context.Context, userID string) (domain.PresenceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recs[userID], nil
}

type fakeProfileClient struct {
	profiles map[string]domain.PartnerProfile
}

func (f *fakeProfileClient) GetProfile(_ context.Context, userID string) (domain.PartnerProfile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return domain.PartnerProfile{}, errors.New("profile not found")
	}
	return p, nil
}

type pushRecord struct {
	ToUserID string
	Title    string
	Body     string
}

type recordingNotificationClient struct {
	mu     sync.Mutex
	pushes []pushRecord
}

func (r *recordingNotificationClient) PushMessage(_ context.Context, toUserID, title, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushes = append(r.pushes, pushRecord{ToUserID: toUserID, Title: title, Body: body})
	return nil
}

func (r *recordingNotificationClient) all() []pushRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]pushRecord{}, r.pushes...)
}

// syncNotifier makes the async push dispatch observable: a test waits
// on done to know the decision (push or suppress) has been taken.
type syncNotifier struct {
	inner Notifier
	done  chan struct{}
}

func newSyncNotifier(inner Notifier) *syncNotifier {
	return &syncNotifier{inner: inner, done: make(chan struct{}, 16)}
}

func (n *syncNotifier) OnMessageSent(ctx context.Context, conversationID, senderID, recipientID, text string) {
	n.inner.OnMessageSent(ctx, conversationID, senderID, recipientID, text)
	n.done <- struct{}{}
}
