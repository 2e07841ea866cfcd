package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"trip_chat_service/pkg/logger"

	"github.com/go-redis/redis/v8"
)

// ConversationChannel live message stream channel of one conversation
func ConversationChannel(conversationID string) string {
	return "chat:conv:" + conversationID
}

// UserPresenceChannel live presence stream channel of one user
func UserPresenceChannel(userID string) string {
	return "presence:user:" + userID
}

// InboxChannel inbox invalidation channel of one user
func InboxChannel(userID string) string {
	return "inbox:user:" + userID
}

// PubSub definition live fan-out between connections
type PubSub interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	// Subscribe deliver every payload published to channel after this
	// call, until ctx is canceled. Resubscribes itself on a dropped
	// connection and resumes from current state.
	Subscribe(ctx context.Context, channel string, handler func(payload []byte)) error
}

// RedisPubSub definition redis pub/sub
type RedisPubSub struct {
	client *redis.Client
}

// NewRedisPubSub create RedisPubSub
func NewRedisPubSub(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{client: client}
}

// Publish serialize message and publish it to channel
func (r *RedisPubSub) Publish(ctx context.Context, channel string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, channel, data).Err()
}

// Subscribe listen on channel until ctx cancel, payloads go to handler
func (r *RedisPubSub) Subscribe(ctx context.Context, channel string, handler func(payload []byte)) error {
	sub := r.client.Subscribe(ctx, channel)
	go func() {
		defer sub.Close()
		ch := sub.Channel()

		for {
			select {
			case m, ok := <-ch:
				if !ok {
					select {
					case <-ctx.Done():
						return
					default:
					}
					// dropped connection, resubscribe and resume live
					sub.Close()
					sub = r.client.Subscribe(ctx, channel)
					ch = sub.Channel()
					continue
				}
				handler([]byte(m.Payload))
			case <-ctx.Done():
				logger.Log.Info(fmt.Sprintf("%s , sub close", channel))
				return
			}
		}
	}()
	return nil
}
