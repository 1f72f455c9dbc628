package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/devlinkhq/devlink-backend/internal/models"
)

const chatChannelPrefix = "chat:"

// Publisher is the producing side of the message fan-out channel.
// Delivery is best-effort, at-most-once; a failed publish never rolls
// back the persistence write that preceded it.
type Publisher interface {
	PublishNewMessage(ctx context.Context, chatID string, msg *models.Message) error
	PublishMessageRead(ctx context.Context, chatID, messageID, readerID string) error
}

// RedisBus publishes chat events on per-conversation Redis channels and
// feeds a single pattern subscription back into the local hub.
type RedisBus struct {
	client *redis.Client
	log    zerolog.Logger
}

func NewRedisBus(client *redis.Client, log zerolog.Logger) *RedisBus {
	return &RedisBus{client: client, log: log}
}

func (b *RedisBus) PublishNewMessage(ctx context.Context, chatID string, msg *models.Message) error {
	return b.publish(ctx, chatID, Event{
		EventType: EventNewMessage,
		Message:   msg,
		ChatID:    chatID,
	})
}

func (b *RedisBus) PublishMessageRead(ctx context.Context, chatID, messageID, readerID string) error {
	return b.publish(ctx, chatID, Event{
		EventType: EventMessageRead,
		MessageID: messageID,
		ReadBy:    readerID,
		ChatID:    chatID,
	})
}

func (b *RedisBus) publish(ctx context.Context, chatID string, evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, chatChannelPrefix+chatID, data).Err()
}

// Subscribe runs a single shared pattern subscription over every
// conversation channel and invokes handler for each decoded event.
// It reconnects with exponential backoff and returns when ctx is done.
func (b *RedisBus) Subscribe(ctx context.Context, handler func(chatID string, evt Event)) {
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		func() {
			pubsub := b.client.PSubscribe(ctx, chatChannelPrefix+"*")
			defer pubsub.Close()

			b.log.Info().Msg("chat subscriber started (pattern: chat:*)")

			for {
				msg, err := pubsub.ReceiveMessage(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					b.log.Error().Err(err).Msg("chat subscriber error")
					time.Sleep(backoff)
					backoff *= 2
					if backoff > 30*time.Second {
						backoff = 30 * time.Second
					}
					return
				}

				backoff = time.Second

				var evt Event
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					b.log.Error().Err(err).Msg("failed to unmarshal chat event")
					continue
				}

				handler(strings.TrimPrefix(msg.Channel, chatChannelPrefix), evt)
			}
		}()

		if ctx.Err() != nil {
			return
		}
	}
}
