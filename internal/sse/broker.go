package sse

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	redisclient "github.com/NgouanKoffi/fullmargin-live/internal/redis"
)

const (
	HeartbeatInterval = 30 * time.Second
)

// Event types published on community channels.
const (
	EventSessionScheduled = "session_scheduled"
	EventSessionUpdated   = "session_updated"
	EventSessionLive      = "session_live"
	EventSessionEnded     = "session_ended"
	EventSessionCancelled = "session_cancelled"
)

type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type Client struct {
	CommunityID string
	Events      chan Event
	Done        chan struct{}
}

// Broker fans redis pubsub session events out to the SSE clients watching
// each community.
type Broker struct {
	redis   *redisclient.Client
	clients map[string]map[*Client]bool // communityID -> set of clients
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewBroker(redisClient *redisclient.Client) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{
		redis:   redisClient,
		clients: make(map[string]map[*Client]bool),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (b *Broker) Subscribe(communityID string) *Client {
	client := &Client{
		CommunityID: communityID,
		Events:      make(chan Event, 100),
		Done:        make(chan struct{}),
	}

	b.mu.Lock()
	if b.clients[communityID] == nil {
		b.clients[communityID] = make(map[*Client]bool)
		go b.subscribeToRedis(communityID)
	}
	b.clients[communityID][client] = true
	clientCount := len(b.clients[communityID])
	b.mu.Unlock()

	log.Info().
		Str("communityId", communityID).
		Int("clientCount", clientCount).
		Msg("sse client subscribed")

	return client
}

func (b *Broker) Unsubscribe(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if clients, ok := b.clients[client.CommunityID]; ok {
		delete(clients, client)
		close(client.Done)

		if len(clients) == 0 {
			delete(b.clients, client.CommunityID)
		}

		log.Info().
			Str("communityId", client.CommunityID).
			Int("clientCount", len(clients)).
			Msg("sse client unsubscribed")
	}
}

func (b *Broker) Publish(ctx context.Context, communityID string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	channel := redisclient.LiveChannel(communityID)
	return b.redis.Publish(ctx, channel, data).Err()
}

func (b *Broker) subscribeToRedis(communityID string) {
	channel := redisclient.LiveChannel(communityID)
	pubsub := b.redis.Subscribe(b.ctx, channel)
	defer pubsub.Close()

	log.Debug().
		Str("communityId", communityID).
		Str("channel", channel).
		Msg("redis pubsub subscribed")

	ch := pubsub.Channel()

	for {
		select {
		case <-b.ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Error().Err(err).Msg("failed to unmarshal event")
				continue
			}

			b.broadcast(communityID, event)
		}
	}
}

func (b *Broker) broadcast(communityID string, event Event) {
	b.mu.RLock()
	clients := b.clients[communityID]
	b.mu.RUnlock()

	for client := range clients {
		select {
		case client.Events <- event:
		default:
			log.Warn().
				Str("communityId", communityID).
				Msg("client event buffer full, dropping event")
		}
	}
}

func (b *Broker) Close() {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, clients := range b.clients {
		for client := range clients {
			close(client.Done)
		}
	}
	b.clients = make(map[string]map[*Client]bool)
}

func (b *Broker) ClientCount(communityID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients[communityID])
}
