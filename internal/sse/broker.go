package sse

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	redisclient "github.com/claudiator/server-go/internal/redis"
	"github.com/claudiator/server-go/internal/service"
)

const clientBuffer = 16

type Client struct {
	Events chan service.VersionSnapshot
	Done   chan struct{}
}

// Broker fans version snapshots out to stream subscribers. With redis
// configured, snapshots are relayed through pubsub so every instance's
// subscribers see them.
type Broker struct {
	redis   *redisclient.Client
	clients map[*Client]struct{}
	last    service.VersionSnapshot
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewBroker returns a broker. redisClient may be nil for single-instance use.
func NewBroker(redisClient *redisclient.Client) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Broker{
		redis:   redisClient,
		clients: make(map[*Client]struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
	if redisClient != nil {
		go b.subscribeToRedis()
	}
	return b
}

// Subscribe registers a client and primes it with the latest snapshot.
func (b *Broker) Subscribe(current service.VersionSnapshot) *Client {
	client := &Client{
		Events: make(chan service.VersionSnapshot, clientBuffer),
		Done:   make(chan struct{}),
	}
	client.Events <- current

	b.mu.Lock()
	b.clients[client] = struct{}{}
	count := len(b.clients)
	b.mu.Unlock()

	log.Debug().Int("clientCount", count).Msg("stream client subscribed")
	return client
}

func (b *Broker) Unsubscribe(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.clients[client]; ok {
		delete(b.clients, client)
		close(client.Done)
		log.Debug().Int("clientCount", len(b.clients)).Msg("stream client unsubscribed")
	}
}

// PublishVersions implements service.VersionListener.
func (b *Broker) PublishVersions(snap service.VersionSnapshot) {
	if b.redis == nil {
		b.broadcast(snap)
		return
	}

	data, err := json.Marshal(snap)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal version snapshot")
		return
	}
	if err := b.redis.Publish(b.ctx, redisclient.VersionsChannel, data).Err(); err != nil {
		log.Warn().Err(err).Msg("redis publish failed, delivering locally")
		b.broadcast(snap)
	}
}

func (b *Broker) subscribeToRedis() {
	pubsub := b.redis.Subscribe(b.ctx, redisclient.VersionsChannel)
	defer pubsub.Close()

	log.Debug().Str("channel", redisclient.VersionsChannel).Msg("redis pubsub subscribed")

	ch := pubsub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}

			var snap service.VersionSnapshot
			if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
				log.Error().Err(err).Msg("failed to unmarshal version snapshot")
				continue
			}
			b.broadcast(snap)
		}
	}
}

// broadcast delivers snap to every client. Snapshots are cumulative, so a
// client whose buffer is full simply misses an intermediate value.
func (b *Broker) broadcast(snap service.VersionSnapshot) {
	b.mu.Lock()
	b.last = Latest(b.last, snap)
	b.mu.Unlock()

	b.mu.RLock()
	defer b.mu.RUnlock()
	for client := range b.clients {
		select {
		case client.Events <- snap:
		default:
			log.Warn().Msg("stream client buffer full, dropping snapshot")
		}
	}
}

// Latest merges two snapshots field by field. Both counters only grow, so
// the larger value is always the fresher one.
func Latest(a, b service.VersionSnapshot) service.VersionSnapshot {
	return service.VersionSnapshot{
		DataVersion:         max(a.DataVersion, b.DataVersion),
		NotificationVersion: max(a.NotificationVersion, b.NotificationVersion),
	}
}

// Last returns the highest counters seen through the broker, including
// those relayed from other instances.
func (b *Broker) Last() service.VersionSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.last
}

func (b *Broker) Close() {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	for client := range b.clients {
		close(client.Done)
	}
	b.clients = make(map[*Client]struct{})
}

func (b *Broker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}
