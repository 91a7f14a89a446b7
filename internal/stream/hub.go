// Package stream pushes journey status changes to websocket subscribers. With
// redis configured, every instance publishes to and fans out from the same
// pub/sub channels so a client sees updates made on any instance.
package stream

import (
	"context"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	channelPrefix  = "journeys:"
	channelSuffix  = ":status"
	channelPattern = channelPrefix + "*" + channelSuffix
)

type Hub struct {
	redis   *redis.Client
	pubsub  *redis.PubSub
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	JourneyID string
	Send      chan []byte
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		redis:   redisClient,
		clients: map[string]map[*Client]struct{}{},
	}

	if redisClient != nil {
		ctx := context.Background()
		pubsub := redisClient.PSubscribe(ctx, channelPattern)
		if _, err := pubsub.Receive(ctx); err != nil {
			log.WithError(err).Warn("redis subscribe failed; journey updates stay local")
			_ = pubsub.Close()
			h.redis = nil
		} else {
			h.pubsub = pubsub
			go h.subscribeRedis()
		}
	}
	return h
}

func (h *Hub) Register(journeyID string) *Client {
	client := &Client{
		JourneyID: journeyID,
		Send:      make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[journeyID] == nil {
		h.clients[journeyID] = map[*Client]struct{}{}
	}
	h.clients[journeyID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	journeyClients, ok := h.clients[client.JourneyID]
	if !ok {
		return
	}
	if _, ok := journeyClients[client]; !ok {
		return
	}
	delete(journeyClients, client)
	if len(journeyClients) == 0 {
		delete(h.clients, client.JourneyID)
	}
	close(client.Send)
}

// Broadcast sends payload to every subscriber of the journey. When redis is
// available delivery goes through pub/sub, including to local clients.
func (h *Hub) Broadcast(journeyID string, payload []byte) {
	if h.redis != nil {
		err := h.redis.Publish(context.Background(), redisChannel(journeyID), payload).Err()
		if err == nil {
			return
		}
		log.WithError(err).WithField("journey_id", journeyID).Warn("redis publish failed; delivering locally")
	}
	h.deliver(journeyID, payload)
}

// deliver holds the read lock while sending so Unregister cannot close a
// channel mid-send. Slow clients drop messages rather than block.
func (h *Hub) deliver(journeyID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[journeyID] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) subscribeRedis() {
	for msg := range h.pubsub.Channel() {
		journeyID := journeyIDFromChannel(msg.Channel)
		if journeyID == "" {
			continue
		}
		h.deliver(journeyID, []byte(msg.Payload))
	}
}

func (h *Hub) Close() error {
	if h.pubsub != nil {
		return h.pubsub.Close()
	}
	return nil
}

func redisChannel(journeyID string) string {
	return channelPrefix + journeyID + channelSuffix
}

func journeyIDFromChannel(ch string) string {
	if len(ch) <= len(channelPrefix)+len(channelSuffix) {
		return ""
	}
	if !strings.HasPrefix(ch, channelPrefix) || !strings.HasSuffix(ch, channelSuffix) {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}
