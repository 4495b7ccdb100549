// Package stream fans live ride updates out to websocket subscribers.
package stream

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/redis/go-redis/v9"
)

const (
	channelPrefix  = "riding:"
	channelSuffix  = ":live"
	channelPattern = channelPrefix + "*" + channelSuffix
)

// Hub tracks websocket clients per riding session. With Redis configured
// every update goes through pub/sub so all replicas deliver it; without it
// delivery is local only.
type Hub struct {
	redis   *redis.Client
	pubsub  *redis.PubSub
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
	done    chan struct{}
}

type Client struct {
	SessionID string
	Send      chan []byte
}

// Message is the JSON frame written to subscribers.
type Message struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id"`
	SentAt    time.Time `json:"sent_at"`
	Data      any       `json:"data"`
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		redis:   redisClient,
		clients: map[string]map[*Client]struct{}{},
		done:    make(chan struct{}),
	}

	if redisClient != nil {
		ctx := context.Background()
		h.pubsub = redisClient.PSubscribe(ctx, channelPattern)
		if _, err := h.pubsub.Receive(ctx); err != nil {
			log.WithError(err).Warn("redis subscribe failed, live updates stay local")
			_ = h.pubsub.Close()
			h.pubsub = nil
		} else {
			go h.subscribeRedis()
		}
	}
	if h.pubsub == nil {
		close(h.done)
	}
	return h
}

func (h *Hub) Register(sessionID string) *Client {
	client := &Client{
		SessionID: sessionID,
		Send:      make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[sessionID] == nil {
		h.clients[sessionID] = map[*Client]struct{}{}
	}
	h.clients[sessionID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sessionClients, ok := h.clients[client.SessionID]; ok {
		if _, ok := sessionClients[client]; !ok {
			return
		}
		delete(sessionClients, client)
		if len(sessionClients) == 0 {
			delete(h.clients, client.SessionID)
		}
		close(client.Send)
	}
}

// Subscribers returns the number of local clients watching a session.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

func (h *Hub) Broadcast(sessionID string, payload []byte) {
	if h.pubsub != nil {
		err := h.redis.Publish(context.Background(), redisChannel(sessionID), payload).Err()
		if err == nil {
			return
		}
		log.WithError(err).WithField("session_id", sessionID).Warn("redis publish failed")
	}
	h.deliver(sessionID, payload)
}

// Publish wraps data in a Message and broadcasts it.
func (h *Hub) Publish(sessionID, kind string, data any) error {
	payload, err := json.Marshal(Message{
		Type:      kind,
		SessionID: sessionID,
		SentAt:    time.Now().UTC(),
		Data:      data,
	})
	if err != nil {
		return err
	}
	h.Broadcast(sessionID, payload)
	return nil
}

// deliver never blocks: a client whose buffer is full misses the frame.
func (h *Hub) deliver(sessionID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[sessionID] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) subscribeRedis() {
	defer close(h.done)
	for msg := range h.pubsub.Channel() {
		sessionID := sessionIDFromChannel(msg.Channel)
		if sessionID == "" {
			continue
		}
		h.deliver(sessionID, []byte(msg.Payload))
	}
}

// Close stops the Redis subscriber.
func (h *Hub) Close() error {
	if h.pubsub == nil {
		return nil
	}
	err := h.pubsub.Close()
	<-h.done
	return err
}

func redisChannel(sessionID string) string {
	return channelPrefix + sessionID + channelSuffix
}

// riding:{session}:live
func sessionIDFromChannel(ch string) string {
	if len(ch) <= len(channelPrefix)+len(channelSuffix) ||
		!strings.HasPrefix(ch, channelPrefix) || !strings.HasSuffix(ch, channelSuffix) {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}
