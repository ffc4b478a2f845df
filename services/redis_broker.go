package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/go-redis/redis/v8"
)

// RedisBroker fans chat broadcasts out across nodes. Every broadcast goes
// through a redis channel per room; each node subscribes while it has local
// members and replays received frames into its local hub.
type RedisBroker struct {
	hub *Hub
	rdb *redis.Client

	mu   sync.Mutex
	subs map[string]*redis.PubSub
}

func NewRedisBroker(hub *Hub, rdb *redis.Client) *RedisBroker {
	return &RedisBroker{
		hub:  hub,
		rdb:  rdb,
		subs: make(map[string]*redis.PubSub),
	}
}

func roomChannel(roomName string) string {
	return "chat:" + roomName
}

func (b *RedisBroker) Join(roomName string, c *ChatClient) {
	b.hub.Join(roomName, c)

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[roomName]; ok {
		return
	}

	pubsub := b.rdb.Subscribe(context.Background(), roomChannel(roomName))
	b.subs[roomName] = pubsub
	go func() {
		for msg := range pubsub.Channel() {
			b.hub.BroadcastFrame(roomName, []byte(msg.Payload))
		}
	}()
}

func (b *RedisBroker) Leave(roomName string, c *ChatClient) {
	b.hub.Leave(roomName, c)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.hub.RoomSize(roomName) == 0 {
		if pubsub, ok := b.subs[roomName]; ok {
			_ = pubsub.Close()
			delete(b.subs, roomName)
		}
	}
}

func (b *RedisBroker) Broadcast(roomName string, payload any) {
	frame, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal broadcast for room %s: %v", roomName, err)
		return
	}
	if err := b.rdb.Publish(context.Background(), roomChannel(roomName), frame).Err(); err != nil {
		log.Printf("Failed to publish to %s: %v", roomChannel(roomName), err)
	}
}
