package services

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// RoomBroker is the chat relay contract: join/leave per room plus exhaustive
// broadcast to every currently joined member. The in-process Hub serves a
// single node; RedisBroker layers the same contract over redis pub/sub for
// multi-node deployments.
type RoomBroker interface {
	Join(roomName string, c *ChatClient)
	Leave(roomName string, c *ChatClient)
	Broadcast(roomName string, payload any)
}

const sendBufferSize = 256

// ChatClient is one websocket session registered in a room. Writes go through
// a buffered channel so that one slow reader never blocks fan-out to the rest
// of the room.
type ChatClient struct {
	Room   string
	Sender string

	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewChatClient(roomName, sender string, conn *websocket.Conn) *ChatClient {
	return &ChatClient{
		Room:   roomName,
		Sender: sender,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}
}

// Enqueue hands a frame to the client's writer. It reports false when the
// client is closed or the buffer is full, in which case the client is too far
// behind and gets dropped.
func (c *ChatClient) Enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// WritePump drains the send buffer onto the websocket. Runs in its own
// goroutine for the lifetime of the connection.
func (c *ChatClient) WritePump() {
	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		}
	}
}

func (c *ChatClient) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*ChatClient]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*ChatClient]struct{})}
}

func (h *Hub) Join(roomName string, c *ChatClient) {
	h.mu.Lock()
	if h.rooms[roomName] == nil {
		h.rooms[roomName] = make(map[*ChatClient]struct{})
	}
	h.rooms[roomName][c] = struct{}{}
	h.mu.Unlock()
}

// Leave removes the client and closes it. Safe to call for a client that never
// joined, which happens on abnormal disconnects.
func (h *Hub) Leave(roomName string, c *ChatClient) {
	h.mu.Lock()
	if set := h.rooms[roomName]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.rooms, roomName)
		}
	}
	h.mu.Unlock()
	c.Close()
}

func (h *Hub) Broadcast(roomName string, payload any) {
	frame, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal broadcast for room %s: %v", roomName, err)
		return
	}
	h.BroadcastFrame(roomName, frame)
}

// BroadcastFrame delivers an already-encoded frame to every member of the
// room. Clients whose buffers are full are dropped so the rest of the room
// keeps receiving.
func (h *Hub) BroadcastFrame(roomName string, frame []byte) {
	var stalled []*ChatClient

	h.mu.RLock()
	for c := range h.rooms[roomName] {
		if !c.Enqueue(frame) {
			stalled = append(stalled, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stalled {
		log.Printf("Dropping stalled client '%s' from room %s", c.Sender, roomName)
		h.Leave(roomName, c)
	}
}

// RoomSize reports the number of locally connected members.
func (h *Hub) RoomSize(roomName string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomName])
}
