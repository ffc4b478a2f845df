package controllers

import (
	"encoding/json"
	"log"
	"net/http"
	"sort"

	"github.com/nanuri-team/nanuri-backend/models"
	"github.com/nanuri-team/nanuri-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type ChatController struct {
	Broker services.RoomBroker
	Log    *services.MessageLogService
	Auth   *services.AuthService
}

func NewChatController(broker services.RoomBroker, msgLog *services.MessageLogService, auth *services.AuthService) *ChatController {
	return &ChatController{Broker: broker, Log: msgLog, Auth: auth}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // tighten behind ALB/CloudFront if needed
}

type chatEvent struct {
	Type    string `json:"type"`
	Format  string `json:"format"`
	Message string `json:"message"`
}

// ChatWS serves /ws/chat/:roomName. The query-string token is resolved before
// the upgrade; anonymous connections are refused and never occupy a room slot.
func (cc *ChatController) ChatWS(c *gin.Context) {
	roomName := c.Param("roomName")

	sender, ok := cc.Auth.ResolveQueryToken(c.Request.URL.RawQuery)
	if !ok {
		log.Printf("Rejected unauthenticated connection to room %s", roomName)
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := services.NewChatClient(roomName, sender, conn)
	cc.Broker.Join(roomName, client)
	log.Printf("'%s' joined room %s", sender, roomName)
	go client.WritePump()

	// One inbound event at a time per connection; leaving is safe on every
	// exit path, including connections that error mid-handshake.
	defer func() {
		cc.Broker.Leave(roomName, client)
		log.Printf("'%s' left room %s", sender, roomName)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var event chatEvent
		if err := json.Unmarshal(data, &event); err != nil {
			continue
		}

		switch event.Type {
		case "send_message":
			cc.handleSendMessage(c, client, event)
		case "load_messages":
			cc.handleLoadMessages(c, client)
		default:
			// Unrecognized events are dropped without a response.
		}
	}
}

func (cc *ChatController) handleSendMessage(c *gin.Context, client *services.ChatClient, event chatEvent) {
	if event.Message == "" {
		return
	}
	format := event.Format
	if format == "" {
		format = models.DefaultMessageFormat
	}

	groupName := "chat_" + client.Room
	record, err := cc.Log.Insert(c.Request.Context(), client.Room, client.Sender, groupName, event.Message, format)
	if err != nil {
		// The send is abandoned but the session stays up; nothing is
		// broadcast for a message that was never durably logged.
		log.Printf("Failed to store message from '%s' in room %s: %v", client.Sender, client.Room, err)
		return
	}

	cc.Broker.Broadcast(client.Room, gin.H{
		"message":    record.Message,
		"format":     record.Format,
		"sender":     record.MessageFrom,
		"created_at": record.CreatedAt,
	})
}

// handleLoadMessages replies with the room's full history, oldest first, to
// the requesting session only.
func (cc *ChatController) handleLoadMessages(c *gin.Context, client *services.ChatClient) {
	records, err := cc.Log.QueryByChannel(c.Request.Context(), client.Room)
	if err != nil {
		log.Printf("Failed to load history for room %s: %v", client.Room, err)
		return
	}
	sort.Slice(records, func(i, j int) bool { return records[i].MessageID < records[j].MessageID })
	if records == nil {
		records = []models.ChatMessage{}
	}

	frame, err := json.Marshal(gin.H{"message": records})
	if err != nil {
		log.Printf("Failed to marshal history for room %s: %v", client.Room, err)
		return
	}
	client.Enqueue(frame)
	log.Printf("'%s' loaded %d messages from room %s", client.Sender, len(records), client.Room)
}
