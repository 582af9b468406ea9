package handlers

import (
	"log"
	"os"

	"github.com/codye1/chat.online.api/internal/handlers/ws"
	"github.com/codye1/chat.online.api/internal/service"
	"github.com/gofiber/websocket/v2"
)

type WebSocketHandler struct {
	conversationService *service.ConversationService
	messageService      *service.MessageService
	userService         *service.UserService
	presenceService     *service.PresenceService
	readReceiptService  *service.ReadReceiptService
	hub                 *ws.Hub
}

func NewWebSocketHandler(
	conversationService *service.ConversationService,
	messageService *service.MessageService,
	userService *service.UserService,
	presenceService *service.PresenceService,
	readReceiptService *service.ReadReceiptService,
) *WebSocketHandler {
	return &WebSocketHandler{
		conversationService: conversationService,
		messageService:      messageService,
		userService:         userService,
		presenceService:     presenceService,
		readReceiptService:  readReceiptService,
		hub:                 ws.NewHub(),
	}
}

// GetHub returns the hub instance (useful for sending messages from other handlers)
func (h *WebSocketHandler) GetHub() *ws.Hub {
	return h.hub
}

func (h *WebSocketHandler) HandleWebSocket(c *websocket.Conn) {
	userID := c.Locals("userID").(uint)
	wsDebug := os.Getenv("WS_DEBUG") == "true"

	// Check if client supports gzip compression (via query param or header)
	supportsGzip := c.Query("gzip") == "1" || c.Headers("X-Supports-Gzip") == "1"

	// Register client in hub; this also joins the private user room.
	client := h.hub.Register(userID, c, supportsGzip)

	// Connect counts as activity: record last-seen and push to subscribers.
	go func() {
		lastSeen, err := h.presenceService.Touch(userID)
		if err != nil {
			log.Printf("Failed to touch presence for user %d: %v", userID, err)
			return
		}
		h.hub.EmitToRoom(ws.PresenceRoom(userID), "lastSeenAt:update", ws.LastSeenEvent{
			UserID:     userID,
			LastSeenAt: lastSeen,
		})
	}()

	// Disconnect tears down subscriptions only; the last recorded presence
	// timestamp stands.
	defer h.hub.Unregister(client)

	log.Printf("User %d connected via WebSocket", userID)

	ctx := &ws.MessageContext{
		UserID:        userID,
		Caller:        client,
		Broadcaster:   h.hub,
		Conversations: h.conversationService,
		Messages:      h.messageService,
		Users:         h.userService,
		Presence:      h.presenceService,
		ReadReceipts:  h.readReceiptService,
	}

	// Handle incoming messages
	for {
		messageType, messageBytes, err := c.ReadMessage()
		if err != nil {
			log.Printf("Error reading message from user %d: %v", userID, err)
			break
		}

		if wsDebug {
			log.Printf("ws_recv user_id=%d frame_type=%d size=%d", userID, messageType, len(messageBytes))
		}

		// Decompress if binary message (gzip compressed)
		if messageType == websocket.BinaryMessage {
			decompressed, err := ws.DecompressMessage(messageBytes)
			if err != nil {
				log.Printf("Error decompressing message from user %d: %v", userID, err)
				ws.SendError(client, "decompression_failed", "Failed to decompress message", err.Error())
				continue
			}
			messageBytes = decompressed
		}

		// Deserialize message
		msg, err := ws.Deserialize(messageBytes)
		if err != nil {
			log.Printf("Error deserializing message from user %d: %v", userID, err)
			ws.SendError(client, "invalid_message", "Invalid message format", err.Error())
			continue
		}

		// Process message. Domain denials are reported inside Process;
		// anything escaping here is unexpected and kept generic.
		if err := msg.Process(ctx); err != nil {
			log.Printf("Error processing message %s from user %d: %v", msg.GetType(), userID, err)
			ws.SendError(client, "processing_failed", "Failed to process message", "")
		}
	}

	log.Printf("User %d disconnected from WebSocket", userID)
}
