package handlers

import (
	"log"
	"strconv"

	"github.com/dayeonkimm/vita-gamemate/internal/cache"
	"github.com/dayeonkimm/vita-gamemate/internal/handlers/ws"
	"github.com/dayeonkimm/vita-gamemate/internal/service"
	"github.com/gofiber/websocket/v2"
)

// WebSocketHandler owns the socket endpoints: one per-room chat socket and
// one per-user chat-list socket. Both authenticate with a token query
// parameter before any group registration happens.
type WebSocketHandler struct {
	hub         *ws.Hub
	authService *service.AuthService
	chatService *service.ChatService
	unread      *service.UnreadService
	presence    *cache.PresenceTracker
	buffer      *cache.MessageBuffer
}

func NewWebSocketHandler(
	hub *ws.Hub,
	authService *service.AuthService,
	chatService *service.ChatService,
	unread *service.UnreadService,
	presence *cache.PresenceTracker,
	buffer *cache.MessageBuffer,
) *WebSocketHandler {
	return &WebSocketHandler{
		hub:         hub,
		authService: authService,
		chatService: chatService,
		unread:      unread,
		presence:    presence,
		buffer:      buffer,
	}
}

// GetHub exposes the hub so REST handlers can publish into it.
func (h *WebSocketHandler) GetHub() *ws.Hub {
	return h.hub
}

// HandleRoomSocket serves /ws/chat/:room_id. Pre-accept failures (bad token,
// unknown room) close the socket without any error frame.
func (h *WebSocketHandler) HandleRoomSocket(c *websocket.Conn) {
	user, err := h.authService.ResolveUser(c.Query("token"))
	if err != nil {
		log.Printf("room socket auth failed: %v", err)
		_ = c.Close()
		return
	}

	roomID, err := strconv.ParseUint(c.Params("room_id"), 10, 32)
	if err != nil || roomID == 0 {
		log.Printf("room socket got invalid room id %q", c.Params("room_id"))
		_ = c.Close()
		return
	}

	client := ws.NewClient(c)
	session := ws.NewRoomSession(h.hub, client, uint(roomID), user, h.chatService, h.presence, h.unread, h.buffer)
	if err := session.Connect(); err != nil {
		log.Printf("room socket connect failed for user %d room %d: %v", user.ID, roomID, err)
		client.Close()
		return
	}
	defer session.Disconnect()

	log.Printf("user %d connected to room %d", user.ID, roomID)
	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			break
		}
		session.Receive(raw)
	}
	log.Printf("user %d disconnected from room %d", user.ID, roomID)
}

// HandleListSocket serves /ws/chat/list.
func (h *WebSocketHandler) HandleListSocket(c *websocket.Conn) {
	user, err := h.authService.ResolveUser(c.Query("token"))
	if err != nil {
		log.Printf("list socket auth failed: %v", err)
		_ = c.Close()
		return
	}

	client := ws.NewClient(c)
	session := ws.NewListSession(h.hub, client, user)
	session.Connect()
	defer session.Disconnect()

	log.Printf("user %d connected to chat list", user.ID)
	for {
		// The list socket is push-only; inbound frames are drained and
		// ignored, and a read error ends the session.
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}
	log.Printf("user %d disconnected from chat list", user.ID)
}
