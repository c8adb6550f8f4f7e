package handlers

import (
	"errors"
	"strconv"

	"github.com/dayeonkimm/vita-gamemate/internal/httpx"
	"github.com/dayeonkimm/vita-gamemate/internal/service"
	"github.com/gofiber/fiber/v2"
)

type ChatHandler struct {
	chatService *service.ChatService
	userService *service.UserService
}

func NewChatHandler(chatService *service.ChatService, userService *service.UserService) *ChatHandler {
	return &ChatHandler{chatService: chatService, userService: userService}
}

type createRoomInput struct {
	OtherUserNickname string `json:"other_user_nickname"`
}

// CreateRoom makes (or returns) the 1:1 room between the caller and the named
// user. 201 for a new room, 200 for an existing one.
func (h *ChatHandler) CreateRoom(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_identity", "Missing identity")
	}

	var input createRoomInput
	if err := c.BodyParser(&input); err != nil || input.OtherUserNickname == "" {
		return httpx.BadRequest(c, "missing_nickname", "other_user_nickname is required")
	}

	user, err := h.userService.GetUser(userID)
	if err != nil {
		return httpx.Internal(c, "user_lookup_failed")
	}

	summary, created, err := h.chatService.CreateOrGetRoom(user, input.OtherUserNickname)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return httpx.BadRequest(c, "unknown_nickname", "No user with that nickname exists")
		}
		return httpx.Internal(c, "room_create_failed")
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(summary)
}

// ListRooms returns the caller's rooms, newest activity first, each carrying
// the caller's own unread count.
func (h *ChatHandler) ListRooms(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_identity", "Missing identity")
	}

	rooms, err := h.chatService.ListRooms(userID)
	if err != nil {
		return httpx.Internal(c, "room_list_failed")
	}
	return c.JSON(fiber.Map{"results": rooms})
}

// ListMessages returns one page of a room's durable message history.
func (h *ChatHandler) ListMessages(c *fiber.Ctx) error {
	if _, err := httpx.LocalUint(c, "userID"); err != nil {
		return httpx.Unauthorized(c, "missing_identity", "Missing identity")
	}

	roomID, err := strconv.ParseUint(c.Params("room_id"), 10, 32)
	if err != nil || roomID == 0 {
		return httpx.BadRequest(c, "invalid_room_id", "room_id must be a positive integer")
	}

	page := c.QueryInt("page", 1)
	pageSize := c.QueryInt("page_size", 20)

	messages, total, err := h.chatService.RoomMessages(uint(roomID), page, pageSize)
	if err != nil {
		if errors.Is(err, service.ErrRoomNotFound) {
			return httpx.NotFound(c, "room_not_found", "Chat room not found")
		}
		return httpx.Internal(c, "message_list_failed")
	}

	return c.JSON(fiber.Map{
		"count":   total,
		"results": messages,
	})
}
