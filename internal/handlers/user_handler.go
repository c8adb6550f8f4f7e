package handlers

import (
	"errors"
	"fmt"
	"log"

	"github.com/dayeonkimm/vita-gamemate/internal/httpx"
	"github.com/dayeonkimm/vita-gamemate/internal/service"
	"github.com/dayeonkimm/vita-gamemate/internal/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type UserHandler struct {
	userService  *service.UserService
	profileStore *storage.S3Storage
}

func NewUserHandler(userService *service.UserService, profileStore *storage.S3Storage) *UserHandler {
	return &UserHandler{userService: userService, profileStore: profileStore}
}

func (h *UserHandler) GetCurrentUser(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_identity", "Missing identity")
	}

	user, err := h.userService.GetUser(userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return httpx.NotFound(c, "user_not_found", "User not found")
		}
		return httpx.Internal(c, "user_lookup_failed")
	}
	return c.JSON(user.ToResponse())
}

// UploadProfileImage stores a downscaled JPEG of the uploaded image and
// records its object URL on the user.
func (h *UserHandler) UploadProfileImage(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_identity", "Missing identity")
	}
	if h.profileStore == nil {
		return httpx.Error(c, fiber.StatusServiceUnavailable, "storage_unavailable", "Image storage is not configured")
	}

	current, err := h.userService.GetUser(userID)
	if err != nil {
		return httpx.Internal(c, "user_lookup_failed")
	}
	previousImage := current.ProfileImage

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return httpx.BadRequest(c, "missing_file", "An image file is required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return httpx.BadRequest(c, "unreadable_file", "Could not read uploaded file")
	}
	defer file.Close()

	data, contentType, size, err := storage.ProcessProfileImage(file, storage.DefaultProfileImageOptions())
	if err != nil {
		return httpx.BadRequest(c, "invalid_image", err.Error())
	}

	key := fmt.Sprintf("profiles/%d/%s.jpg", userID, uuid.NewString())
	url, err := h.profileStore.PutImage(c.Context(), key, data, size, contentType)
	if err != nil {
		log.Printf("profile image upload failed for user %d: %v", userID, err)
		return httpx.Internal(c, "upload_failed")
	}

	user, err := h.userService.UpdateProfileImage(userID, url)
	if err != nil {
		return httpx.Internal(c, "profile_update_failed")
	}

	// Drop the replaced object; an orphan is not worth failing the request.
	if key, ok := h.profileStore.KeyForURL(previousImage); ok {
		if err := h.profileStore.DeleteImage(c.Context(), key); err != nil {
			log.Printf("failed to delete old profile image %q for user %d: %v", key, userID, err)
		}
	}
	return c.JSON(user.ToResponse())
}
