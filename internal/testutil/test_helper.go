package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/dayeonkimm/vita-gamemate/internal/models"
	"gorm.io/gorm"
)

// TestHelper provides utility functions for tests
type TestHelper struct {
	t *testing.T
}

func NewTestHelper(t *testing.T) *TestHelper {
	return &TestHelper{t: t}
}

// CreateTestUser creates a test user with default values
func (h *TestHelper) CreateTestUser(id uint, nickname, email string) *models.User {
	if id == 0 {
		id = 1
	}
	if nickname == "" {
		nickname = "testuser"
	}
	if email == "" {
		email = "test@example.com"
	}

	return &models.User{
		ID:           id,
		Nickname:     nickname,
		Email:        email,
		PasswordHash: "hashed_password_123",
		ProfileImage: "https://example.com/profile.jpg",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}

// CreateTestMessage creates a test message with default values
func (h *TestHelper) CreateTestMessage(id, roomID, senderID uint, text string) *models.Message {
	if id == 0 {
		id = 1
	}
	if roomID == 0 {
		roomID = 1
	}
	if senderID == 0 {
		senderID = 1
	}
	if text == "" {
		text = "Test message"
	}

	return &models.Message{
		ID:        id,
		RoomID:    roomID,
		SenderID:  senderID,
		Text:      text,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Sender: models.User{
			ID:       senderID,
			Nickname: "sender",
			Email:    "sender@example.com",
		},
	}
}

// SetupTestEnv sets required environment variables for testing
func (h *TestHelper) SetupTestEnv() {
	os.Setenv("JWT_SECRET", "test-secret-key-for-testing-only")
	os.Setenv("PASSWORD_MIN_LENGTH", "8")
}

// TeardownTestEnv cleans up environment variables after testing
func (h *TestHelper) TeardownTestEnv() {
	os.Unsetenv("JWT_SECRET")
	os.Unsetenv("PASSWORD_MIN_LENGTH")
}

// AssertError checks if an error occurred when it should (or shouldn't)
func (h *TestHelper) AssertError(err error, shouldErr bool, testName string) {
	if (err != nil) != shouldErr {
		if shouldErr {
			h.t.Errorf("%s: expected error but got nil", testName)
		} else {
			h.t.Errorf("%s: unexpected error: %v", testName, err)
		}
	}
}

// AssertEqual checks if two values are equal
func (h *TestHelper) AssertEqual(got, want interface{}, testName string) {
	if got != want {
		h.t.Errorf("%s: got %v, want %v", testName, got, want)
	}
}

// AssertNotNil checks if a value is not nil
func (h *TestHelper) AssertNotNil(value interface{}, testName string) {
	if value == nil {
		h.t.Errorf("%s: expected non-nil value", testName)
	}
}

// GetRecordNotFoundError returns the gorm sentinel repositories surface for
// missing rows
func GetRecordNotFoundError() error {
	return gorm.ErrRecordNotFound
}
