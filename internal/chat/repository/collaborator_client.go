package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"trip_chat_service/internal/chat/domain"
	errprocess "trip_chat_service/pkg/err"

	"github.com/gofiber/fiber/v2"
)

// ProfileClient definition external user-profile collaborator
type ProfileClient interface {
	GetProfile(ctx context.Context, userID string) (domain.PartnerProfile, error)
}

// NotificationClient definition external push-notification collaborator
type NotificationClient interface {
	PushMessage(ctx context.Context, toUserID, title, body string) error
}

// httpProfileClient call GET /user/{id} on the trip-listing API
type httpProfileClient struct {
	baseURL string
	timeout time.Duration
}

// NewHTTPProfileClient create a ProfileClient
func NewHTTPProfileClient(baseURL string, timeout time.Duration) ProfileClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &httpProfileClient{
		baseURL: baseURL,
		timeout: timeout,
	}
}

func (c *httpProfileClient) GetProfile(_ context.Context, userID string) (domain.PartnerProfile, error) {
	var profile domain.PartnerProfile

	agent := fiber.Get(c.baseURL + "/user/" + userID)
	agent.Timeout(c.timeout)

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return profile, fmt.Errorf("profile fetch %s: %w", userID, errs[0])
	}
	if code != fiber.StatusOK {
		return profile, errprocess.Set(fmt.Sprintf("profile fetch %s: status %d", userID, code))
	}

	// API wraps the record in a data envelope
	var resp struct {
		Data domain.PartnerProfile `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return profile, fmt.Errorf("profile fetch %s: %w", userID, err)
	}
	return resp.Data, nil
}

// httpNotificationClient call POST /notification/message, fire-and-forget
type httpNotificationClient struct {
	baseURL string
	timeout time.Duration
}

// NewHTTPNotificationClient create a NotificationClient
func NewHTTPNotificationClient(baseURL string, timeout time.Duration) NotificationClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &httpNotificationClient{
		baseURL: baseURL,
		timeout: timeout,
	}
}

func (c *httpNotificationClient) PushMessage(_ context.Context, toUserID, title, body string) error {
	agent := fiber.Post(c.baseURL + "/notification/message")
	agent.Timeout(c.timeout)
	agent.JSON(fiber.Map{
		"toUserId": toUserID,
		"title":    title,
		"body":     body,
	})

	code, _, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("push to %s: %w", toUserID, errs[0])
	}
	if code < fiber.StatusOK || code >= fiber.StatusMultipleChoices {
		return errprocess.Set(fmt.Sprintf("push to %s: status %d", toUserID, code))
	}
	return nil
}
