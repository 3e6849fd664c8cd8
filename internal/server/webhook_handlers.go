package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/routeguard/routeguard/internal/guard"
	"github.com/routeguard/routeguard/internal/users"
)

const (
	webhookSignatureHeader = "Webhook-Signature"
	webhookSignaturePrefix = "sha256="

	eventUserCreated = "user.created"
	eventUserUpdated = "user.updated"
	eventUserDeleted = "user.deleted"
)

var (
	ErrWebhookNotConfigured = errors.New("webhook secret not configured")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
)

// WebhookEvent is the envelope the identity provider posts
type WebhookEvent struct {
	Type string          `json:"type" validate:"required"`
	Data json.RawMessage `json:"data" validate:"required"`
}

// WebhookUser is the user object carried by user.* events
type WebhookUser struct {
	ID                    string                `json:"id" validate:"required"`
	FirstName             string                `json:"first_name"`
	LastName              string                `json:"last_name"`
	PrimaryEmailAddressID string                `json:"primary_email_address_id"`
	EmailAddresses        []WebhookEmailAddress `json:"email_addresses" validate:"required,min=1,dive"`
	PublicMetadata        struct {
		Role string `json:"role"`
	} `json:"public_metadata"`
}

// WebhookDeletedUser is the object carried by user.deleted events
type WebhookDeletedUser struct {
	ID      string `json:"id" validate:"required"`
	Deleted bool   `json:"deleted"`
}

// WebhookEmailAddress is one of the user's email addresses
type WebhookEmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address" validate:"required,email"`
}

// primaryEmail returns the primary address, or the first one
func (u *WebhookUser) primaryEmail() string {
	for _, addr := range u.EmailAddresses {
		if addr.ID != "" && addr.ID == u.PrimaryEmailAddressID {
			return addr.EmailAddress
		}
	}
	return u.EmailAddresses[0].EmailAddress
}

func (u *WebhookUser) displayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// verifyWebhookSignature checks the hex HMAC-SHA256 of the raw body
func verifyWebhookSignature(secret string, body []byte, header string) error {
	if secret == "" {
		return ErrWebhookNotConfigured
	}

	signature, ok := strings.CutPrefix(header, webhookSignaturePrefix)
	if !ok {
		return ErrInvalidSignature
	}

	expected, err := hex.DecodeString(signature)
	if err != nil {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), expected) {
		return ErrInvalidSignature
	}

	return nil
}

// registerWebhook keeps local user records in sync with the identity provider
func (s *Server) registerWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	if err := verifyWebhookSignature(s.config.Auth.WebhookSecret, body, c.GetHeader(webhookSignatureHeader)); err != nil {
		if errors.Is(err, ErrWebhookNotConfigured) {
			respondWithError(c, s.logger, http.StatusServiceUnavailable, err, "Webhook not configured")
			return
		}
		respondWithError(c, s.logger, http.StatusUnauthorized, err, "Invalid signature")
		return
	}

	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}
	if err := s.validator.Struct(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch event.Type {
	case eventUserCreated, eventUserUpdated:
		s.syncWebhookUser(c, event.Data)
	case eventUserDeleted:
		s.deleteWebhookUser(c, event.Data)
	default:
		s.logger.Debug().Str("type", event.Type).Msg("Ignoring webhook event")
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
	}
}

func (s *Server) syncWebhookUser(c *gin.Context, raw json.RawMessage) {
	var data WebhookUser
	if err := json.Unmarshal(raw, &data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user payload"})
		return
	}
	if err := s.validator.Struct(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, created, err := s.usersService.Upsert(c.Request.Context(), users.ExternalUser{
		ExternalID: data.ID,
		Email:      data.primaryEmail(),
		Name:       data.displayName(),
		Role:       guard.Role(data.PublicMetadata.Role),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("external_id", data.ID).Msg("Failed to sync user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sync user"})
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"status": "synced", "user": newUserDetail(user)})
}

// deleteWebhookUser drops the local record, so sessions still naming the
// user fail their next role lookup
func (s *Server) deleteWebhookUser(c *gin.Context, raw json.RawMessage) {
	var data WebhookDeletedUser
	if err := json.Unmarshal(raw, &data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user payload"})
		return
	}
	if err := s.validator.Struct(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	deleted, err := s.usersService.DeleteByExternalID(c.Request.Context(), data.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("external_id", data.ID).Msg("Failed to delete user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}

	if !deleted {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
