package notification

import (
	"context"
	"errors"
	"fmt"
)

// Common errors
var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrNotRecipient         = errors.New("not the recipient of this notification")
)

// Service handles notification business logic
type Service struct {
	repo *Repository
}

// NewService creates a new notification service
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// ListByRecipientID retrieves notifications for a user
func (s *Service) ListByRecipientID(ctx context.Context, recipientID int64, page, perPage int, unreadOnly bool) ([]*Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.repo.ListByRecipientID(ctx, recipientID, perPage, offset, unreadOnly)
}

// MarkAsRead marks a notification as read. Only the recipient may do so.
func (s *Service) MarkAsRead(ctx context.Context, id, userID int64) error {
	notification, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if notification == nil {
		return ErrNotificationNotFound
	}
	if notification.RecipientID != userID {
		return ErrNotRecipient
	}

	return s.repo.MarkAsRead(ctx, id)
}

// MarkAllAsRead marks all notifications as read for a user
func (s *Service) MarkAllAsRead(ctx context.Context, userID int64) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

// GetUnreadCount returns the count of unread notifications
func (s *Service) GetUnreadCount(ctx context.Context, userID int64) (int, error) {
	return s.repo.GetUnreadCount(ctx, userID)
}

// Helpers for the notification kinds produced by state transitions. These
// are fire-and-forget side effects; failures are returned but callers are
// free to ignore them.

// NotifyEventCreated tells a group member's user about a new sitting request
func (s *Service) NotifyEventCreated(ctx context.Context, recipientID int64, creatorFamilyName, eventName string, eventID int64) error {
	message := fmt.Sprintf("%s is looking for a sitter: %s", creatorFamilyName, eventName)
	entityType := "EVENT"
	_, err := s.repo.Create(ctx, recipientID, TypeEventCreated, message, &entityType, &eventID)
	return err
}

// NotifyEventAccepted tells the creator family's user their request was taken
func (s *Service) NotifyEventAccepted(ctx context.Context, recipientID int64, acceptorName, eventName string, eventID int64) error {
	message := fmt.Sprintf("%s accepted your sitting request: %s", acceptorName, eventName)
	entityType := "EVENT"
	_, err := s.repo.Create(ctx, recipientID, TypeEventAccepted, message, &entityType, &eventID)
	return err
}

// NotifyEventCancelled tells the creator family's user an acceptance was withdrawn
func (s *Service) NotifyEventCancelled(ctx context.Context, recipientID int64, eventName string, eventID int64) error {
	message := fmt.Sprintf("The sitter for %s withdrew; the request is open again", eventName)
	entityType := "EVENT"
	_, err := s.repo.Create(ctx, recipientID, TypeEventCancelled, message, &entityType, &eventID)
	return err
}

// NotifyFamilyInvitation tells a user they were invited to join a family
func (s *Service) NotifyFamilyInvitation(ctx context.Context, recipientID int64, familyName string, invitationID int64) error {
	message := fmt.Sprintf("You have been invited to join the %s family", familyName)
	entityType := "INVITATION"
	_, err := s.repo.Create(ctx, recipientID, TypeFamilyInvitation, message, &entityType, &invitationID)
	return err
}
