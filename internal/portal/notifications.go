package portal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"maptss.ao/internal/model"
	"maptss.ao/internal/store"
)

// SendNotification stores an unread notification for userID and pushes it to
// live subscribers.
func (s *Service) SendNotification(ctx context.Context, userID, kind, message string) (n model.Notification, err error) {
	defer func() { observe("send_notification", err) }()

	if strings.TrimSpace(userID) == "" || strings.TrimSpace(kind) == "" {
		return model.Notification{}, fmt.Errorf("%w: notification needs a user and a type", ErrInvalidRequest)
	}
	n, err = s.repos.Notifications.Upsert(ctx, model.Notification{
		Meta:    model.Meta{ID: s.newID("notif")},
		UserID:  userID,
		Type:    kind,
		Message: message,
		SentAt:  s.stamp(),
	})
	if err != nil {
		return model.Notification{}, err
	}
	delivered := s.hub.Publish(n)
	s.logger.Debug("notification sent", "notification_id", n.ID, "user_id", userID, "type", kind, "delivered", delivered)
	return n, nil
}

// Notifications lists every notification addressed to userID.
func (s *Service) Notifications(ctx context.Context, userID string) ([]model.Notification, error) {
	out, err := s.repos.Notifications.ForUser(ctx, userID)
	observe("notifications", err)
	return out, err
}

func (s *Service) UnreadNotifications(ctx context.Context, userID string) ([]model.Notification, error) {
	out, err := s.repos.Notifications.Unread(ctx, userID)
	observe("unread_notifications", err)
	return out, err
}

// MarkNotificationRead flags a notification as read; repeating it is a no-op.
func (s *Service) MarkNotificationRead(ctx context.Context, id string) (n model.Notification, err error) {
	defer func() { observe("mark_notification_read", err) }()

	n, err = s.repos.Notifications.MarkRead(ctx, id, s.stamp())
	if errors.Is(err, store.ErrRecordNotFound) {
		return model.Notification{}, fmt.Errorf("%w: %s", ErrNotificationNotFound, id)
	}
	return n, err
}
