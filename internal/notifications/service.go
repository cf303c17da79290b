package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service fans a notification out to the channels the user accepts. A failed
// channel is logged and recorded but never propagated to the caller of the
// triggering operation.
type Service struct {
	db        *gorm.DB
	templates *TemplateManager
	channels  map[string]Channel
	logger    *zap.Logger
}

func NewService(db *gorm.DB, templates *TemplateManager, logger *zap.Logger) (*Service, error) {
	if err := db.AutoMigrate(
		&Template{},
		&SentNotification{},
		&DeliveryLog{},
		&UserPreference{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate notification tables: %w", err)
	}

	return &Service{
		db:        db,
		templates: templates,
		channels:  map[string]Channel{},
		logger:    logger,
	}, nil
}

// RegisterChannel wires a delivery channel. Unregistered channels are skipped
// at send time.
func (s *Service) RegisterChannel(name string, channel Channel) {
	s.channels[name] = channel
}

// Send delivers the template to every channel the user has opted into.
// Returns the overall status; an error only when the notification could not
// be recorded at all.
func (s *Service) Send(ctx context.Context, userID uuid.UUID, templateCode string, params map[string]string) (string, error) {
	var pref UserPreference
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&pref).Error; err != nil {
		return "", fmt.Errorf("failed to load notification preferences: %w", err)
	}

	encoded, _ := json.Marshal(params)
	notification := &SentNotification{
		ID:       uuid.New(),
		UserID:   userID,
		Template: templateCode,
		Params:   encoded,
		Status:   StatusPending,
	}
	if err := s.db.WithContext(ctx).Create(notification).Error; err != nil {
		return "", fmt.Errorf("failed to record notification: %w", err)
	}

	sent := 0
	for _, channelName := range pref.Channels() {
		channel, ok := s.channels[channelName]
		if !ok {
			continue
		}
		if err := s.deliver(ctx, channel, channelName, &pref, notification, templateCode, params); err != nil {
			s.logger.Warn("Notification channel delivery failed",
				zap.String("user_id", userID.String()),
				zap.String("template", templateCode),
				zap.String("channel", channelName),
				zap.Error(err))
			continue
		}
		sent++
	}

	status := StatusFailed
	if sent > 0 {
		status = StatusSent
	}
	s.db.WithContext(ctx).Model(notification).Update("status", status)
	return status, nil
}

func (s *Service) deliver(ctx context.Context, channel Channel, channelName string, pref *UserPreference, notification *SentNotification, templateCode string, params map[string]string) error {
	subject, body, err := s.templates.Render(ctx, templateCode, channelName, "fr", params)
	if err != nil {
		s.logDelivery(ctx, notification.ID, channelName, StatusFailed, err)
		return err
	}

	recipient := pref.PhoneNumber
	if channelName == ChannelEmail {
		recipient = pref.Email
	}

	err = channel.Send(ctx, Message{Recipient: recipient, Subject: subject, Body: body})
	if err != nil {
		s.logDelivery(ctx, notification.ID, channelName, StatusFailed, err)
		return err
	}
	s.logDelivery(ctx, notification.ID, channelName, StatusSent, nil)
	return nil
}

func (s *Service) logDelivery(ctx context.Context, notificationID uuid.UUID, channel, status string, cause error) {
	entry := &DeliveryLog{
		NotificationID: notificationID,
		Channel:        channel,
		Status:         status,
	}
	if cause != nil {
		entry.ErrorMessage = cause.Error()
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		s.logger.Error("Failed to write delivery log", zap.Error(err))
	}
}

// Notify implements the fire-and-forget contract workflow services expect.
// Errors are swallowed after logging so state transitions never roll back on
// a messaging failure.
func (s *Service) Notify(ctx context.Context, recipient uuid.UUID, template string, params map[string]string) {
	if _, err := s.Send(ctx, recipient, template, params); err != nil {
		s.logger.Warn("Notification dropped",
			zap.String("user_id", recipient.String()),
			zap.String("template", template),
			zap.Error(err))
	}
}
