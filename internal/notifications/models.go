package notifications

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Notification channels.
const (
	ChannelEmail    = "EMAIL"
	ChannelSMS      = "SMS"
	ChannelWhatsApp = "WHATSAPP"
)

// Delivery statuses.
const (
	StatusPending = "PENDING"
	StatusSent    = "SENT"
	StatusFailed  = "FAILED"
)

// Template is a stored message template. Body placeholders use {{name}}
// syntax and are filled from the send parameters.
type Template struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Code      string    `json:"code" gorm:"not null;index"`
	Channel   string    `json:"channel" gorm:"not null"`
	Language  string    `json:"language" gorm:"not null;default:fr"`
	Subject   string    `json:"subject" gorm:""`
	Body      string    `json:"body" gorm:"not null"`
	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// SentNotification is one notification fan-out across channels.
type SentNotification struct {
	ID        uuid.UUID      `json:"id" gorm:"primaryKey;type:uuid"`
	UserID    uuid.UUID      `json:"user_id" gorm:"type:uuid;not null;index"`
	Template  string         `json:"template" gorm:"not null"`
	Params    datatypes.JSON `json:"params" gorm:"type:jsonb"`
	Status    string         `json:"status" gorm:"not null"`
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

// DeliveryLog records one channel attempt for a notification.
type DeliveryLog struct {
	ID             uuid.UUID `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	NotificationID uuid.UUID `json:"notification_id" gorm:"type:uuid;not null;index"`
	Channel        string    `json:"channel" gorm:"not null"`
	Status         string    `json:"status" gorm:"not null"`
	ErrorMessage   string    `json:"error_message" gorm:""`
	Timestamp      time.Time `json:"timestamp" gorm:"autoCreateTime"`
}

// UserPreference holds a user's channel opt-ins and contact details.
type UserPreference struct {
	ID          uuid.UUID `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	UserID      uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex"`
	Email       string    `json:"email" gorm:""`
	PhoneNumber string    `json:"phone_number" gorm:""`
	EmailOptIn  bool      `json:"email_opt_in" gorm:"default:true"`
	SMSOptIn    bool      `json:"sms_opt_in" gorm:"default:true"`
	WhatsAppIn  bool      `json:"whatsapp_opt_in" gorm:"default:false"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Channels returns the channels the user accepts, in send order.
func (p *UserPreference) Channels() []string {
	channels := []string{}
	if p.SMSOptIn && p.PhoneNumber != "" {
		channels = append(channels, ChannelSMS)
	}
	if p.WhatsAppIn && p.PhoneNumber != "" {
		channels = append(channels, ChannelWhatsApp)
	}
	if p.EmailOptIn && p.Email != "" {
		channels = append(channels, ChannelEmail)
	}
	return channels
}
