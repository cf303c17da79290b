package settings

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the user-editable slice of the users table. Completion is
// recomputed on every update and feeds the trust score.
type Profile struct {
	UserID            uuid.UUID `json:"user_id" db:"id"`
	FullName          string    `json:"full_name" db:"full_name"`
	Email             string    `json:"email" db:"email"`
	PhoneNumber       string    `json:"phone_number" db:"phone_number"`
	Language          string    `json:"language" db:"language"`
	AvatarURL         string    `json:"avatar_url" db:"avatar_url"`
	Bio               string    `json:"bio" db:"bio"`
	ProfileCompletion float64   `json:"profile_completion" db:"profile_completion"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// ProfileUpdate carries the editable fields of a profile. Nil means keep the
// stored value.
type ProfileUpdate struct {
	FullName    *string `json:"full_name"`
	PhoneNumber *string `json:"phone_number"`
	Language    *string `json:"language"`
	AvatarURL   *string `json:"avatar_url"`
	Bio         *string `json:"bio"`
}

// PreferenceUpdate carries the editable notification settings.
type PreferenceUpdate struct {
	Email      *string `json:"email"`
	Phone      *string `json:"phone_number"`
	EmailOptIn *bool   `json:"email_opt_in"`
	SMSOptIn   *bool   `json:"sms_opt_in"`
	WhatsAppIn *bool   `json:"whatsapp_opt_in"`
}

// Completion scores the profile on its filled fields. Contact details weigh
// more than the free-form ones.
func (p *Profile) Completion() float64 {
	total := 0.0
	if p.FullName != "" {
		total += 0.25
	}
	if p.Email != "" {
		total += 0.20
	}
	if p.PhoneNumber != "" {
		total += 0.25
	}
	if p.AvatarURL != "" {
		total += 0.15
	}
	if p.Bio != "" {
		total += 0.15
	}
	return total
}
