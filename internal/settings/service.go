package settings

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SOMET1010/montoitv6-sub000/internal/notifications"
	"github.com/SOMET1010/montoitv6-sub000/pkg/errs"
)

var supportedLanguages = map[string]bool{"fr": true, "en": true}

// Service manages user profiles and notification preferences. Preferences
// live in the notification tables so the delivery pipeline reads them
// directly.
type Service struct {
	repo      Repository
	prefs     *gorm.DB
	logger    *zap.Logger
	recompute func(ctx context.Context, userID uuid.UUID, reason string)
}

func NewService(repo Repository, prefs *gorm.DB, logger *zap.Logger) *Service {
	return &Service{repo: repo, prefs: prefs, logger: logger}
}

// SetScoreRecomputeHook registers the callback invoked after a profile
// update, so completion changes flow into the trust score.
func (s *Service) SetScoreRecomputeHook(hook func(ctx context.Context, userID uuid.UUID, reason string)) {
	s.recompute = hook
}

func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	return s.repo.GetProfile(ctx, userID)
}

// UpdateProfile applies the non-nil fields and recomputes completion.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, update *ProfileUpdate) (*Profile, error) {
	if update.Language != nil && !supportedLanguages[*update.Language] {
		return nil, errs.NewValidation("unsupported language", "language")
	}

	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if update.FullName != nil {
		profile.FullName = *update.FullName
	}
	if update.PhoneNumber != nil {
		profile.PhoneNumber = *update.PhoneNumber
	}
	if update.Language != nil {
		profile.Language = *update.Language
	}
	if update.AvatarURL != nil {
		profile.AvatarURL = *update.AvatarURL
	}
	if update.Bio != nil {
		profile.Bio = *update.Bio
	}

	previous := profile.ProfileCompletion
	profile.ProfileCompletion = profile.Completion()
	if err := s.repo.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}

	s.logger.Info("Profile updated",
		zap.String("user_id", userID.String()),
		zap.Float64("completion", profile.ProfileCompletion))

	if s.recompute != nil && profile.ProfileCompletion != previous {
		s.recompute(ctx, userID, "profile completion changed")
	}
	return profile, nil
}

func (s *Service) GetPreferences(ctx context.Context, userID uuid.UUID) (*notifications.UserPreference, error) {
	var pref notifications.UserPreference
	err := s.prefs.WithContext(ctx).Where("user_id = ?", userID).First(&pref).Error
	if err == nil {
		return &pref, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("failed to load notification preferences: %w", err)
	}

	// First read provisions the defaults from the profile contact details.
	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	pref = notifications.UserPreference{
		ID:          uuid.New(),
		UserID:      userID,
		Email:       profile.Email,
		PhoneNumber: profile.PhoneNumber,
		EmailOptIn:  true,
		SMSOptIn:    true,
	}
	if err := s.prefs.WithContext(ctx).Create(&pref).Error; err != nil {
		return nil, fmt.Errorf("failed to create notification preferences: %w", err)
	}
	return &pref, nil
}

// UpdatePreferences upserts the user's channel opt-ins.
func (s *Service) UpdatePreferences(ctx context.Context, userID uuid.UUID, update *PreferenceUpdate) (*notifications.UserPreference, error) {
	pref, err := s.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}

	if update.Email != nil {
		pref.Email = *update.Email
	}
	if update.Phone != nil {
		pref.PhoneNumber = *update.Phone
	}
	if update.EmailOptIn != nil {
		pref.EmailOptIn = *update.EmailOptIn
	}
	if update.SMSOptIn != nil {
		pref.SMSOptIn = *update.SMSOptIn
	}
	if update.WhatsAppIn != nil {
		pref.WhatsAppIn = *update.WhatsAppIn
	}

	err = s.prefs.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(pref).Error
	if err != nil {
		return nil, fmt.Errorf("failed to save notification preferences: %w", err)
	}
	return pref, nil
}
