package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// TemplateManager loads and renders stored templates.
type TemplateManager struct {
	db *gorm.DB
}

func NewTemplateManager(db *gorm.DB) *TemplateManager {
	return &TemplateManager{db: db}
}

// Render loads the active template for code and channel and fills its
// placeholders. Unknown placeholders are left in place so a bad send is
// visible rather than silently blank.
func (m *TemplateManager) Render(ctx context.Context, code, channel, language string, params map[string]string) (subject, body string, err error) {
	var template Template
	err = m.db.WithContext(ctx).
		Where("code = ? AND channel = ? AND language = ? AND is_active = true", code, channel, language).
		First(&template).Error
	if errors.Is(err, gorm.ErrRecordNotFound) && language != "fr" {
		err = m.db.WithContext(ctx).
			Where("code = ? AND channel = ? AND language = 'fr' AND is_active = true", code, channel).
			First(&template).Error
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to load template %s/%s: %w", code, channel, err)
	}

	return fill(template.Subject, params), fill(template.Body, params), nil
}

func fill(text string, params map[string]string) string {
	for key, value := range params {
		text = strings.ReplaceAll(text, "{{"+key+"}}", value)
	}
	return text
}
