package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompletion(t *testing.T) {
	empty := &Profile{}
	assert.Equal(t, 0.0, empty.Completion())

	contactOnly := &Profile{
		FullName:    "Aya Kouassi",
		Email:       "aya@example.ci",
		PhoneNumber: "+2250701020304",
	}
	assert.InDelta(t, 0.70, contactOnly.Completion(), 0.001)

	full := &Profile{
		FullName:    "Aya Kouassi",
		Email:       "aya@example.ci",
		PhoneNumber: "+2250701020304",
		AvatarURL:   "https://files.montoit.ci/avatars/aya.jpg",
		Bio:         "Proprietaire a Cocody",
	}
	assert.InDelta(t, 1.0, full.Completion(), 0.001)
}
