package properties

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PropertyType string

const (
	TypeApartment PropertyType = "apartment"
	TypeHouse     PropertyType = "house"
	TypeStudio    PropertyType = "studio"
	TypeVilla     PropertyType = "villa"
)

// Property is a rental listing. Coordinates are filled by geocoding the
// address through the maps capability when the owner does not supply them.
type Property struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	OwnerID     uuid.UUID       `json:"owner_id" db:"owner_id"`
	Type        PropertyType    `json:"type" db:"type"`
	Title       string          `json:"title" db:"title"`
	Address     string          `json:"address" db:"address"`
	City        string          `json:"city" db:"city"`
	District    string          `json:"district" db:"district"`
	Rooms       int             `json:"rooms" db:"rooms"`
	MonthlyRent decimal.Decimal `json:"monthly_rent" db:"monthly_rent"`
	Longitude   *float64        `json:"longitude,omitempty" db:"longitude"`
	Latitude    *float64        `json:"latitude,omitempty" db:"latitude"`
	Published   bool            `json:"published" db:"published"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// NearbyQuery selects published properties around a point.
type NearbyQuery struct {
	Longitude float64
	Latitude  float64
	RadiusM   float64
	Limit     int
}

// NearbyResult pairs a property with its distance from the query point.
type NearbyResult struct {
	Property Property `json:"property"`
	Distance float64  `json:"distance_m"`
}
