package properties

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, property *Property) error {
	args := m.Called(ctx, property)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*Property, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Property), args.Error(1)
}

func (m *MockRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Property, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]Property), args.Error(1)
}

func (m *MockRepository) ListPublishedInCity(ctx context.Context, city string, limit int) ([]Property, error) {
	args := m.Called(ctx, city, limit)
	return args.Get(0).([]Property), args.Error(1)
}

func (m *MockRepository) UpdateCoordinates(ctx context.Context, id uuid.UUID, lon, lat float64) error {
	args := m.Called(ctx, id, lon, lat)
	return args.Error(0)
}

func (m *MockRepository) SetPublished(ctx context.Context, id uuid.UUID, published bool) error {
	args := m.Called(ctx, id, published)
	return args.Error(0)
}

type stubGeocoder struct {
	point orb.Point
	err   error
	calls int
}

func (g *stubGeocoder) Geocode(ctx context.Context, address, city string) (orb.Point, error) {
	g.calls++
	return g.point, g.err
}

func published(lon, lat float64, createdAt time.Time) Property {
	return Property{
		ID:        uuid.New(),
		City:      "Abidjan",
		Longitude: &lon,
		Latitude:  &lat,
		Published: true,
		CreatedAt: createdAt,
	}
}

func TestCreateProperty_GeocodesMissingCoordinates(t *testing.T) {
	repo := new(MockRepository)
	geocoder := &stubGeocoder{point: orb.Point{-4.0083, 5.3599}}
	service := NewService(repo, geocoder, zap.NewNop())

	repo.On("Create", mock.Anything, mock.MatchedBy(func(p *Property) bool {
		return p.Longitude != nil && *p.Longitude == -4.0083
	})).Return(nil)

	property, err := service.CreateProperty(context.Background(), &Property{
		OwnerID: uuid.New(),
		Type:    TypeApartment,
		Title:   "Appartement 3 pieces Cocody",
		Address: "Rue des Jardins",
		City:    "Abidjan",
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, geocoder.calls)
	assert.NotNil(t, property.Latitude)
	repo.AssertExpectations(t)
}

func TestCreateProperty_GeocodeFailureDoesNotBlock(t *testing.T) {
	repo := new(MockRepository)
	geocoder := &stubGeocoder{err: errors.New("all providers exhausted")}
	service := NewService(repo, geocoder, zap.NewNop())

	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	property, err := service.CreateProperty(context.Background(), &Property{
		Title:   "Studio Marcory",
		Address: "Boulevard VGE",
		City:    "Abidjan",
	})

	assert.NoError(t, err)
	assert.Nil(t, property.Longitude)
}

func TestCreateProperty_SkipsGeocodingWhenCoordinatesGiven(t *testing.T) {
	repo := new(MockRepository)
	geocoder := &stubGeocoder{}
	service := NewService(repo, geocoder, zap.NewNop())

	lon, lat := -3.9830, 5.3097
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, err := service.CreateProperty(context.Background(), &Property{
		Title:     "Villa Bingerville",
		Address:   "Route de Bingerville",
		City:      "Bingerville",
		Longitude: &lon,
		Latitude:  &lat,
	})

	assert.NoError(t, err)
	assert.Equal(t, 0, geocoder.calls)
}

func TestFindNearby_FiltersAndSortsByDistance(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo, &stubGeocoder{}, zap.NewNop())

	now := time.Now()
	near := published(-4.0080, 5.3600, now)
	far := published(-4.0200, 5.3700, now)
	nearest := published(-4.0083, 5.3599, now)
	noCoords := Property{ID: uuid.New(), City: "Abidjan", Published: true}

	repo.On("ListPublishedInCity", mock.Anything, "Abidjan", 500).
		Return([]Property{far, near, noCoords, nearest}, nil)

	results, err := service.FindNearby(context.Background(), "Abidjan", NearbyQuery{
		Longitude: -4.0083,
		Latitude:  5.3599,
		RadiusM:   500,
	})

	assert.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, nearest.ID, results[0].Property.ID)
	assert.Equal(t, near.ID, results[1].Property.ID)
}

func TestFindNearby_RejectsInvalidCoordinates(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo, &stubGeocoder{}, zap.NewNop())

	_, err := service.FindNearby(context.Background(), "Abidjan", NearbyQuery{
		Longitude: -200,
		Latitude:  5.36,
	})

	assert.Error(t, err)
	repo.AssertNotCalled(t, "ListPublishedInCity", mock.Anything, mock.Anything, mock.Anything)
}

func TestPublish_OnlyOwner(t *testing.T) {
	repo := new(MockRepository)
	service := NewService(repo, &stubGeocoder{}, zap.NewNop())

	property := published(-4.0, 5.36, time.Now())
	property.OwnerID = uuid.New()
	repo.On("GetByID", mock.Anything, property.ID).Return(&property, nil)

	err := service.Publish(context.Background(), property.ID, uuid.New())

	assert.ErrorIs(t, err, ErrNotFound)
	repo.AssertNotCalled(t, "SetPublished", mock.Anything, mock.Anything, mock.Anything)
}
