package properties

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/SOMET1010/montoitv6-sub000/internal/providers"
	"github.com/SOMET1010/montoitv6-sub000/pkg/errs"
	"github.com/SOMET1010/montoitv6-sub000/pkg/geospatial"
)

// Geocoder resolves a street address to a point.
type Geocoder interface {
	Geocode(ctx context.Context, address, city string) (orb.Point, error)
}

// Service manages listings and their geocoded locations.
type Service struct {
	repo     Repository
	geocoder Geocoder
	logger   *zap.Logger
}

func NewService(repo Repository, geocoder Geocoder, logger *zap.Logger) *Service {
	return &Service{repo: repo, geocoder: geocoder, logger: logger}
}

// CreateProperty stores a new listing. Missing coordinates are resolved by
// geocoding; a geocoding failure is logged but does not block the listing.
func (s *Service) CreateProperty(ctx context.Context, property *Property) (*Property, error) {
	if property.Title == "" || property.Address == "" || property.City == "" {
		return nil, errs.NewValidation("title, address and city are required", "title", "address", "city")
	}
	if property.Longitude != nil && property.Latitude != nil &&
		!geospatial.ValidPoint(*property.Longitude, *property.Latitude) {
		return nil, errs.NewValidation("coordinates are out of range", "longitude", "latitude")
	}

	now := time.Now()
	property.ID = uuid.New()
	property.CreatedAt = now
	property.UpdatedAt = now

	if property.Longitude == nil || property.Latitude == nil {
		point, err := s.geocoder.Geocode(ctx, property.Address, property.City)
		if err != nil {
			s.logger.Warn("Failed to geocode property address",
				zap.String("address", property.Address),
				zap.String("city", property.City),
				zap.Error(err))
		} else {
			property.Longitude = &point[0]
			property.Latitude = &point[1]
		}
	}

	if err := s.repo.Create(ctx, property); err != nil {
		return nil, err
	}

	s.logger.Info("Property created",
		zap.String("property_id", property.ID.String()),
		zap.String("city", property.City),
		zap.Bool("geocoded", property.Longitude != nil))
	return property, nil
}

func (s *Service) GetProperty(ctx context.Context, id uuid.UUID) (*Property, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListOwnerProperties(ctx context.Context, ownerID uuid.UUID) ([]Property, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// Publish makes a listing visible in search. Only the owner may publish.
func (s *Service) Publish(ctx context.Context, id, ownerID uuid.UUID) error {
	property, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if property.OwnerID != ownerID {
		return ErrNotFound
	}
	return s.repo.SetPublished(ctx, id, true)
}

// RefreshCoordinates re-geocodes the address, for listings created before
// geocoding succeeded or after an address correction.
func (s *Service) RefreshCoordinates(ctx context.Context, id uuid.UUID) (*Property, error) {
	property, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	point, err := s.geocoder.Geocode(ctx, property.Address, property.City)
	if err != nil {
		return nil, fmt.Errorf("failed to geocode property: %w", err)
	}
	if err := s.repo.UpdateCoordinates(ctx, id, point[0], point[1]); err != nil {
		return nil, err
	}
	property.Longitude = &point[0]
	property.Latitude = &point[1]
	return property, nil
}

// FindNearby returns published listings within the radius, closest first.
// Candidates come from the city index and are filtered by great-circle
// distance.
func (s *Service) FindNearby(ctx context.Context, city string, query NearbyQuery) ([]NearbyResult, error) {
	if !geospatial.ValidPoint(query.Longitude, query.Latitude) {
		return nil, errs.NewValidation("coordinates are out of range", "longitude", "latitude")
	}
	if query.RadiusM <= 0 {
		query.RadiusM = 2000
	}
	if query.Limit <= 0 || query.Limit > 100 {
		query.Limit = 20
	}

	candidates, err := s.repo.ListPublishedInCity(ctx, city, 500)
	if err != nil {
		return nil, err
	}

	origin := orb.Point{query.Longitude, query.Latitude}
	results := []NearbyResult{}
	for _, candidate := range candidates {
		if candidate.Longitude == nil || candidate.Latitude == nil {
			continue
		}
		distance := geospatial.DistanceMeters(origin, orb.Point{*candidate.Longitude, *candidate.Latitude})
		if distance <= query.RadiusM {
			results = append(results, NearbyResult{Property: candidate, Distance: distance})
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if len(results) > query.Limit {
		results = results[:query.Limit]
	}
	return results, nil
}

// RouterGeocoder resolves addresses through whichever maps provider the
// failover router selects.
type RouterGeocoder struct {
	router *providers.Router
}

func NewRouterGeocoder(router *providers.Router) *RouterGeocoder {
	return &RouterGeocoder{router: router}
}

func (g *RouterGeocoder) Geocode(ctx context.Context, address, city string) (orb.Point, error) {
	resp, err := g.router.Dispatch(ctx, providers.CapabilityMaps, providers.Request{
		Operation: "geocode",
		Params: map[string]string{
			"address": address,
			"city":    city,
			"country": "CI",
		},
	})
	if err != nil {
		return orb.Point{}, err
	}

	lon, err := strconv.ParseFloat(resp.Data["longitude"], 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("maps provider %s returned invalid longitude: %w", resp.Provider, err)
	}
	lat, err := strconv.ParseFloat(resp.Data["latitude"], 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("maps provider %s returned invalid latitude: %w", resp.Provider, err)
	}
	if !geospatial.ValidPoint(lon, lat) {
		return orb.Point{}, fmt.Errorf("maps provider %s returned out of range coordinates", resp.Provider)
	}
	return orb.Point{lon, lat}, nil
}
