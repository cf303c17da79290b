package properties

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("property not found")

type Repository interface {
	Create(ctx context.Context, property *Property) error
	GetByID(ctx context.Context, id uuid.UUID) (*Property, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Property, error)
	ListPublishedInCity(ctx context.Context, city string, limit int) ([]Property, error)
	UpdateCoordinates(ctx context.Context, id uuid.UUID, lon, lat float64) error
	SetPublished(ctx context.Context, id uuid.UUID, published bool) error
}

type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, property *Property) error {
	query := `
		INSERT INTO properties (
			id, owner_id, type, title, address, city, district, rooms,
			monthly_rent, longitude, latitude, published, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.db.ExecContext(ctx, query,
		property.ID, property.OwnerID, property.Type, property.Title,
		property.Address, property.City, property.District, property.Rooms,
		property.MonthlyRent, property.Longitude, property.Latitude,
		property.Published, property.CreatedAt, property.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create property: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Property, error) {
	var property Property
	err := r.db.GetContext(ctx, &property, `SELECT * FROM properties WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	return &property, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Property, error) {
	properties := []Property{}
	err := r.db.SelectContext(ctx, &properties,
		`SELECT * FROM properties WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list owner properties: %w", err)
	}
	return properties, nil
}

func (r *PostgresRepository) ListPublishedInCity(ctx context.Context, city string, limit int) ([]Property, error) {
	properties := []Property{}
	err := r.db.SelectContext(ctx, &properties, `
		SELECT * FROM properties
		WHERE published = TRUE AND LOWER(city) = LOWER($1)
		ORDER BY created_at DESC
		LIMIT $2`, city, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list city properties: %w", err)
	}
	return properties, nil
}

func (r *PostgresRepository) UpdateCoordinates(ctx context.Context, id uuid.UUID, lon, lat float64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE properties SET longitude = $2, latitude = $3, updated_at = NOW() WHERE id = $1`,
		id, lon, lat)
	if err != nil {
		return fmt.Errorf("failed to update property coordinates: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) SetPublished(ctx context.Context, id uuid.UUID, published bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE properties SET published = $2, updated_at = NOW() WHERE id = $1`,
		id, published)
	if err != nil {
		return fmt.Errorf("failed to update property visibility: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
