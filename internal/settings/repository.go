package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("profile not found")

type Repository interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error)
	SaveProfile(ctx context.Context, profile *Profile) error
}

type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	query := `
		SELECT id, full_name, email, phone_number, language,
		       COALESCE(avatar_url, '') AS avatar_url,
		       COALESCE(bio, '') AS bio,
		       COALESCE(profile_completion, 0) AS profile_completion,
		       updated_at
		FROM users
		WHERE id = $1`

	var profile Profile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &profile, nil
}

func (r *PostgresRepository) SaveProfile(ctx context.Context, profile *Profile) error {
	query := `
		UPDATE users
		SET full_name = $2, phone_number = $3, language = $4,
		    avatar_url = $5, bio = $6, profile_completion = $7, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		profile.UserID, profile.FullName, profile.PhoneNumber, profile.Language,
		profile.AvatarURL, profile.Bio, profile.ProfileCompletion,
	)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
