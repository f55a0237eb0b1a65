// Package postgres persists normalized venues. One parameterized
// insert per row; the geography point is built in SQL only when both
// coordinates are bound.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/unichat/venue-ingest/internal/domain"
)

// insertVenueSQL builds the coordinates geography from (lon, lat) under
// SRID 4326, or stores NULL when either coordinate is missing — never a
// zero point.
const insertVenueSQL = `
	INSERT INTO venues (
		id, name, website, location, area, coordinates, opening_times, rating, description,
		student_discount_present, student_discount, points
	)
	VALUES (
		$1, $2, $3, $4, $5,
		CASE
			WHEN $6::double precision IS NULL OR $7::double precision IS NULL THEN NULL
			ELSE ST_SetSRID(ST_MakePoint($7::double precision, $6::double precision), 4326)::geography
		END,
		$8, $9, $10, $11, $12, $13
	)
`

// VenueRepo writes venues to PostgreSQL/PostGIS.
type VenueRepo struct{ db *sql.DB }

// NewVenueRepo creates a Postgres-backed venue repository.
func NewVenueRepo(db *sql.DB) *VenueRepo { return &VenueRepo{db: db} }

// Insert persists one venue. The discount-present flag is bound as a
// literal "true"/"false" token to match the column's text type.
func (r *VenueRepo) Insert(ctx context.Context, v *domain.Venue) error {
	discountPresent := "false"
	if v.StudentDiscountPresent {
		discountPresent = "true"
	}

	_, err := r.db.ExecContext(ctx, insertVenueSQL,
		v.ID,
		v.Name,
		v.Website,
		v.Location,
		v.Area,
		v.Latitude,
		v.Longitude,
		v.OpeningTimes,
		v.Rating,
		v.Description,
		discountPresent,
		v.StudentDiscount,
		v.Points,
	)
	if err != nil {
		return fmt.Errorf("insert venue: %w", err)
	}
	return nil
}

// Diagnostic extracts the driver-level detail from an insert error so
// the run report can carry it alongside the message. Returns nil when
// the error has no Postgres diagnostics.
func Diagnostic(err error) *string {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}

	diag := fmt.Sprintf("code=%s", pqErr.Code)
	if pqErr.Detail != "" {
		diag += " detail=" + pqErr.Detail
	}
	if pqErr.Constraint != "" {
		diag += " constraint=" + pqErr.Constraint
	}
	return &diag
}
