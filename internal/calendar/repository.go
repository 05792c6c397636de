package calendar

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository interface {
	ListBlocked(ctx context.Context, propertyID int64) ([]BlockedDate, error)
	// FindBlocked returns the first blocked range intersecting [start, end], or nil.
	FindBlocked(ctx context.Context, propertyID int64, start, end time.Time) (*BlockedDate, error)
	CreateBlocked(ctx context.Context, b *BlockedDate) error
	DeleteBlocked(ctx context.Context, propertyID int64, id uuid.UUID) (bool, error)

	ListPricing(ctx context.Context, propertyID int64) ([]SpecialPrice, error)
	CreatePricing(ctx context.Context, p *SpecialPrice) error
	DeletePricing(ctx context.Context, propertyID int64, id uuid.UUID) (bool, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

// Schema creates the calendar tables.
const Schema = `
CREATE TABLE IF NOT EXISTS property_blocked_dates (
	id UUID PRIMARY KEY,
	property_id BIGINT NOT NULL,
	start_date TIMESTAMPTZ NOT NULL,
	end_date TIMESTAMPTZ NOT NULL,
	reason TEXT NOT NULL,
	note TEXT NOT NULL DEFAULT '',
	created_by TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_blocked_dates_property ON property_blocked_dates (property_id, start_date);

CREATE TABLE IF NOT EXISTS property_special_pricing (
	id UUID PRIMARY KEY,
	property_id BIGINT NOT NULL,
	start_date TIMESTAMPTZ NOT NULL,
	end_date TIMESTAMPTZ NOT NULL,
	price NUMERIC(12,2) NOT NULL,
	is_special_offer BOOLEAN NOT NULL DEFAULT FALSE,
	created_by TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_special_pricing_property ON property_special_pricing (property_id, start_date);`

// EnsureSchema creates missing tables.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create calendar tables: %w", err)
	}
	return nil
}

func (r *postgresRepository) ListBlocked(ctx context.Context, propertyID int64) ([]BlockedDate, error) {
	var blocked []BlockedDate
	err := r.db.SelectContext(ctx, &blocked,
		"SELECT * FROM property_blocked_dates WHERE property_id = $1 ORDER BY start_date", propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocked dates: %w", err)
	}
	return blocked, nil
}

func (r *postgresRepository) FindBlocked(ctx context.Context, propertyID int64, start, end time.Time) (*BlockedDate, error) {
	var b BlockedDate
	err := r.db.GetContext(ctx, &b,
		"SELECT * FROM property_blocked_dates WHERE property_id = $1 AND start_date <= $3 AND end_date >= $2 ORDER BY start_date LIMIT 1",
		propertyID, start, end)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check blocked dates: %w", err)
	}
	return &b, nil
}

func (r *postgresRepository) CreateBlocked(ctx context.Context, b *BlockedDate) error {
	query := `
		INSERT INTO property_blocked_dates (id, property_id, start_date, end_date, reason, note, created_by, created_at)
		VALUES (:id, :property_id, :start_date, :end_date, :reason, :note, :created_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, b); err != nil {
		return fmt.Errorf("failed to block dates: %w", err)
	}
	return nil
}

func (r *postgresRepository) DeleteBlocked(ctx context.Context, propertyID int64, id uuid.UUID) (bool, error) {
	return r.deleteFrom(ctx, "property_blocked_dates", propertyID, id)
}

func (r *postgresRepository) ListPricing(ctx context.Context, propertyID int64) ([]SpecialPrice, error) {
	var pricing []SpecialPrice
	err := r.db.SelectContext(ctx, &pricing,
		"SELECT * FROM property_special_pricing WHERE property_id = $1 ORDER BY start_date", propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list special pricing: %w", err)
	}
	return pricing, nil
}

func (r *postgresRepository) CreatePricing(ctx context.Context, p *SpecialPrice) error {
	query := `
		INSERT INTO property_special_pricing (id, property_id, start_date, end_date, price, is_special_offer, created_by, created_at)
		VALUES (:id, :property_id, :start_date, :end_date, :price, :is_special_offer, :created_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("failed to set special pricing: %w", err)
	}
	return nil
}

func (r *postgresRepository) DeletePricing(ctx context.Context, propertyID int64, id uuid.UUID) (bool, error) {
	return r.deleteFrom(ctx, "property_special_pricing", propertyID, id)
}

func (r *postgresRepository) deleteFrom(ctx context.Context, table string, propertyID int64, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = $1 AND property_id = $2", id, propertyID)
	if err != nil {
		return false, fmt.Errorf("failed to delete calendar event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete calendar event: %w", err)
	}
	return n > 0, nil
}
