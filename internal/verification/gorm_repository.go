package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type gormRepository struct {
	db *gorm.DB
}

// NewGormRepository returns a PostgreSQL-backed store.
func NewGormRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// AutoMigrate creates the verification tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Property{}, &Event{}); err != nil {
		return fmt.Errorf("failed to migrate verification tables: %w", err)
	}
	return nil
}

func (r *gormRepository) ListProperties(ctx context.Context) ([]*Property, error) {
	var properties []*Property
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&properties).Error; err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	return properties, nil
}

func (r *gormRepository) GetProperty(ctx context.Context, id int64) (*Property, error) {
	var p Property
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	return &p, nil
}

func (r *gormRepository) CreateProperty(ctx context.Context, p *Property) error {
	p.prepareNew(time.Now().UTC())
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create property: %w", err)
	}
	return nil
}

// UpdateProperty writes every column, zero values included, but never inserts.
func (r *gormRepository) UpdateProperty(ctx context.Context, p *Property) error {
	res := r.db.WithContext(ctx).
		Model(&Property{ID: p.ID}).
		Select("*").
		Omit("id", "created_at").
		Updates(p)
	if res.Error != nil {
		return fmt.Errorf("failed to update property: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrPropertyNotFound
	}
	return nil
}

func (r *gormRepository) DeleteProperty(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("property_id = ?", id).Delete(&Event{}).Error; err != nil {
			return fmt.Errorf("failed to delete verification events: %w", err)
		}
		res := tx.Delete(&Property{}, id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete property: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrPropertyNotFound
		}
		return nil
	})
}

// SyncSequence moves the id sequence past the highest stored id so rows
// inserted with explicit ids do not collide with generated ones.
func (r *gormRepository) SyncSequence(ctx context.Context) error {
	err := r.db.WithContext(ctx).
		Exec(`SELECT setval(pg_get_serial_sequence('properties', 'id'), COALESCE((SELECT MAX(id) FROM properties), 0) + 1, false)`).
		Error
	if err != nil {
		return fmt.Errorf("failed to sync property id sequence: %w", err)
	}
	return nil
}

func (r *gormRepository) AppendEvent(ctx context.Context, e *Event) error {
	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("failed to append verification event: %w", err)
	}
	return nil
}

func (r *gormRepository) ListEvents(ctx context.Context, propertyID int64) ([]Event, error) {
	var events []Event
	err := r.db.WithContext(ctx).
		Where("property_id = ?", propertyID).
		Order("created_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list verification events: %w", err)
	}
	return events, nil
}
