package settings

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	// GetProfile returns nil, nil when the user has no saved profile.
	GetProfile(ctx context.Context, userID string) (*UserProfile, error)
	UpsertProfile(ctx context.Context, profile *UserProfile) error

	// GetNotifications returns nil, nil when the user has no saved preferences.
	GetNotifications(ctx context.Context, userID string) (*NotificationPreferences, error)
	UpsertNotifications(ctx context.Context, prefs *NotificationPreferences) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a new settings repository
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// AutoMigrate creates the settings tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&UserProfile{}, &NotificationPreferences{}); err != nil {
		return fmt.Errorf("failed to migrate settings tables: %w", err)
	}
	return nil
}

func (r *gormRepository) GetProfile(ctx context.Context, userID string) (*UserProfile, error) {
	var p UserProfile
	err := r.db.WithContext(ctx).First(&p, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

func (r *gormRepository) UpsertProfile(ctx context.Context, profile *UserProfile) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"first_name", "last_name", "email", "phone", "bio", "language", "timezone", "updated_at"}),
		}).
		Create(profile).Error
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

func (r *gormRepository) GetNotifications(ctx context.Context, userID string) (*NotificationPreferences, error) {
	var p NotificationPreferences
	err := r.db.WithContext(ctx).First(&p, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification preferences: %w", err)
	}
	return &p, nil
}

func (r *gormRepository) UpsertNotifications(ctx context.Context, prefs *NotificationPreferences) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"email_booking_confirmation", "email_promotions", "push_notifications",
				"sms_updates", "weekly_newsletter", "updated_at",
			}),
		}).
		Create(prefs).Error
	if err != nil {
		return fmt.Errorf("failed to save notification preferences: %w", err)
	}
	return nil
}
