package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Notification, int64, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	// MarkRead returns false when no notification with id belongs to userID.
	MarkRead(ctx context.Context, id uuid.UUID, userID string) (bool, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// AutoMigrate creates the notifications table.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Notification{}); err != nil {
		return fmt.Errorf("failed to migrate notifications: %w", err)
	}
	return nil
}

func (r *gormRepository) Create(ctx context.Context, n *Notification) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *gormRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Notification, int64, error) {
	var (
		items []Notification
		total int64
	)
	err := r.db.WithContext(ctx).Model(&Notification{}).Where("user_id = ?", userID).Count(&total).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	err = r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&items).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	return items, total, nil
}

func (r *gormRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return n, nil
}

func (r *gormRepository) MarkRead(ctx context.Context, id uuid.UUID, userID string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{"is_read": true, "read_at": gorm.Expr("NOW()")})
	if res.Error != nil {
		return false, fmt.Errorf("failed to mark notification read: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *gormRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": gorm.Expr("NOW()")})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", res.Error)
	}
	return res.RowsAffected, nil
}
