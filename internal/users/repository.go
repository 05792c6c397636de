package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"rental-portal/admin-portal-backend/internal/auth"
)

// ListFilter selects a page of users. Empty fields do not filter.
type ListFilter struct {
	Search string
	Role   auth.Role
	Status Status
	Limit  int
	Offset int
}

type Repository interface {
	List(ctx context.Context, f ListFilter) ([]User, int64, error)
	// GetByID and GetByEmail return nil, nil when no user matches.
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)

	CountByRole(ctx context.Context) (map[auth.Role]int64, error)
	CountByStatus(ctx context.Context) (map[Status]int64, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// AutoMigrate creates the users table.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&User{}); err != nil {
		return fmt.Errorf("failed to migrate users: %w", err)
	}
	return nil
}

func (f ListFilter) scope(db *gorm.DB) *gorm.DB {
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		db = db.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?", like, like, like)
	}
	if f.Role != "" {
		db = db.Where("role = ?", f.Role)
	}
	if f.Status != "" {
		db = db.Where("verification_status = ?", f.Status)
	}
	return db
}

func (r *gormRepository) List(ctx context.Context, f ListFilter) ([]User, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&User{}).Scopes(f.scope).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var users []User
	err := r.db.WithContext(ctx).Scopes(f.scope).
		Order("created_at DESC").
		Limit(f.Limit).
		Offset(f.Offset).
		Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

func (r *gormRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (r *gormRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).First(&u, "LOWER(email) = ?", strings.ToLower(email)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &u, nil
}

func (r *gormRepository) Create(ctx context.Context, u *User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *gormRepository) Update(ctx context.Context, u *User) error {
	if err := r.db.WithContext(ctx).Save(u).Error; err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (r *gormRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&User{}, "id = ?", id)
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete user: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

type groupCount struct {
	Key   string
	Count int64
}

func (r *gormRepository) countBy(ctx context.Context, column string) ([]groupCount, error) {
	var rows []groupCount
	err := r.db.WithContext(ctx).Model(&User{}).
		Select(column + " AS key, COUNT(*) AS count").
		Group(column).
		Scan(&rows).Error
	return rows, err
}

func (r *gormRepository) CountByRole(ctx context.Context) (map[auth.Role]int64, error) {
	rows, err := r.countBy(ctx, "role")
	if err != nil {
		return nil, fmt.Errorf("failed to count users by role: %w", err)
	}
	out := make(map[auth.Role]int64, len(rows))
	for _, row := range rows {
		out[auth.Role(row.Key)] = row.Count
	}
	return out, nil
}

func (r *gormRepository) CountByStatus(ctx context.Context) (map[Status]int64, error) {
	rows, err := r.countBy(ctx, "verification_status")
	if err != nil {
		return nil, fmt.Errorf("failed to count users by status: %w", err)
	}
	out := make(map[Status]int64, len(rows))
	for _, row := range rows {
		out[Status(row.Key)] = row.Count
	}
	return out, nil
}

func (r *gormRepository) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&User{}).Where("created_at >= ?", since).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count new users: %w", err)
	}
	return n, nil
}
