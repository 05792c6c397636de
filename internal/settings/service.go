package settings

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"rental-portal/admin-portal-backend/internal/apperrors"
	"rental-portal/admin-portal-backend/internal/auth"
)

const (
	MsgProfileFieldsRequired = "First name, last name, and email are required"
	MsgInvalidEmail          = "Please provide a valid email address"
	MsgInvalidPhone          = "Please provide a valid phone number"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{0,15}$`)
)

type Service struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// GetProfile returns the saved profile, or one built from the session identity.
func (s *Service) GetProfile(ctx context.Context, user *auth.User) (*UserProfile, error) {
	profile, err := s.repo.GetProfile(ctx, user.ID.String())
	if err != nil {
		return nil, err
	}
	if profile != nil {
		return profile, nil
	}
	return &UserProfile{
		UserID:    user.ID.String(),
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Language:  "en",
		Timezone:  "UTC",
	}, nil
}

func (s *Service) UpdateProfile(ctx context.Context, user *auth.User, in ProfileUpdate) (*UserProfile, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	if in.FirstName == "" || in.LastName == "" || in.Email == "" {
		return nil, apperrors.BadRequest(MsgProfileFieldsRequired)
	}
	if !emailPattern.MatchString(in.Email) {
		return nil, apperrors.BadRequest(MsgInvalidEmail)
	}
	if in.Phone != "" && !phonePattern.MatchString(strings.ReplaceAll(in.Phone, " ", "")) {
		return nil, apperrors.BadRequest(MsgInvalidPhone)
	}

	current, err := s.GetProfile(ctx, user)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	profile := &UserProfile{
		UserID:    user.ID.String(),
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Phone:     in.Phone,
		Bio:       in.Bio,
		Language:  current.Language,
		Timezone:  current.Timezone,
		CreatedAt: current.CreatedAt,
		UpdatedAt: now,
	}
	if in.Language != "" {
		profile.Language = in.Language
	}
	if in.Timezone != "" {
		profile.Timezone = in.Timezone
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}

	if err := s.repo.UpsertProfile(ctx, profile); err != nil {
		return nil, err
	}
	s.logger.Info("Profile updated", zap.String("user_id", profile.UserID))
	return profile, nil
}

func (s *Service) GetNotifications(ctx context.Context, userID string) (*NotificationPreferences, error) {
	prefs, err := s.repo.GetNotifications(ctx, userID)
	if err != nil {
		return nil, err
	}
	if prefs == nil {
		return DefaultNotificationPreferences(userID), nil
	}
	return prefs, nil
}

func (s *Service) UpdateNotifications(ctx context.Context, userID string, prefs *NotificationPreferences) (*NotificationPreferences, error) {
	current, err := s.GetNotifications(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	prefs.UserID = userID
	prefs.CreatedAt = current.CreatedAt
	if prefs.CreatedAt.IsZero() {
		prefs.CreatedAt = now
	}
	prefs.UpdatedAt = now

	if err := s.repo.UpsertNotifications(ctx, prefs); err != nil {
		return nil, err
	}
	return prefs, nil
}

// ChannelPreferences maps saved switches onto delivery channels.
func (s *Service) ChannelPreferences(ctx context.Context, userID string) (map[string]bool, error) {
	prefs, err := s.GetNotifications(ctx, userID)
	if err != nil {
		return nil, err
	}
	return map[string]bool{
		"email": prefs.EmailBookingConfirmation,
		"push":  prefs.PushNotifications,
		"sms":   prefs.SMSUpdates,
	}, nil
}
