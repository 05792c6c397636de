package notifications

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"rental-portal/admin-portal-backend/internal/apperrors"
	"rental-portal/admin-portal-backend/internal/metrics"
	"rental-portal/admin-portal-backend/pkg/pagination"
)

const MsgNotificationNotFound = "Notification not found"

// Notifier is implemented by Service. Callers treat delivery as best effort.
type Notifier interface {
	Notify(ctx context.Context, req *Request)
}

// Pusher delivers realtime frames to a connected user.
type Pusher interface {
	SendToUser(userID string, message WebSocketMessage) error
}

// PreferenceSource reports which channels a user has switched on.
type PreferenceSource interface {
	ChannelPreferences(ctx context.Context, userID string) (map[string]bool, error)
}

// Service provides notification business logic
type Service struct {
	repo        Repository
	pusher      Pusher
	email       EmailSender
	sms         SMSSender
	preferences PreferenceSource
	logger      *zap.Logger
	now         func() time.Time
}

// NewService creates a new notification service. pusher and email may be nil.
func NewService(repo Repository, pusher Pusher, email EmailSender, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		pusher: pusher,
		email:  email,
		logger: logger,
		now:    time.Now,
	}
}

// UsePreferences makes delivery honour per-user channel switches.
func (s *Service) UsePreferences(p PreferenceSource) {
	s.preferences = p
}

// UseSMS enables the SMS channel for requests that carry a phone number.
// Users with saved preferences must have opted in.
func (s *Service) UseSMS(sender SMSSender) {
	s.sms = sender
}

// Notify stores an in-app notification and fans it out to the realtime,
// email and SMS channels. Delivery failures are logged and counted, never returned.
func (s *Service) Notify(ctx context.Context, req *Request) {
	if req == nil || req.UserID == "" {
		return
	}

	channels := s.enabledChannels(ctx, req)

	data, err := json.Marshal(req.Data)
	if err != nil || req.Data == nil {
		data = nil
	}
	n := &Notification{
		ID:        uuid.New(),
		UserID:    req.UserID,
		Type:      req.Type,
		Title:     req.Title,
		Message:   req.Message,
		Data:      datatypes.JSON(data),
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.failed(ChannelInApp, req, err)
	}

	if channels[ChannelWebSocket] && s.pusher != nil {
		msg := WebSocketMessage{
			Type: WSMessageTypeNotification,
			Data: map[string]interface{}{
				"id":      n.ID.String(),
				"type":    n.Type,
				"title":   n.Title,
				"message": n.Message,
				"data":    req.Data,
			},
			Timestamp: n.CreatedAt,
		}
		// users without an open dashboard are the common case
		if err := s.pusher.SendToUser(req.UserID, msg); err != nil {
			s.logger.Debug("Realtime notification not delivered", zap.String("user_id", req.UserID), zap.Error(err))
		}
	}

	if channels[ChannelEmail] {
		if err := s.email.Send(ctx, req.Email, req.Title, req.Message); err != nil {
			s.failed(ChannelEmail, req, err)
		}
	}

	if channels[ChannelSMS] {
		if err := s.sms.Send(ctx, req.Phone, req.Title+": "+req.Message); err != nil {
			s.failed(ChannelSMS, req, err)
		}
	}
}

func (s *Service) enabledChannels(ctx context.Context, req *Request) map[string]bool {
	channels := map[string]bool{
		ChannelWebSocket: true,
		ChannelEmail:     s.email != nil && req.Email != "",
		ChannelSMS:       s.sms != nil && req.Phone != "",
	}
	if s.preferences == nil {
		return channels
	}

	prefs, err := s.preferences.ChannelPreferences(ctx, req.UserID)
	if err != nil {
		s.logger.Warn("Failed to load notification preferences", zap.String("user_id", req.UserID), zap.Error(err))
		return channels
	}
	if on, ok := prefs[preferenceEmail]; ok && !on {
		channels[ChannelEmail] = false
	}
	if on, ok := prefs[preferencePush]; ok && !on {
		channels[ChannelWebSocket] = false
	}
	if !prefs[preferenceSMS] {
		channels[ChannelSMS] = false
	}
	return channels
}

func (s *Service) failed(channel string, req *Request, err error) {
	metrics.NotificationsFailed.WithLabelValues(channel).Inc()
	s.logger.Warn("Failed to deliver notification",
		zap.Error(err),
		zap.String("channel", channel),
		zap.String("user_id", req.UserID),
		zap.String("type", req.Type))
}

// ListResult is one page of a user's notifications.
type ListResult struct {
	Notifications []Notification  `json:"notifications"`
	UnreadCount   int64           `json:"unreadCount"`
	Pagination    pagination.Meta `json:"pagination"`
}

// List returns a page of userID's notifications, newest first.
func (s *Service) List(ctx context.Context, userID string, page, limit int) (*ListResult, error) {
	items, total, err := s.repo.ListByUser(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Notification{}
	}
	return &ListResult{
		Notifications: items,
		UnreadCount:   unread,
		Pagination:    pagination.NewMeta(page, limit, int(total)),
	}, nil
}

// MarkRead marks one of userID's notifications as read.
func (s *Service) MarkRead(ctx context.Context, userID, rawID string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return apperrors.NotFound(MsgNotificationNotFound)
	}
	found, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		return err
	}
	if !found {
		return apperrors.NotFound(MsgNotificationNotFound)
	}
	return nil
}

// MarkAllRead marks every unread notification of userID as read.
func (s *Service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}
