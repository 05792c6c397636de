package notifications

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Notification is an in-app notification record.
type Notification struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	UserID    string         `json:"userId" gorm:"index;not null"`
	Type      string         `json:"type" gorm:"type:varchar(40);not null"`
	Title     string         `json:"title" gorm:"not null"`
	Message   string         `json:"message"`
	Data      datatypes.JSON `json:"data,omitempty" gorm:"type:jsonb"`
	IsRead    bool           `json:"isRead" gorm:"default:false"`
	ReadAt    *time.Time     `json:"readAt,omitempty"`
	CreatedAt time.Time      `json:"createdAt" gorm:"index"`
}

func (Notification) TableName() string {
	return "notifications"
}

// Request describes a notification to deliver. Email and Phone are only used
// by the email and SMS channels.
type Request struct {
	UserID  string
	Email   string
	Phone   string
	Type    string
	Title   string
	Message string
	Data    map[string]interface{}
}

// WebSocketMessage is the frame pushed to connected dashboards.
type WebSocketMessage struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Target    string                 `json:"target,omitempty"`
}

// Constants
const (
	// Delivery channels
	ChannelInApp     = "IN_APP"
	ChannelEmail     = "EMAIL"
	ChannelWebSocket = "WEBSOCKET"
	ChannelSMS       = "SMS"

	// Notification types
	TypeBookingConfirmed  = "BOOKING_CONFIRMED"
	TypeBookingRejected   = "BOOKING_REJECTED"
	TypeBookingCancelled  = "BOOKING_CANCELLED"
	TypeBookingPayment    = "BOOKING_PAYMENT"
	TypeDisputeUpdated    = "DISPUTE_UPDATED"
	TypePasswordReset     = "PASSWORD_RESET"
	TypeAccountBlocked    = "ACCOUNT_BLOCKED"
	TypeVerificationAlert = "VERIFICATION_UPDATE"
	TypePropertyApproved  = "PROPERTY_APPROVED"
	TypePropertyRejected  = "PROPERTY_REJECTED"

	// WebSocket message types
	WSMessageTypeNotification = "notification"
	WSMessageTypeStatus       = "status"
	WSMessageTypePing         = "ping"
)

// preference keys stored by the settings module
const (
	preferenceEmail = "email"
	preferencePush  = "push"
	preferenceSMS   = "sms"
)
