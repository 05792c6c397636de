package settings

import "time"

// UserProfile is the editable profile of a dashboard user.
type UserProfile struct {
	UserID    string    `json:"userId" gorm:"primaryKey"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	Language  string    `json:"language"`
	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}

// NotificationPreferences are the per-user notification switches.
type NotificationPreferences struct {
	UserID                   string    `json:"userId" gorm:"primaryKey"`
	EmailBookingConfirmation bool      `json:"emailBookingConfirmation"`
	EmailPromotions          bool      `json:"emailPromotions"`
	PushNotifications        bool      `json:"pushNotifications"`
	SMSUpdates               bool      `json:"smsUpdates"`
	WeeklyNewsletter         bool      `json:"weeklyNewsletter"`
	CreatedAt                time.Time `json:"createdAt"`
	UpdatedAt                time.Time `json:"updatedAt"`
}

func (NotificationPreferences) TableName() string {
	return "notification_preferences"
}

// DefaultNotificationPreferences applies until a user saves their own.
func DefaultNotificationPreferences(userID string) *NotificationPreferences {
	return &NotificationPreferences{
		UserID:                   userID,
		EmailBookingConfirmation: true,
		PushNotifications:        true,
	}
}

// ProfileUpdate is the body of PUT /settings/profile.
type ProfileUpdate struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Bio       string `json:"bio"`
	Language  string `json:"language"`
	Timezone  string `json:"timezone"`
}
