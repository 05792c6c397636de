package verification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending       Status = "PENDING"
	StatusInReview      Status = "IN_REVIEW"
	StatusVerified      Status = "VERIFIED"
	StatusRejected      Status = "REJECTED"
	StatusNeedsRevision Status = "NEEDS_REVISION"

	// StatusAll disables the status filter on listings.
	StatusAll Status = "ALL"
)

// Valid reports whether s is one of the five lifecycle values.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInReview, StatusVerified, StatusRejected, StatusNeedsRevision:
		return true
	}
	return false
}

// ListingStatus is whether a listing is bookable, independent of verification.
type ListingStatus string

const (
	ListingPending     ListingStatus = "PENDING"
	ListingActive      ListingStatus = "ACTIVE"
	ListingMaintenance ListingStatus = "MAINTENANCE"
	ListingRejected    ListingStatus = "REJECTED"
)

type Action string

const (
	ActionVerify          Action = "verify"
	ActionReject          Action = "reject"
	ActionRequestRevision Action = "request_revision"
	ActionStartReview     Action = "start_review"
	ActionUpdateChecks    Action = "update_checks"

	ActionBulkVerify      Action = "bulk_verify"
	ActionBulkReject      Action = "bulk_reject"
	ActionBulkStartReview Action = "bulk_start_review"
)

// Checks maps "<stepId>_<criterionId>" to whether the criterion passed.
// A missing key means not yet checked.
type Checks map[string]bool

// Clone returns an independent copy.
func (c Checks) Clone() Checks {
	out := make(Checks, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Manager is the property owner as shown on the dashboard.
type Manager struct {
	ID        string `json:"id" gorm:"column:id"`
	FirstName string `json:"firstName" gorm:"column:first_name"`
	LastName  string `json:"lastName" gorm:"column:last_name"`
	Email     string `json:"email" gorm:"column:email"`
	Phone     string `json:"phone" gorm:"column:phone"`
}

func (m Manager) FullName() string {
	return m.FirstName + " " + m.LastName
}

// Property is a listing under verification. The *At/*By fields are stamped by
// transitions and are never cleared by later ones.
type Property struct {
	ID            int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Name          string    `json:"name" gorm:"not null"`
	Location      string    `json:"location"`
	PropertyType  string    `json:"propertyType"`
	Description   string    `json:"description"`
	Photos        []string  `json:"photos" gorm:"type:jsonb;serializer:json"`
	Amenities     []string  `json:"amenities" gorm:"type:jsonb;serializer:json"`
	PricePerNight float64   `json:"pricePerNight"`
	Rating        float64   `json:"rating"`
	ReviewCount   int       `json:"reviewCount"`
	Capacity      int       `json:"capacity"`
	Bedrooms      int       `json:"bedrooms"`
	Bathrooms     int       `json:"bathrooms"`
	Manager       Manager   `json:"manager" gorm:"embedded;embeddedPrefix:manager_"`
	SubmittedAt   time.Time `json:"submittedAt"`
	CreatedAt     time.Time `json:"createdAt"`

	Status ListingStatus `json:"status" gorm:"type:varchar(20);index;not null;default:PENDING"`

	VerificationStatus Status `json:"verificationStatus" gorm:"type:varchar(20);index;not null;default:PENDING"`
	VerificationChecks Checks `json:"verificationChecks" gorm:"type:jsonb;serializer:json"`
	VerificationNotes  string `json:"verificationNotes,omitempty"`

	VerifiedAt *time.Time `json:"verifiedAt,omitempty"`
	VerifiedBy string     `json:"verifiedBy,omitempty"`

	RejectedAt      *time.Time `json:"rejectedAt,omitempty"`
	RejectedBy      string     `json:"rejectedBy,omitempty"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
	RejectionNotes  string     `json:"rejectionNotes,omitempty"`

	RevisionRequestedAt *time.Time `json:"revisionRequestedAt,omitempty"`
	RevisionRequestedBy string     `json:"revisionRequestedBy,omitempty"`
	RevisionNotes       string     `json:"revisionNotes,omitempty"`

	ReviewStartedAt *time.Time `json:"reviewStartedAt,omitempty"`
	ReviewStartedBy string     `json:"reviewStartedBy,omitempty"`

	LastUpdatedAt *time.Time `json:"lastUpdatedAt,omitempty"`
	LastUpdatedBy string     `json:"lastUpdatedBy,omitempty"`
}

func (Property) TableName() string {
	return "properties"
}

// Clone returns a deep copy so callers never share maps or slices with a store.
func (p *Property) Clone() *Property {
	if p == nil {
		return nil
	}
	out := *p
	out.Photos = append([]string(nil), p.Photos...)
	out.Amenities = append([]string(nil), p.Amenities...)
	if p.VerificationChecks != nil {
		out.VerificationChecks = p.VerificationChecks.Clone()
	}
	return &out
}

// prepareNew fills what every new listing starts with: pending on both
// axes and an empty checklist.
func (p *Property) prepareNew(now time.Time) {
	if p.Status == "" {
		p.Status = ListingPending
	}
	if p.VerificationStatus == "" {
		p.VerificationStatus = StatusPending
	}
	if p.VerificationChecks == nil {
		p.VerificationChecks = Checks{}
	}
	if p.Photos == nil {
		p.Photos = []string{}
	}
	if p.Amenities == nil {
		p.Amenities = []string{}
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.SubmittedAt.IsZero() {
		p.SubmittedAt = p.CreatedAt
	}
}

// PropertySummary is a listing row with its computed checklist progress.
type PropertySummary struct {
	*Property
	Progress int `json:"progress"`
}

// Event is one entry of the append-only verification history.
type Event struct {
	ID         uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	PropertyID int64          `json:"propertyId" gorm:"index;not null"`
	Action     Action         `json:"action" gorm:"type:varchar(32);not null"`
	ActorID    string         `json:"actorId" gorm:"not null"`
	FromStatus Status         `json:"fromStatus" gorm:"type:varchar(20)"`
	ToStatus   Status         `json:"toStatus" gorm:"type:varchar(20)"`
	Payload    datatypes.JSON `json:"payload,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

func (Event) TableName() string {
	return "property_verification_events"
}

// Stats counts properties per status over the whole collection.
type Stats struct {
	Total         int `json:"total"`
	Pending       int `json:"pending"`
	InReview      int `json:"inReview"`
	Verified      int `json:"verified"`
	Rejected      int `json:"rejected"`
	NeedsRevision int `json:"needsRevision"`
}
