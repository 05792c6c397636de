package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"rental-portal/admin-portal-backend/internal/apperrors"
	"rental-portal/admin-portal-backend/internal/metrics"
	"rental-portal/admin-portal-backend/internal/notifications"
	"rental-portal/admin-portal-backend/pkg/jsonid"
	"rental-portal/admin-portal-backend/pkg/pagination"
)

var ErrPropertyNotFound = errors.New("property not found")

const (
	MsgIDAndActionRequired = "Property ID and action are required"
	MsgPropertyNotFound    = "Property not found"
	MsgInvalidAction       = "Invalid action"
	MsgIDsRequired         = "Property IDs array is required"
	MsgActionRequired      = "Action is required"
	MsgChecklistIncomplete = "Required verification checks are incomplete"
)

// ListFilter selects one page of the verification queue.
type ListFilter struct {
	Page   int
	Limit  int
	Search string
	Status Status
}

type ListResult struct {
	Properties []PropertySummary `json:"properties"`
	Pagination pagination.Meta   `json:"pagination"`
	Stats      Stats             `json:"stats"`
}

// TransitionRequest is the body of a single-property action.
type TransitionRequest struct {
	PropertyID         jsonid.ID `json:"propertyId"`
	Action             Action    `json:"action"`
	VerificationChecks Checks    `json:"verificationChecks,omitempty"`
	Notes              string    `json:"notes,omitempty"`
	Reason             string    `json:"reason,omitempty"`
}

// BulkRequest is the body of a bulk action.
type BulkRequest struct {
	PropertyIDs []jsonid.ID `json:"propertyIds"`
	Action      Action      `json:"action"`
	Notes       string      `json:"notes,omitempty"`
}

type BulkResult struct {
	UpdatedCount      int         `json:"updatedCount"`
	Errors            []string    `json:"errors,omitempty"`
	UpdatedProperties []*Property `json:"updatedProperties"`
}

// PropertyDetail is a property with its checklist evaluation.
type PropertyDetail struct {
	*Property
	Progress        int            `json:"progress"`
	Steps           []StepProgress `json:"steps"`
	MissingRequired []string       `json:"missingRequired"`
	CanVerify       bool           `json:"canVerify"`
}

// Options tune the service.
type Options struct {
	// EnforceChecklist makes verify actions fail unless every required
	// criterion is checked. Off by default: the dashboard gates the action itself.
	EnforceChecklist bool
	// Notifier tells managers when a listing is approved or rejected. Optional.
	Notifier notifications.Notifier
	Now      func() time.Time
}

// Service implements the verification workflow
type Service struct {
	repo     Repository
	logger   *zap.Logger
	enforce  bool
	notifier notifications.Notifier
	validate *validator.Validate
	now      func() time.Time
	onChange func()
}

// NewService creates a new verification service
func NewService(repo Repository, logger *zap.Logger, opts Options) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:     repo,
		logger:   logger,
		enforce:  opts.EnforceChecklist,
		notifier: opts.Notifier,
		validate: newValidator(),
		now:      now,
	}
}

// OnChange registers fn to run after every successful mutation.
func (s *Service) OnChange(fn func()) {
	s.onChange = fn
}

// ListProperties filters, paginates and summarises the queue. Stats always
// cover the unfiltered collection.
func (s *Service) ListProperties(ctx context.Context, f ListFilter) (*ListResult, error) {
	all, err := s.repo.ListProperties(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]PropertySummary, 0, len(all))
	for _, p := range all {
		if !matchesSearch(p, f.Search) {
			continue
		}
		if f.Status != "" && f.Status != StatusAll && p.VerificationStatus != f.Status {
			continue
		}
		filtered = append(filtered, PropertySummary{Property: p, Progress: Progress(p.VerificationChecks)})
	}

	return &ListResult{
		Properties: pagination.Slice(filtered, f.Page, f.Limit),
		Pagination: pagination.NewMeta(f.Page, f.Limit, len(filtered)),
		Stats:      ComputeStats(all),
	}, nil
}

// Stats counts the whole collection by status.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	all, err := s.repo.ListProperties(ctx)
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(all), nil
}

func matchesSearch(p *Property, search string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	return strings.Contains(strings.ToLower(p.Name), needle) ||
		strings.Contains(strings.ToLower(p.Location), needle) ||
		strings.Contains(strings.ToLower(p.Manager.FullName()), needle)
}

// ComputeStats counts properties per status.
func ComputeStats(props []*Property) Stats {
	stats := Stats{Total: len(props)}
	for _, p := range props {
		switch p.VerificationStatus {
		case StatusPending:
			stats.Pending++
		case StatusInReview:
			stats.InReview++
		case StatusVerified:
			stats.Verified++
		case StatusRejected:
			stats.Rejected++
		case StatusNeedsRevision:
			stats.NeedsRevision++
		}
	}
	return stats
}

// GetProperty returns a property with its checklist evaluation.
func (s *Service) GetProperty(ctx context.Context, id int64) (*PropertyDetail, error) {
	p, err := s.repo.GetProperty(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperrors.NotFound(MsgPropertyNotFound)
	}
	missing := MissingRequired(p.VerificationChecks)
	if missing == nil {
		missing = []string{}
	}
	return &PropertyDetail{
		Property:        p,
		Progress:        Progress(p.VerificationChecks),
		Steps:           StepCompletion(p.VerificationChecks),
		MissingRequired: missing,
		CanVerify:       len(missing) == 0,
	}, nil
}

// History returns the recorded actions for a property, oldest first.
func (s *Service) History(ctx context.Context, id int64) ([]Event, error) {
	p, err := s.repo.GetProperty(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperrors.NotFound(MsgPropertyNotFound)
	}
	return s.repo.ListEvents(ctx, id)
}

// Transition applies one admin action to one property.
func (s *Service) Transition(ctx context.Context, actorID string, req TransitionRequest) (*Property, error) {
	if req.PropertyID.IsZero() || req.Action == "" {
		return nil, apperrors.BadRequest(MsgIDAndActionRequired)
	}

	id, ok := req.PropertyID.Int64()
	if !ok {
		return nil, apperrors.NotFound(MsgPropertyNotFound)
	}
	p, err := s.repo.GetProperty(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperrors.NotFound(MsgPropertyNotFound)
	}

	from := p.VerificationStatus
	switch req.Action {
	case ActionVerify:
		checks := p.VerificationChecks
		if req.VerificationChecks != nil {
			checks = req.VerificationChecks
		}
		if s.enforce && !CanVerify(checks) {
			return nil, apperrors.BadRequest(MsgChecklistIncomplete)
		}
	case ActionReject, ActionRequestRevision, ActionStartReview, ActionUpdateChecks:
	default:
		return nil, apperrors.BadRequest(MsgInvalidAction)
	}

	applyAction(p, req.Action, req.VerificationChecks, req.Notes, req.Reason, actorID, s.now().UTC())

	if err := s.repo.UpdateProperty(ctx, p); err != nil {
		if errors.Is(err, ErrPropertyNotFound) {
			return nil, apperrors.NotFound(MsgPropertyNotFound)
		}
		return nil, err
	}
	metrics.VerificationTransitions.WithLabelValues(string(req.Action)).Inc()
	s.recordEvent(ctx, p.ID, req.Action, actorID, from, p.VerificationStatus, map[string]interface{}{
		"notes":              req.Notes,
		"reason":             req.Reason,
		"verificationChecks": req.VerificationChecks,
	})

	s.logger.Info("Property verification updated",
		zap.Int64("property_id", p.ID),
		zap.String("action", string(req.Action)),
		zap.String("from", string(from)),
		zap.String("to", string(p.VerificationStatus)),
		zap.String("actor_id", actorID))

	s.changed()
	return p, nil
}

// BulkTransition applies a bulk action to every listed property. Each id is
// attempted independently; failures are reported per id and never abort the batch.
func (s *Service) BulkTransition(ctx context.Context, actorID string, req BulkRequest) (*BulkResult, error) {
	if len(req.PropertyIDs) == 0 {
		return nil, apperrors.BadRequest(MsgIDsRequired)
	}
	if req.Action == "" {
		return nil, apperrors.BadRequest(MsgActionRequired)
	}

	result := &BulkResult{UpdatedProperties: []*Property{}}
	now := s.now().UTC()

	for _, rawID := range req.PropertyIDs {
		var p *Property
		if id, ok := rawID.Int64(); ok {
			found, err := s.repo.GetProperty(ctx, id)
			if err != nil {
				s.logger.Error("Failed to load property for bulk action", zap.Error(err), zap.String("property_id", rawID.String()))
				result.Errors = append(result.Errors, fmt.Sprintf("Failed to update property %s", rawID))
				continue
			}
			p = found
		}
		if p == nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Property %s not found", rawID))
			continue
		}

		switch req.Action {
		case ActionBulkVerify:
			if s.enforce && !CanVerify(p.VerificationChecks) {
				result.Errors = append(result.Errors, fmt.Sprintf("Property %s has incomplete required checks", rawID))
				continue
			}
		case ActionBulkReject, ActionBulkStartReview:
		default:
			result.Errors = append(result.Errors, fmt.Sprintf("Invalid action for property %s", rawID))
			continue
		}

		from := p.VerificationStatus
		applyAction(p, req.Action, nil, req.Notes, "", actorID, now)

		if err := s.repo.UpdateProperty(ctx, p); err != nil {
			s.logger.Error("Failed to update property in bulk action", zap.Error(err), zap.Int64("property_id", p.ID))
			result.Errors = append(result.Errors, fmt.Sprintf("Failed to update property %s", rawID))
			continue
		}
		metrics.VerificationTransitions.WithLabelValues(string(req.Action)).Inc()
		s.recordEvent(ctx, p.ID, req.Action, actorID, from, p.VerificationStatus, map[string]interface{}{
			"notes": req.Notes,
		})
		result.UpdatedProperties = append(result.UpdatedProperties, p)
	}

	result.UpdatedCount = len(result.UpdatedProperties)

	s.logger.Info("Bulk property verification applied",
		zap.String("action", string(req.Action)),
		zap.Int("requested", len(req.PropertyIDs)),
		zap.Int("updated", result.UpdatedCount),
		zap.String("actor_id", actorID))

	if result.UpdatedCount > 0 {
		s.changed()
	}
	return result, nil
}

// applyAction overwrites only the fields owned by action. Stamps left by
// other actions stay in place.
func applyAction(p *Property, action Action, checks Checks, notes, reason, actor string, now time.Time) {
	stamp := now
	switch action {
	case ActionVerify:
		p.VerificationStatus = StatusVerified
		if checks != nil {
			p.VerificationChecks = checks.Clone()
		}
		p.VerificationNotes = notes
		p.VerifiedAt = &stamp
		p.VerifiedBy = actor
	case ActionReject:
		p.VerificationStatus = StatusRejected
		p.RejectionReason = reason
		p.RejectionNotes = notes
		p.RejectedAt = &stamp
		p.RejectedBy = actor
	case ActionRequestRevision:
		p.VerificationStatus = StatusNeedsRevision
		p.RevisionNotes = notes
		p.RevisionRequestedAt = &stamp
		p.RevisionRequestedBy = actor
	case ActionStartReview, ActionBulkStartReview:
		p.VerificationStatus = StatusInReview
		p.ReviewStartedAt = &stamp
		p.ReviewStartedBy = actor
	case ActionUpdateChecks:
		if checks != nil {
			p.VerificationChecks = checks.Clone()
		}
		p.LastUpdatedAt = &stamp
		p.LastUpdatedBy = actor
	case ActionBulkVerify:
		p.VerificationStatus = StatusVerified
		p.VerificationNotes = notes
		p.VerifiedAt = &stamp
		p.VerifiedBy = actor
	case ActionBulkReject:
		p.VerificationStatus = StatusRejected
		p.RejectionNotes = notes
		p.RejectedAt = &stamp
		p.RejectedBy = actor
	}
}

func (s *Service) recordEvent(ctx context.Context, propertyID int64, action Action, actor string, from, to Status, payload map[string]interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = nil
	}
	event := &Event{
		ID:         uuid.New(),
		PropertyID: propertyID,
		Action:     action,
		ActorID:    actor,
		FromStatus: from,
		ToStatus:   to,
		Payload:    datatypes.JSON(raw),
		CreatedAt:  s.now().UTC(),
	}
	if err := s.repo.AppendEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to record verification event",
			zap.Error(err),
			zap.Int64("property_id", propertyID),
			zap.String("action", string(action)))
	}
}

func (s *Service) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

// Checklist returns the static step catalogue.
func (s *Service) Checklist() []Step {
	return Steps()
}
