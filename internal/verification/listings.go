package verification

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"rental-portal/admin-portal-backend/internal/apperrors"
	"rental-portal/admin-portal-backend/internal/auth"
	"rental-portal/admin-portal-backend/internal/notifications"
	"rental-portal/admin-portal-backend/pkg/jsonid"
	"rental-portal/admin-portal-backend/pkg/pagination"
)

const (
	MsgListingIDRequired  = "Property ID is required"
	MsgReasonRequired     = "Rejection reason is required"
	MsgNameRequired       = "Property name is required"
	MsgSuperAdminRequired = "Super admin access required"
	MsgCreateForbidden    = "Forbidden"

	// AllTypes disables the property type filter.
	AllTypes = "All Types"
)

// ListingFilter selects one page of the admin listing table.
type ListingFilter struct {
	Page   int
	Limit  int
	Search string
	Type   string
}

type ListingResult struct {
	Properties []*Property      `json:"properties"`
	Pagination pagination.Meta `json:"pagination"`
}

// ListingInput holds the editable listing fields. Nil fields are left untouched.
type ListingInput struct {
	Name          *string        `json:"name" validate:"omitnil,min=1,max=200"`
	Location      *string        `json:"location" validate:"omitnil,max=200"`
	PropertyType  *string        `json:"propertyType" validate:"omitnil,max=50"`
	Description   *string        `json:"description" validate:"omitnil,max=5000"`
	Photos        []string       `json:"photos"`
	Amenities     []string       `json:"amenities"`
	PricePerNight *float64       `json:"pricePerNight" validate:"omitnil,gte=0"`
	Capacity      *int           `json:"capacity" validate:"omitnil,gte=0"`
	Bedrooms      *int           `json:"bedrooms" validate:"omitnil,gte=0"`
	Bathrooms     *int           `json:"bathrooms" validate:"omitnil,gte=0"`
	Status        *ListingStatus `json:"status" validate:"omitnil,oneof=PENDING ACTIVE MAINTENANCE REJECTED"`
}

// ListingUpdateRequest is the body of an admin listing edit.
type ListingUpdateRequest struct {
	ID jsonid.ID `json:"id"`
	ListingInput
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

func inputError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.BadRequest("Invalid request body")
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "min":
		return apperrors.BadRequest(fe.Field() + " must not be empty")
	case "max":
		return apperrors.BadRequest(fe.Field() + " must be at most " + fe.Param() + " characters")
	case "gte":
		return apperrors.BadRequest(fe.Field() + " must not be negative")
	case "oneof":
		return apperrors.BadRequest(fe.Field() + " must be one of " + fe.Param())
	}
	return apperrors.BadRequest(fe.Field() + " is invalid")
}

func (in *ListingInput) apply(p *Property) {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Location != nil {
		p.Location = *in.Location
	}
	if in.PropertyType != nil {
		p.PropertyType = *in.PropertyType
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Photos != nil {
		p.Photos = append([]string{}, in.Photos...)
	}
	if in.Amenities != nil {
		p.Amenities = append([]string{}, in.Amenities...)
	}
	if in.PricePerNight != nil {
		p.PricePerNight = *in.PricePerNight
	}
	if in.Capacity != nil {
		p.Capacity = *in.Capacity
	}
	if in.Bedrooms != nil {
		p.Bedrooms = *in.Bedrooms
	}
	if in.Bathrooms != nil {
		p.Bathrooms = *in.Bathrooms
	}
	if in.Status != nil {
		p.Status = *in.Status
	}
}

func matchesListingSearch(p *Property, search string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	for _, field := range []string{p.Name, p.Description, p.Location, p.Manager.FirstName, p.Manager.LastName} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func newestFirst(props []*Property) {
	sort.SliceStable(props, func(i, j int) bool {
		return props[i].CreatedAt.After(props[j].CreatedAt)
	})
}

// ListListings pages through every listing, newest first.
func (s *Service) ListListings(ctx context.Context, f ListingFilter) (*ListingResult, error) {
	all, err := s.repo.ListProperties(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]*Property, 0, len(all))
	for _, p := range all {
		if !matchesListingSearch(p, f.Search) {
			continue
		}
		if f.Type != "" && f.Type != AllTypes && p.PropertyType != f.Type {
			continue
		}
		filtered = append(filtered, p)
	}
	newestFirst(filtered)

	return &ListingResult{
		Properties: pagination.Slice(filtered, f.Page, f.Limit),
		Pagination: pagination.NewMeta(f.Page, f.Limit, len(filtered)),
	}, nil
}

// ManagedListings returns what user may see on the dashboard: a manager's own
// listings, everything for admins, and only active listings for anyone else.
func (s *Service) ManagedListings(ctx context.Context, user *auth.User) ([]*Property, error) {
	all, err := s.repo.ListProperties(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*Property, 0, len(all))
	for _, p := range all {
		switch {
		case user.IsAdmin():
		case user.Role == auth.RolePropertyManager:
			if p.Manager.ID != user.ID.String() {
				continue
			}
		default:
			if p.Status != ListingActive {
				continue
			}
		}
		out = append(out, p)
	}
	newestFirst(out)
	return out, nil
}

// CreateListing adds a listing managed by user. New listings always start
// PENDING on both axes with an empty checklist.
func (s *Service) CreateListing(ctx context.Context, user *auth.User, in ListingInput) (*Property, error) {
	if user.Role != auth.RolePropertyManager && user.Role != auth.RoleSuperAdmin {
		return nil, apperrors.Forbidden(MsgCreateForbidden)
	}
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, apperrors.BadRequest(MsgNameRequired)
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, inputError(err)
	}

	p := &Property{
		Manager: Manager{
			ID:        user.ID.String(),
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Email:     user.Email,
		},
	}
	in.Status = nil
	in.apply(p)
	p.CreatedAt = s.now().UTC()

	if err := s.repo.CreateProperty(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("Property created",
		zap.Int64("property_id", p.ID),
		zap.String("name", p.Name),
		zap.String("manager_id", p.Manager.ID))

	s.changed()
	return p, nil
}

func (s *Service) loadListing(ctx context.Context, rawID jsonid.ID) (*Property, error) {
	if rawID.IsZero() {
		return nil, apperrors.BadRequest(MsgListingIDRequired)
	}
	id, ok := rawID.Int64()
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
	return p, nil
}

func (s *Service) saveListing(ctx context.Context, p *Property) error {
	if err := s.repo.UpdateProperty(ctx, p); err != nil {
		if errors.Is(err, ErrPropertyNotFound) {
			return apperrors.NotFound(MsgPropertyNotFound)
		}
		return err
	}
	return nil
}

// UpdateListing edits listing fields. Verification state is not editable here.
func (s *Service) UpdateListing(ctx context.Context, actorID string, req ListingUpdateRequest) (*Property, error) {
	p, err := s.loadListing(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if err := s.validate.Struct(req.ListingInput); err != nil {
		return nil, inputError(err)
	}

	req.ListingInput.apply(p)
	if err := s.saveListing(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("Property updated",
		zap.Int64("property_id", p.ID),
		zap.String("actor_id", actorID))
	return p, nil
}

// DeleteListing removes a listing and its verification history.
func (s *Service) DeleteListing(ctx context.Context, actorID string, rawID jsonid.ID) error {
	if rawID.IsZero() {
		return apperrors.BadRequest(MsgListingIDRequired)
	}
	id, ok := rawID.Int64()
	if !ok {
		return apperrors.NotFound(MsgPropertyNotFound)
	}
	if err := s.repo.DeleteProperty(ctx, id); err != nil {
		if errors.Is(err, ErrPropertyNotFound) {
			return apperrors.NotFound(MsgPropertyNotFound)
		}
		return err
	}

	s.logger.Info("Property deleted", zap.Int64("property_id", id), zap.String("actor_id", actorID))
	s.changed()
	return nil
}

// ApproveListing makes a listing bookable. Only super admins may approve.
func (s *Service) ApproveListing(ctx context.Context, user *auth.User, rawID jsonid.ID) (*Property, error) {
	if user.Role != auth.RoleSuperAdmin {
		return nil, apperrors.Forbidden(MsgSuperAdminRequired)
	}
	p, err := s.loadListing(ctx, rawID)
	if err != nil {
		return nil, err
	}

	p.Status = ListingActive
	if err := s.saveListing(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("Property approved",
		zap.Int64("property_id", p.ID),
		zap.String("actor_id", user.ID.String()))
	s.notifyManager(ctx, p, notifications.TypePropertyApproved, "Property Approved",
		fmt.Sprintf("Your property %q has been approved and is now live.", p.Name), nil)
	return p, nil
}

// RejectListing takes a listing off the market with a reason.
func (s *Service) RejectListing(ctx context.Context, user *auth.User, rawID jsonid.ID, reason string) (*Property, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.BadRequest(MsgReasonRequired)
	}
	p, err := s.loadListing(ctx, rawID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p.Status = ListingRejected
	p.RejectedAt = &now
	p.RejectedBy = user.ID.String()
	p.RejectionReason = reason
	if err := s.saveListing(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("Property rejected",
		zap.Int64("property_id", p.ID),
		zap.String("actor_id", user.ID.String()),
		zap.String("reason", reason))
	s.notifyManager(ctx, p, notifications.TypePropertyRejected, "Property Rejected",
		fmt.Sprintf("Your property %q has been rejected. Reason: %s", p.Name, reason),
		map[string]interface{}{"rejectionReason": reason})
	return p, nil
}

func (s *Service) notifyManager(ctx context.Context, p *Property, kind, title, message string, extra map[string]interface{}) {
	if s.notifier == nil || p.Manager.ID == "" {
		return
	}
	data := map[string]interface{}{
		"propertyId":   p.ID,
		"propertyName": p.Name,
	}
	for k, v := range extra {
		data[k] = v
	}
	s.notifier.Notify(ctx, &notifications.Request{
		UserID:  p.Manager.ID,
		Email:   p.Manager.Email,
		Phone:   p.Manager.Phone,
		Type:    kind,
		Title:   title,
		Message: message,
		Data:    data,
	})
}
