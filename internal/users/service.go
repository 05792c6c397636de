package users

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rental-portal/admin-portal-backend/internal/apperrors"
	"rental-portal/admin-portal-backend/internal/auth"
	"rental-portal/admin-portal-backend/internal/notifications"
	"rental-portal/admin-portal-backend/pkg/pagination"
	"rental-portal/admin-portal-backend/pkg/ratelimit"
)

const (
	MsgUserIDRequired       = "User ID is required"
	MsgUserNotFound         = "User not found"
	MsgCreateFieldsRequired = "First name, last name, email and password are required"
	MsgInvalidEmail         = "Please provide a valid email address"
	MsgWeakPassword         = "Password must be at least 8 characters and contain a letter and a number"
	MsgInvalidRole          = "Invalid role"
	MsgInvalidStatus        = "Invalid verification status"
	MsgEmailTaken           = "A user with this email already exists"
	MsgSuperAdminOnly       = "Only a super admin can manage super admin accounts"
	MsgCannotDeleteSelf     = "You cannot delete your own account"
	MsgCannotBlockSelf      = "You cannot block your own account"
	MsgResetRateLimited     = "Too many password reset attempts. Please try again later."
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Options tune the service.
type Options struct {
	// ResetLimiter caps password resets per target account. Nil disables the cap.
	ResetLimiter ratelimit.Limiter
	// Mailer delivers temporary passwords. Without one the password is
	// returned to the admin in the API response.
	Mailer notifications.EmailSender
	Now    func() time.Time
}

// Service implements admin user management
type Service struct {
	repo      Repository
	notifier  notifications.Notifier
	logger    *zap.Logger
	limiter   ratelimit.Limiter
	mailer    notifications.EmailSender
	now       func() time.Time
	onBlocked func(userID string)
	onChange  func()
}

func NewService(repo Repository, notifier notifications.Notifier, logger *zap.Logger, opts Options) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
		limiter:  opts.ResetLimiter,
		mailer:   opts.Mailer,
		now:      now,
	}
}

// OnBlocked registers fn to run after an account is blocked.
func (s *Service) OnBlocked(fn func(userID string)) {
	s.onBlocked = fn
}

// OnChange registers fn to run after every successful mutation.
func (s *Service) OnChange(fn func()) {
	s.onChange = fn
}

func (s *Service) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

// ListQuery is the parsed query string of GET /admin/users.
type ListQuery struct {
	Page   int
	Limit  int
	Search string
	Role   string
	Status string
}

type ListResult struct {
	Users      []User          `json:"users"`
	Pagination pagination.Meta `json:"pagination"`
	Stats      *Stats          `json:"stats"`
}

func (s *Service) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	filter := ListFilter{
		Search: strings.TrimSpace(q.Search),
		Limit:  q.Limit,
		Offset: (q.Page - 1) * q.Limit,
	}
	if q.Role != "" && !strings.EqualFold(q.Role, "ALL") {
		filter.Role = auth.Role(strings.ToUpper(q.Role))
	}
	if q.Status != "" && !strings.EqualFold(q.Status, "ALL") {
		filter.Status = Status(strings.ToUpper(q.Status))
	}

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []User{}
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		return nil, err
	}

	return &ListResult{
		Users:      users,
		Pagination: pagination.NewMeta(q.Page, q.Limit, int(total)),
		Stats:      stats,
	}, nil
}

// Stats counts users by role and status, plus accounts created this month.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	byRole, err := s.repo.CountByRole(ctx)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	newThisMonth, err := s.repo.CountCreatedSince(ctx, startOfMonth)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		SuperAdmins:      byRole[auth.RoleSuperAdmin],
		Admins:           byRole[auth.RoleAdmin],
		PropertyManagers: byRole[auth.RolePropertyManager],
		Customers:        byRole[auth.RoleCustomer],
		Verified:         byStatus[StatusVerified],
		Pending:          byStatus[StatusPending],
		Rejected:         byStatus[StatusRejected],
		Blocked:          byStatus[StatusBlocked],
		NewThisMonth:     newThisMonth,
	}
	for _, n := range byRole {
		stats.Total += n
	}
	return stats, nil
}

func (s *Service) load(ctx context.Context, rawID string) (*User, error) {
	if strings.TrimSpace(rawID) == "" {
		return nil, apperrors.BadRequest(MsgUserIDRequired)
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, apperrors.NotFound(MsgUserNotFound)
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperrors.NotFound(MsgUserNotFound)
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, rawID string) (*User, error) {
	return s.load(ctx, rawID)
}

func (s *Service) Create(ctx context.Context, actor *auth.User, req CreateRequest) (*User, error) {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.FirstName == "" || req.LastName == "" || req.Email == "" || req.Password == "" {
		return nil, apperrors.BadRequest(MsgCreateFieldsRequired)
	}
	if !emailPattern.MatchString(req.Email) {
		return nil, apperrors.BadRequest(MsgInvalidEmail)
	}
	if !ValidatePassword(req.Password) {
		return nil, apperrors.BadRequest(MsgWeakPassword)
	}
	if req.Role == "" {
		req.Role = auth.RoleCustomer
	}
	if !validRole(req.Role) {
		return nil, apperrors.BadRequest(MsgInvalidRole)
	}
	if req.Role == auth.RoleSuperAdmin && actor.Role != auth.RoleSuperAdmin {
		return nil, apperrors.Forbidden(MsgSuperAdminOnly)
	}
	if req.VerificationStatus == "" {
		req.VerificationStatus = StatusPending
	}
	if !req.VerificationStatus.Valid() {
		return nil, apperrors.BadRequest(MsgInvalidStatus)
	}

	existing, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.Conflict(MsgEmailTaken)
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &User{
		ID:                 uuid.New(),
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		Email:              req.Email,
		Password:           hash,
		Phone:              req.Phone,
		Role:               req.Role,
		VerificationStatus: req.VerificationStatus,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User created",
		zap.String("admin_id", actor.ID.String()),
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)))
	s.changed()
	return user, nil
}

func (s *Service) Update(ctx context.Context, actor *auth.User, req UpdateRequest) (*User, error) {
	user, err := s.load(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if user.Role == auth.RoleSuperAdmin && actor.Role != auth.RoleSuperAdmin {
		return nil, apperrors.Forbidden(MsgSuperAdminOnly)
	}

	var fields []string
	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
		fields = append(fields, "firstName")
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
		fields = append(fields, "lastName")
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
		fields = append(fields, "phone")
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if !emailPattern.MatchString(email) {
			return nil, apperrors.BadRequest(MsgInvalidEmail)
		}
		if email != user.Email {
			other, err := s.repo.GetByEmail(ctx, email)
			if err != nil {
				return nil, err
			}
			if other != nil && other.ID != user.ID {
				return nil, apperrors.Conflict(MsgEmailTaken)
			}
		}
		user.Email = email
		fields = append(fields, "email")
	}
	if req.Role != nil {
		if !validRole(*req.Role) {
			return nil, apperrors.BadRequest(MsgInvalidRole)
		}
		if *req.Role == auth.RoleSuperAdmin && actor.Role != auth.RoleSuperAdmin {
			return nil, apperrors.Forbidden(MsgSuperAdminOnly)
		}
		user.Role = *req.Role
		fields = append(fields, "role")
	}
	if req.VerificationStatus != nil {
		if !req.VerificationStatus.Valid() {
			return nil, apperrors.BadRequest(MsgInvalidStatus)
		}
		user.VerificationStatus = *req.VerificationStatus
		fields = append(fields, "verificationStatus")
	}
	if req.Password != nil {
		if !ValidatePassword(*req.Password) {
			return nil, apperrors.BadRequest(MsgWeakPassword)
		}
		hash, err := HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		user.Password = hash
		fields = append(fields, "password")
	}

	user.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User updated",
		zap.String("admin_id", actor.ID.String()),
		zap.String("user_id", user.ID.String()),
		zap.Strings("fields", fields))
	s.changed()
	return user, nil
}

func (s *Service) Delete(ctx context.Context, actor *auth.User, rawID string) error {
	user, err := s.load(ctx, rawID)
	if err != nil {
		return err
	}
	if user.ID.String() == actor.ID.String() {
		return apperrors.BadRequest(MsgCannotDeleteSelf)
	}
	if user.Role == auth.RoleSuperAdmin && actor.Role != auth.RoleSuperAdmin {
		return apperrors.Forbidden(MsgSuperAdminOnly)
	}

	found, err := s.repo.Delete(ctx, user.ID)
	if err != nil {
		return err
	}
	if !found {
		return apperrors.NotFound(MsgUserNotFound)
	}

	s.logger.Info("User deleted", zap.String("admin_id", actor.ID.String()), zap.String("user_id", user.ID.String()))
	s.changed()
	return nil
}

// SetBlocked blocks an account, or restores it to VERIFIED.
func (s *Service) SetBlocked(ctx context.Context, actor *auth.User, rawID string, req BlockRequest) (*User, error) {
	user, err := s.load(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if user.ID.String() == actor.ID.String() {
		return nil, apperrors.BadRequest(MsgCannotBlockSelf)
	}
	if user.Role == auth.RoleSuperAdmin && actor.Role != auth.RoleSuperAdmin {
		return nil, apperrors.Forbidden(MsgSuperAdminOnly)
	}

	block := req.Blocked == nil || *req.Blocked
	now := s.now().UTC()
	if block {
		user.VerificationStatus = StatusBlocked
		user.BlockedAt = &now
		user.BlockedBy = actor.ID.String()
		user.BlockReason = req.Reason
	} else {
		user.VerificationStatus = StatusVerified
		user.BlockedAt = nil
		user.BlockedBy = ""
		user.BlockReason = ""
	}
	user.UpdatedAt = now

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User block status changed",
		zap.String("admin_id", actor.ID.String()),
		zap.String("user_id", user.ID.String()),
		zap.Bool("blocked", block))

	if block {
		if s.onBlocked != nil {
			s.onBlocked(user.ID.String())
		}
		s.notifier.Notify(ctx, &notifications.Request{
			UserID:  user.ID.String(),
			Email:   user.Email,
			Type:    notifications.TypeAccountBlocked,
			Title:   "Account suspended",
			Message: "Your account has been suspended. Please contact support for more information.",
		})
	}
	s.changed()
	return user, nil
}

// ResetResult is returned by ResetPassword.
type ResetResult struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	TemporaryPassword string `json:"temporaryPassword,omitempty"`
}

// ResetPassword replaces the account password with a random temporary one
// and sends it to the user.
func (s *Service) ResetPassword(ctx context.Context, actor *auth.User, rawID string) (*ResetResult, error) {
	user, err := s.load(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if user.Role == auth.RoleSuperAdmin && actor.Role != auth.RoleSuperAdmin {
		return nil, apperrors.Forbidden(MsgSuperAdminOnly)
	}

	if s.limiter != nil {
		res, err := s.limiter.Allow(ctx, "password-reset:"+user.ID.String())
		if err != nil {
			s.logger.Warn("Password reset limiter unavailable", zap.Error(err))
		} else if !res.Allowed {
			return nil, apperrors.TooManyRequests(MsgResetRateLimited)
		}
	}

	temp, err := GenerateTemporaryPassword()
	if err != nil {
		return nil, err
	}
	hash, err := HashPassword(temp)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user.Password = hash
	user.PasswordResetAt = &now
	user.UpdatedAt = now
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User password reset", zap.String("admin_id", actor.ID.String()), zap.String("user_id", user.ID.String()))

	s.notifier.Notify(ctx, &notifications.Request{
		UserID:  user.ID.String(),
		Type:    notifications.TypePasswordReset,
		Title:   "Your password has been reset",
		Message: "An administrator reset your password. Check your email for the temporary password.",
	})

	if s.mailer == nil {
		return &ResetResult{
			Success:           true,
			Message:           "Password reset. Share the temporary password with the user.",
			TemporaryPassword: temp,
		}, nil
	}

	body := fmt.Sprintf("Hello %s,\n\nAn administrator reset your password. Your temporary password is: %s\n\nPlease change it after signing in.",
		user.FirstName, temp)
	if err := s.mailer.Send(ctx, user.Email, "Your password has been reset", body); err != nil {
		return nil, apperrors.Internal("Failed to send password reset email", err)
	}

	return &ResetResult{
		Success: true,
		Message: fmt.Sprintf("A temporary password has been sent to %s", user.Email),
	}, nil
}
