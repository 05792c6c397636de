package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rental-portal/admin-portal-backend/internal/apperrors"
	"rental-portal/admin-portal-backend/internal/auth"
	"rental-portal/admin-portal-backend/internal/notifications"
	"rental-portal/admin-portal-backend/pkg/ratelimit"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) List(ctx context.Context, f ListFilter) ([]User, int64, error) {
	args := m.Called(ctx, f)
	users, _ := args.Get(0).([]User)
	return users, args.Get(1).(int64), args.Error(2)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*User)
	return u, args.Error(1)
}

func (m *MockRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*User)
	return u, args.Error(1)
}

func (m *MockRepository) Create(ctx context.Context, u *User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *MockRepository) Update(ctx context.Context, u *User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *MockRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) CountByRole(ctx context.Context) (map[auth.Role]int64, error) {
	args := m.Called(ctx)
	counts, _ := args.Get(0).(map[auth.Role]int64)
	return counts, args.Error(1)
}

func (m *MockRepository) CountByStatus(ctx context.Context) (map[Status]int64, error) {
	args := m.Called(ctx)
	counts, _ := args.Get(0).(map[Status]int64)
	return counts, args.Error(1)
}

func (m *MockRepository) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(int64), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, req *notifications.Request) {
	m.Called(ctx, req)
}

type recordingMailer struct {
	to, body string
	err      error
}

func (r *recordingMailer) Send(ctx context.Context, to, subject, body string) error {
	r.to, r.body = to, body
	return r.err
}

var (
	fixedNow   = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	admin      = &auth.User{ID: "a0000000-0000-0000-0000-000000000001", Role: auth.RoleAdmin}
	superAdmin = &auth.User{ID: "a0000000-0000-0000-0000-000000000002", Role: auth.RoleSuperAdmin}
)

func newTestService(repo Repository, notifier notifications.Notifier, opts Options) *Service {
	opts.Now = func() time.Time { return fixedNow }
	return NewService(repo, notifier, zap.NewNop(), opts)
}

func sampleUser(role auth.Role) *User {
	return &User{
		ID:                 uuid.New(),
		FirstName:          "Grace",
		LastName:           "Wanjiru",
		Email:              "grace@example.com",
		Role:               role,
		VerificationStatus: StatusVerified,
		CreatedAt:          fixedNow.AddDate(0, -2, 0),
	}
}

func TestStats(t *testing.T) {
	repo := new(MockRepository)
	repo.On("CountByRole", mock.Anything).Return(map[auth.Role]int64{
		auth.RoleSuperAdmin: 1, auth.RoleAdmin: 2, auth.RolePropertyManager: 5, auth.RoleCustomer: 40,
	}, nil)
	repo.On("CountByStatus", mock.Anything).Return(map[Status]int64{
		StatusVerified: 30, StatusPending: 15, StatusBlocked: 3,
	}, nil)
	repo.On("CountCreatedSince", mock.Anything, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)).Return(int64(6), nil)

	stats, err := newTestService(repo, nil, Options{}).Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{
		Total: 48, SuperAdmins: 1, Admins: 2, PropertyManagers: 5, Customers: 40,
		Verified: 30, Pending: 15, Blocked: 3, NewThisMonth: 6,
	}, *stats)
}

func TestListBuildsFilter(t *testing.T) {
	repo := new(MockRepository)
	repo.On("List", mock.Anything, ListFilter{Search: "grace", Role: auth.RoleCustomer, Limit: 10, Offset: 10}).
		Return([]User{*sampleUser(auth.RoleCustomer)}, int64(11), nil)
	repo.On("CountByRole", mock.Anything).Return(map[auth.Role]int64{}, nil)
	repo.On("CountByStatus", mock.Anything).Return(map[Status]int64{}, nil)
	repo.On("CountCreatedSince", mock.Anything, mock.Anything).Return(int64(0), nil)

	result, err := newTestService(repo, nil, Options{}).List(context.Background(), ListQuery{
		Page: 2, Limit: 10, Search: " grace ", Role: "customer", Status: "ALL",
	})
	require.NoError(t, err)
	assert.Len(t, result.Users, 1)
	assert.Equal(t, 2, result.Pagination.TotalPages)
	repo.AssertExpectations(t)
}

func TestCreateUser(t *testing.T) {
	repo := new(MockRepository)
	repo.On("GetByEmail", mock.Anything, "new@example.com").Return(nil, nil)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*users.User")).Return(nil)

	changed := false
	service := newTestService(repo, nil, Options{})
	service.OnChange(func() { changed = true })

	user, err := service.Create(context.Background(), admin, CreateRequest{
		FirstName: "New", LastName: "Person", Email: " New@Example.com ", Password: "welcome99",
	})
	require.NoError(t, err)

	assert.Equal(t, "new@example.com", user.Email)
	assert.Equal(t, auth.RoleCustomer, user.Role)
	assert.Equal(t, StatusPending, user.VerificationStatus)
	assert.NotEqual(t, "welcome99", user.Password)
	assert.True(t, CheckPassword(user.Password, "welcome99"))
	assert.True(t, changed)
}

func TestCreateUserValidation(t *testing.T) {
	repo := new(MockRepository)
	repo.On("GetByEmail", mock.Anything, "taken@example.com").Return(sampleUser(auth.RoleCustomer), nil)
	service := newTestService(repo, nil, Options{})

	tests := []struct {
		name   string
		actor  *auth.User
		req    CreateRequest
		status int
		msg    string
	}{
		{"missing fields", admin, CreateRequest{Email: "x@y.co"}, 400, MsgCreateFieldsRequired},
		{"bad email", admin, CreateRequest{FirstName: "A", LastName: "B", Email: "bad", Password: "abcdefg1"}, 400, MsgInvalidEmail},
		{"weak password", admin, CreateRequest{FirstName: "A", LastName: "B", Email: "a@b.co", Password: "short"}, 400, MsgWeakPassword},
		{"bad role", admin, CreateRequest{FirstName: "A", LastName: "B", Email: "a@b.co", Password: "abcdefg1", Role: "OWNER"}, 400, MsgInvalidRole},
		{"super admin by admin", admin, CreateRequest{FirstName: "A", LastName: "B", Email: "a@b.co", Password: "abcdefg1", Role: auth.RoleSuperAdmin}, 403, MsgSuperAdminOnly},
		{"duplicate email", superAdmin, CreateRequest{FirstName: "A", LastName: "B", Email: "taken@example.com", Password: "abcdefg1"}, 409, MsgEmailTaken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Create(context.Background(), tt.actor, tt.req)
			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.status, appErr.StatusCode)
			assert.Equal(t, tt.msg, appErr.Message)
		})
	}
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUpdateUser(t *testing.T) {
	existing := sampleUser(auth.RoleCustomer)
	repo := new(MockRepository)
	repo.On("GetByID", mock.Anything, existing.ID).Return(existing, nil)
	repo.On("GetByEmail", mock.Anything, "other@example.com").Return(&User{ID: uuid.New()}, nil)
	repo.On("Update", mock.Anything, mock.AnythingOfType("*users.User")).Return(nil)

	service := newTestService(repo, nil, Options{})
	ctx := context.Background()

	first := "Gracie"
	status := StatusBlocked
	user, err := service.Update(ctx, admin, UpdateRequest{ID: existing.ID.String(), FirstName: &first, VerificationStatus: &status})
	require.NoError(t, err)
	assert.Equal(t, "Gracie", user.FirstName)
	assert.Equal(t, "Wanjiru", user.LastName)
	assert.Equal(t, StatusBlocked, user.VerificationStatus)
	assert.Equal(t, fixedNow, user.UpdatedAt)

	pw := "newpass123"
	user, err = service.Update(ctx, admin, UpdateRequest{ID: existing.ID.String(), Password: &pw})
	require.NoError(t, err)
	assert.True(t, CheckPassword(user.Password, pw))

	email := "other@example.com"
	_, err = service.Update(ctx, admin, UpdateRequest{ID: existing.ID.String(), Email: &email})
	assert.Equal(t, 409, apperrors.StatusOf(err))

	_, err = service.Update(ctx, admin, UpdateRequest{})
	assert.EqualError(t, err, MsgUserIDRequired)
}

func TestDeleteUser(t *testing.T) {
	target := sampleUser(auth.RoleCustomer)
	root := sampleUser(auth.RoleSuperAdmin)
	self := &User{ID: uuid.MustParse(admin.ID.String()), Role: auth.RoleAdmin}
	missing := uuid.New()

	repo := new(MockRepository)
	repo.On("GetByID", mock.Anything, target.ID).Return(target, nil)
	repo.On("GetByID", mock.Anything, root.ID).Return(root, nil)
	repo.On("GetByID", mock.Anything, self.ID).Return(self, nil)
	repo.On("GetByID", mock.Anything, missing).Return(nil, nil)
	repo.On("Delete", mock.Anything, target.ID).Return(true, nil)

	service := newTestService(repo, nil, Options{})
	ctx := context.Background()

	assert.NoError(t, service.Delete(ctx, admin, target.ID.String()))
	assert.EqualError(t, service.Delete(ctx, admin, ""), MsgUserIDRequired)
	assert.Equal(t, 404, apperrors.StatusOf(service.Delete(ctx, admin, missing.String())))
	assert.Equal(t, 404, apperrors.StatusOf(service.Delete(ctx, admin, "not-a-uuid")))
	assert.EqualError(t, service.Delete(ctx, admin, self.ID.String()), MsgCannotDeleteSelf)
	assert.Equal(t, 403, apperrors.StatusOf(service.Delete(ctx, admin, root.ID.String())))
	repo.AssertNumberOfCalls(t, "Delete", 1)
}

func TestSetBlocked(t *testing.T) {
	target := sampleUser(auth.RolePropertyManager)
	repo := new(MockRepository)
	repo.On("GetByID", mock.Anything, target.ID).Return(target, nil)
	repo.On("Update", mock.Anything, target).Return(nil)

	notifier := new(MockNotifier)
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(r *notifications.Request) bool {
		return r.UserID == target.ID.String() && r.Type == notifications.TypeAccountBlocked
	})).Once()

	var disconnected string
	service := newTestService(repo, notifier, Options{})
	service.OnBlocked(func(id string) { disconnected = id })

	user, err := service.SetBlocked(context.Background(), admin, target.ID.String(), BlockRequest{Reason: "fraud"})
	require.NoError(t, err)
	assert.Equal(t, StatusBlocked, user.VerificationStatus)
	assert.Equal(t, "fraud", user.BlockReason)
	assert.Equal(t, admin.ID.String(), user.BlockedBy)
	assert.Equal(t, target.ID.String(), disconnected)

	no := false
	user, err = service.SetBlocked(context.Background(), admin, target.ID.String(), BlockRequest{Blocked: &no})
	require.NoError(t, err)
	assert.Equal(t, StatusVerified, user.VerificationStatus)
	assert.Nil(t, user.BlockedAt)
	assert.Empty(t, user.BlockReason)
	notifier.AssertExpectations(t)
}

func TestResetPasswordEmailsTemporaryPassword(t *testing.T) {
	target := sampleUser(auth.RoleCustomer)
	repo := new(MockRepository)
	repo.On("GetByID", mock.Anything, target.ID).Return(target, nil)
	repo.On("Update", mock.Anything, target).Return(nil)

	notifier := new(MockNotifier)
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(r *notifications.Request) bool {
		return r.Type == notifications.TypePasswordReset && r.Email == ""
	}))
	mailer := &recordingMailer{}

	result, err := newTestService(repo, notifier, Options{Mailer: mailer}).
		ResetPassword(context.Background(), admin, target.ID.String())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Empty(t, result.TemporaryPassword)
	assert.Equal(t, "grace@example.com", mailer.to)
	require.NotNil(t, target.PasswordResetAt)

	// the mailed password is the one now stored
	var temp string
	for _, word := range splitWords(mailer.body) {
		if len(word) == tempPasswordLen && CheckPassword(target.Password, word) {
			temp = word
		}
	}
	assert.NotEmpty(t, temp)
}

func TestResetPasswordWithoutMailerReveals(t *testing.T) {
	target := sampleUser(auth.RoleCustomer)
	repo := new(MockRepository)
	repo.On("GetByID", mock.Anything, target.ID).Return(target, nil)
	repo.On("Update", mock.Anything, target).Return(nil)
	notifier := new(MockNotifier)
	notifier.On("Notify", mock.Anything, mock.Anything)

	result, err := newTestService(repo, notifier, Options{}).ResetPassword(context.Background(), admin, target.ID.String())
	require.NoError(t, err)
	assert.True(t, CheckPassword(target.Password, result.TemporaryPassword))
}

func TestResetPasswordMailFailure(t *testing.T) {
	target := sampleUser(auth.RoleCustomer)
	repo := new(MockRepository)
	repo.On("GetByID", mock.Anything, target.ID).Return(target, nil)
	repo.On("Update", mock.Anything, target).Return(nil)
	notifier := new(MockNotifier)
	notifier.On("Notify", mock.Anything, mock.Anything)

	_, err := newTestService(repo, notifier, Options{Mailer: &recordingMailer{err: errors.New("ses down")}}).
		ResetPassword(context.Background(), admin, target.ID.String())
	assert.Equal(t, 500, apperrors.StatusOf(err))
}

func TestResetPasswordRateLimited(t *testing.T) {
	target := sampleUser(auth.RoleCustomer)
	repo := new(MockRepository)
	repo.On("GetByID", mock.Anything, target.ID).Return(target, nil)
	repo.On("Update", mock.Anything, target).Return(nil)
	notifier := new(MockNotifier)
	notifier.On("Notify", mock.Anything, mock.Anything)

	service := newTestService(repo, notifier, Options{ResetLimiter: ratelimit.NewMemoryLimiter(3, time.Hour)})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := service.ResetPassword(ctx, admin, target.ID.String())
		require.NoError(t, err)
	}
	_, err := service.ResetPassword(ctx, admin, target.ID.String())
	assert.Equal(t, 429, apperrors.StatusOf(err))
	assert.EqualError(t, err, MsgResetRateLimited)
	repo.AssertNumberOfCalls(t, "Update", 3)
}

func splitWords(s string) []string {
	var out []string
	word := []rune{}
	for _, r := range s {
		if r == ' ' || r == '\n' || r == ':' || r == ',' || r == '.' {
			if len(word) > 0 {
				out = append(out, string(word))
				word = word[:0]
			}
			continue
		}
		word = append(word, r)
	}
	if len(word) > 0 {
		out = append(out, string(word))
	}
	return out
}
