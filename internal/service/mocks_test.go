package service

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"sparked/internal/mail"
	"sparked/internal/model"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	args := m.Called(ctx, phone)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) ExistsByFullName(ctx context.Context, fullName string) (bool, error) {
	args := m.Called(ctx, fullName)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) MarkEmailVerified(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) IncrementFailedLogins(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) RecordLogin(ctx context.Context, id uint, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockUserRepository) List(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

// MockVerifier is a mock implementation of turnstile.Verifier.
type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	args := m.Called(ctx, token, remoteIP)
	return args.Bool(0), args.Error(1)
}

func passingVerifier() *MockVerifier {
	v := new(MockVerifier)
	v.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	return v
}

// fakeDispatcher records messages instead of sending them.
type fakeDispatcher struct {
	mu   sync.Mutex
	msgs []mail.Message
}

func (d *fakeDispatcher) Dispatch(msg mail.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.msgs = append(d.msgs, msg)
}

func (d *fakeDispatcher) messages() []mail.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]mail.Message(nil), d.msgs...)
}

// memUserRepository enforces the same unique columns as the schema.
type memUserRepository struct {
	mu     sync.Mutex
	users  []*model.User
	nextID uint
}

func newMemUserRepository() *memUserRepository {
	return &memUserRepository{nextID: 1}
}

func (r *memUserRepository) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email || u.Phone == user.Phone || u.FullName == user.FullName {
			return gorm.ErrDuplicatedKey
		}
	}
	user.ID = r.nextID
	r.nextID++
	stored := *user
	r.users = append(r.users, &stored)
	return nil
}

func (r *memUserRepository) find(match func(*model.User) bool) *model.User {
	for _, u := range r.users {
		if match(u) {
			return u
		}
	}
	return nil
}

func (r *memUserRepository) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u := r.find(func(u *model.User) bool { return u.Email == email }); u != nil {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUserRepository) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(func(u *model.User) bool { return u.Email == email }) != nil, nil
}

func (r *memUserRepository) ExistsByPhone(_ context.Context, phone string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(func(u *model.User) bool { return u.Phone == phone }) != nil, nil
}

func (r *memUserRepository) ExistsByFullName(_ context.Context, fullName string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(func(u *model.User) bool { return u.FullName == fullName }) != nil, nil
}

func (r *memUserRepository) MarkEmailVerified(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.find(func(u *model.User) bool { return u.Email == email })
	if u == nil {
		return nil, gorm.ErrRecordNotFound
	}
	u.EmailVerified = true
	cp := *u
	return &cp, nil
}

func (r *memUserRepository) IncrementFailedLogins(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u := r.find(func(u *model.User) bool { return u.ID == id }); u != nil {
		u.FailedLogins++
	}
	return nil
}

func (r *memUserRepository) RecordLogin(_ context.Context, id uint, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u := r.find(func(u *model.User) bool { return u.ID == id }); u != nil {
		u.FailedLogins = 0
		u.LastLoginAt = &at
	}
	return nil
}

func (r *memUserRepository) List(_ context.Context) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, nil
}

func (r *memUserRepository) countByEmail(email string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, u := range r.users {
		if u.Email == email {
			n++
		}
	}
	return n
}
