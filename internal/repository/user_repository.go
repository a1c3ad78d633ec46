package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"sparked/internal/model"
)

// UserRepository is the credential store. Errors are returned as gorm reports
// them (gorm.ErrRecordNotFound, gorm.ErrDuplicatedKey, driver errors); the
// service layer translates them.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
	ExistsByFullName(ctx context.Context, fullName string) (bool, error)
	MarkEmailVerified(ctx context.Context, email string) (*model.User, error)
	IncrementFailedLogins(ctx context.Context, id uint) error
	RecordLogin(ctx context.Context, id uint, at time.Time) error
	List(ctx context.Context) ([]model.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email = ?", email)
}

func (r *userRepository) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	return r.exists(ctx, "phone = ?", phone)
}

func (r *userRepository) ExistsByFullName(ctx context.Context, fullName string) (bool, error) {
	return r.exists(ctx, "full_name = ?", fullName)
}

func (r *userRepository) exists(ctx context.Context, query string, arg string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Where(query, arg).Limit(1).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkEmailVerified flips email_verified to true inside a transaction. An
// already verified user is returned untouched.
func (r *userRepository) MarkEmailVerified(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ?", email).First(&user).Error; err != nil {
			return err
		}
		if user.EmailVerified {
			return nil
		}
		if err := tx.Model(&user).Update("email_verified", true).Error; err != nil {
			return err
		}
		user.EmailVerified = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) IncrementFailedLogins(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("user_id = ?", id).
		Update("failed_logins", gorm.Expr("failed_logins + ?", 1)).Error
}

func (r *userRepository) RecordLogin(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("user_id = ?", id).
		Updates(map[string]interface{}{
			"failed_logins": 0,
			"last_login_at": at,
		}).Error
}

func (r *userRepository) List(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Order("user_id").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
