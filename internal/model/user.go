package model

import "time"

// User is a registered SparkEd account.
type User struct {
	ID               uint       `json:"id" gorm:"column:user_id;primaryKey;autoIncrement"`
	FullName         string     `json:"full_name" gorm:"size:150;not null;uniqueIndex"`
	Email            string     `json:"email" gorm:"size:255;not null;uniqueIndex"`
	Phone            string     `json:"phone" gorm:"size:20;not null;uniqueIndex"`
	PasswordHash     string     `json:"-" gorm:"column:password;size:255;not null"` // bcrypt hash, never plaintext
	IsAdmin          bool       `json:"is_admin" gorm:"not null;default:false"`
	IsActive         bool       `json:"is_active" gorm:"not null;default:true"`
	EmailVerified    bool       `json:"email_verified" gorm:"not null;default:false"`
	FailedLogins     int        `json:"failed_logins" gorm:"not null;default:0"`
	LastLoginAt      *time.Time `json:"last_login_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	ResetToken       *string    `json:"-" gorm:"size:255"`
	ResetTokenExpiry *time.Time `json:"-"`
}

func (User) TableName() string {
	return "userdetails"
}
