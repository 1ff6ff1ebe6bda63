package domain

import "time"

const (
	RoleClient    = "client"
	RoleDietitian = "dietitian"
)

// User is the subset of the account record this service reads.
// Accounts are created and edited by the user management service.
type User struct {
	ID        string
	Email     string
	FullName  string
	Role      string
	APNsToken *string
	CreatedAt time.Time
}

// HasPushToken reports whether the user registered a device token.
func (u *User) HasPushToken() bool {
	return u.APNsToken != nil && *u.APNsToken != ""
}

// UserModel is the GORM model for users table.
type UserModel struct {
	ID           string    `gorm:"type:varchar(36);primaryKey"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string    `gorm:"type:varchar(255);not null;default:''"`
	FullName     string    `gorm:"type:varchar(255);not null"`
	Role         string    `gorm:"type:varchar(20);index;not null"`
	Phone        *string   `gorm:"type:varchar(20)"`
	APNsToken    *string   `gorm:"column:apns_token;type:varchar(255)"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name for UserModel.
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts UserModel to domain User.
func (m *UserModel) ToDomain() *User {
	return &User{
		ID:        m.ID,
		Email:     m.Email,
		FullName:  m.FullName,
		Role:      m.Role,
		APNsToken: m.APNsToken,
		CreatedAt: m.CreatedAt,
	}
}
