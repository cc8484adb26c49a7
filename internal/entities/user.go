package entities

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID                       uint   `gorm:"primaryKey"`
	ExternalID               string `gorm:"uniqueIndex"`
	Email                    string
	Role                     Role `gorm:"default:user"`
	Subscribed               bool `gorm:"default:true"`
	Verified                 bool
	VerificationToken        *string
	VerificationTokenExpires *time.Time
	UnsubscribeToken         string `gorm:"uniqueIndex"`
	Filter                   *UserFilter
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
