package model

import "time"

// User is an account that logs in by email
type User struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	Email       string     `json:"email" gorm:"type:varchar(254);uniqueIndex;not null"`
	Password    string     `json:"-" gorm:"type:varchar(128);not null"`
	LastName    string     `json:"last_name" gorm:"type:varchar(50);not null"`
	FirstName   string     `json:"first_name" gorm:"type:varchar(50);not null"`
	EmployerID  *uint      `json:"employer" gorm:"index"`
	IsActive    bool       `json:"-" gorm:"not null;default:true"`
	IsStaff     bool       `json:"-" gorm:"not null;default:false"`
	IsSuperuser bool       `json:"-" gorm:"not null;default:false"`
	DateJoined  time.Time  `json:"-" gorm:"autoCreateTime"`
	LastLogin   *time.Time `json:"-"`

	// Relations
	Employer *Participant `json:"-" gorm:"foreignKey:EmployerID;constraint:OnDelete:SET NULL"`
}

// IsActiveEmployee reports whether the user works for some participant
func (u *User) IsActiveEmployee() bool {
	return u.EmployerID != nil
}

// SameEmployer reports whether the user and the given employer reference match,
// treating two missing employers as equal
func (u *User) SameEmployer(employerID *uint) bool {
	if u.EmployerID == nil || employerID == nil {
		return u.EmployerID == nil && employerID == nil
	}
	return *u.EmployerID == *employerID
}
