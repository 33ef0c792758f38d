package model

import "time"

// DateLayout is the wire and storage format of calendar dates
const DateLayout = "2006-01-02"

// Product is an item released by a participant
type Product struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	ProductName string    `json:"product_name" gorm:"type:varchar(150);not null"`
	Model       string    `json:"model" gorm:"type:varchar(50);not null"`
	ReleaseDate time.Time `json:"release_date" gorm:"type:date;not null"`
	OwnerID     *uint     `json:"owner" gorm:"index"`

	// Relations
	Owner *Participant `json:"-" gorm:"foreignKey:OwnerID;constraint:OnDelete:SET NULL"`
}
