package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnitName classifies a participant within the supply chain
type UnitName string

const (
	UnitFactory        UnitName = "завод"
	UnitRetailNetwork  UnitName = "розничная сеть"
	UnitSoleProprietor UnitName = "ИП"
)

// UnitNames lists the accepted unit types in display order
var UnitNames = []UnitName{UnitFactory, UnitRetailNetwork, UnitSoleProprietor}

// Valid reports whether u is one of the known unit types
func (u UnitName) Valid() bool {
	for _, known := range UnitNames {
		if u == known {
			return true
		}
	}
	return false
}

// Level is the string-coded hierarchy position of a participant
type Level string

const (
	LevelZero Level = "0"
	LevelOne  Level = "1"
	LevelTwo  Level = "2"
)

// Levels lists the accepted hierarchy levels
var Levels = []Level{LevelZero, LevelOne, LevelTwo}

// Valid reports whether l is one of the known levels
func (l Level) Valid() bool {
	return l == LevelZero || l == LevelOne || l == LevelTwo
}

// Participant is a member of the trading network
type Participant struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	Name       string          `json:"name" gorm:"type:varchar(150);not null"`
	Email      string          `json:"email" gorm:"type:varchar(254);uniqueIndex;not null"`
	Country    string          `json:"country" gorm:"type:varchar(50);index;not null"`
	City       string          `json:"city" gorm:"type:varchar(50);index;not null"`
	Street     string          `json:"street" gorm:"type:varchar(50);not null"`
	House      string          `json:"house" gorm:"type:varchar(10);not null"`
	UnitName   UnitName        `json:"unit_name" gorm:"type:varchar(20);not null"`
	Level      *Level          `json:"level" gorm:"type:varchar(3)"`
	SupplierID *uint           `json:"supplier" gorm:"index"`
	Debt       decimal.Decimal `json:"debt" gorm:"type:decimal(15,2);not null;default:0"`
	CreatedAt  time.Time       `json:"-"`

	// Relations
	Supplier *Participant `json:"-" gorm:"foreignKey:SupplierID;constraint:OnDelete:SET NULL"`
}

// LevelValue returns the level or an empty string when the participant is unplaced
func (p *Participant) LevelValue() Level {
	if p.Level == nil {
		return ""
	}
	return *p.Level
}

// LevelPtr is a helper for building optional levels
func LevelPtr(l Level) *Level {
	return &l
}
