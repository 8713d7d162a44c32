package models

import "gorm.io/gorm"

// Workspace is the tenant boundary. Every catalogue row belongs to one.
type Workspace struct {
	gorm.Model
	Name       string `gorm:"not null" json:"name"`
	UnitSystem string `gorm:"type:varchar(16);not null;default:small" json:"unit_system"`
}
