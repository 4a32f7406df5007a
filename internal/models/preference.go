package models

import "time"

// UserPreference is the persisted per-user flag record. It replaces ad hoc
// module-level flags such as "has the user seen onboarding" and is owned by
// the persistence layer like any other entity.
type UserPreference struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         string    `gorm:"size:64;uniqueIndex;not null" json:"user_id"`
	OnboardingSeen bool      `gorm:"default:false" json:"onboarding_seen"`
	ActiveRoadmap  string    `gorm:"type:uuid" json:"active_roadmap,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
