package models

import "time"

// Setting is a key/value slot for client-side state that must survive
// restarts (history list, terminal session tokens).
type Setting struct {
	Key       string `gorm:"primaryKey"`
	Value     string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
