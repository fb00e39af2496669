package entity

import (
	"time"
)

// ProfileArchive represents a finished profile persisted for the diagnostics
// history view
type ProfileArchive struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RequestID       string    `gorm:"uniqueIndex;not null" json:"request_id"`
	QueryCount      int       `json:"query_count"`
	TotalDurationMs int64     `json:"total_duration_ms"`
	SlowQueries     int       `json:"slow_queries"`
	PotentialN1     bool      `json:"potential_n1"`
	TopPattern      string    `gorm:"type:text" json:"top_pattern"`
	TopPatternCount int       `json:"top_pattern_count"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `gorm:"index" json:"finished_at"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName overrides the table name used by ProfileArchive to `profile_archives`
func (ProfileArchive) TableName() string {
	return "profile_archives"
}
