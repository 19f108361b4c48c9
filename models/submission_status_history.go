package models

import "time"

// StatusHistoryEntry is one immutable row of a submission's status ledger.
type StatusHistoryEntry struct {
	HistoryID    int        `gorm:"primaryKey;column:history_id" json:"history_id"`
	SubmissionID int        `gorm:"column:submission_id" json:"submission_id"`
	StatusCode   StatusCode `gorm:"column:status_code" json:"status_code"`
	Remarks      string     `gorm:"column:remarks" json:"remarks"`
	ChangedBy    *int       `gorm:"column:changed_by" json:"changed_by,omitempty"`
	ChangedAt    time.Time  `gorm:"column:changed_at" json:"changed_at"`
}

// TableName specifies the table for StatusHistoryEntry.
func (StatusHistoryEntry) TableName() string {
	return "status_history"
}
