package models

import (
	"time"
)

// Document points into the artifact store. Exactly one of ApplicationID and
// SubmissionID is set.
type Document struct {
	DocumentID    int       `gorm:"primaryKey;column:document_id" json:"document_id"`
	FileName      string    `gorm:"column:file_name" json:"file_name"`
	FileType      string    `gorm:"column:file_type" json:"file_type"`
	FileLink      string    `gorm:"column:file_link" json:"file_link"`
	ApplicationID *int      `gorm:"column:application_id" json:"application_id,omitempty"`
	SubmissionID  *int      `gorm:"column:submission_id" json:"submission_id,omitempty"`
	UploadedAt    time.Time `gorm:"column:uploaded_at" json:"uploaded_at"`
}

// TableName overrides
func (Document) TableName() string {
	return "documents"
}

// HasSingleOwner reports whether the document references exactly one owner.
func (d *Document) HasSingleOwner() bool {
	return (d.ApplicationID == nil) != (d.SubmissionID == nil)
}
