package models

import (
	"strings"
	"time"
)

// Comment carries an official remark, a revision remark, or both.
type Comment struct {
	CommentID       int       `gorm:"primaryKey;column:comment_id" json:"comment_id"`
	SubmissionID    int       `gorm:"column:submission_id" json:"submission_id"`
	HistoryID       *int      `gorm:"column:history_id" json:"history_id,omitempty"`
	OfficialComment *string   `gorm:"column:official_comment" json:"official_comment,omitempty"`
	RevisionComment *string   `gorm:"column:revision_comment" json:"revision_comment,omitempty"`
	CommentDate     time.Time `gorm:"column:comment_date" json:"comment_date"`
}

func (Comment) TableName() string {
	return "comments"
}

// HasOfficial reports whether the official remark is present and not blank.
func (c *Comment) HasOfficial() bool {
	return c.OfficialComment != nil && strings.TrimSpace(*c.OfficialComment) != ""
}

// HasRevision reports whether the revision remark is present and not blank.
func (c *Comment) HasRevision() bool {
	return c.RevisionComment != nil && strings.TrimSpace(*c.RevisionComment) != ""
}
