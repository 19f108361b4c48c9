package models

import "time"

// Submission is one applicant's instance of a catalog Application.
//
// CurrentStatus mirrors the latest status_history entry; the ledger remains the
// source of truth when the two disagree.
type Submission struct {
	SubmissionID  int        `gorm:"primaryKey;column:submission_id" json:"submission_id"`
	ApplicationID int        `gorm:"column:application_id" json:"application_id"`
	OwnerID       int        `gorm:"column:user_id" json:"user_id"`
	CurrentStatus StatusCode `gorm:"column:current_status" json:"current_status"`

	FullName      string   `gorm:"column:full_name" json:"full_name"`
	ContactNumber string   `gorm:"column:contact_number" json:"contact_number"`
	Address       string   `gorm:"column:address" json:"address"`
	Purpose       string   `gorm:"column:purpose" json:"purpose"`
	Latitude      *float64 `gorm:"column:latitude" json:"latitude,omitempty"`
	Longitude     *float64 `gorm:"column:longitude" json:"longitude,omitempty"`

	PaymentDeadline    *time.Time `gorm:"column:payment_deadline" json:"payment_deadline,omitempty"`
	NewPaymentDeadline *time.Time `gorm:"column:newpayment_deadline" json:"newpayment_deadline,omitempty"`
	RevisionDeadline   *time.Time `gorm:"column:revision_deadline" json:"revision_deadline,omitempty"`
	ApprovedAt         *time.Time `gorm:"column:approved_at" json:"approved_at,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Submission) TableName() string {
	return "submissions"
}

// SubmissionStatusUpdate is the set of columns a transition writes back to the
// submission row. Nil deadline pointers leave the stored value untouched.
type SubmissionStatusUpdate struct {
	Status             StatusCode
	PaymentDeadline    *time.Time
	NewPaymentDeadline *time.Time
	RevisionDeadline   *time.Time
	ApprovedAt         *time.Time
	UpdatedAt          time.Time
}
