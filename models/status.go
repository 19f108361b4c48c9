package models

import "fmt"

// StatusCode is the numeric application status shared with every consumer of the
// submissions table (UI filters, reports). Values must never be renumbered.
type StatusCode int

const (
	StatusSubmitted       StatusCode = 1
	StatusUnderReview     StatusCode = 2
	StatusNeedsRevision   StatusCode = 3
	StatusApproved        StatusCode = 4
	StatusRejected        StatusCode = 5
	StatusPaymentPending  StatusCode = 6
	StatusPaymentReceived StatusCode = 7
	StatusPaymentFailed   StatusCode = 8
	StatusInspecting      StatusCode = 9
	StatusCompleted       StatusCode = 10
	StatusInspected       StatusCode = 11
)

var statusNames = map[StatusCode]string{
	StatusSubmitted:       "Submitted",
	StatusUnderReview:     "Under Review",
	StatusNeedsRevision:   "Needs Revision",
	StatusApproved:        "Approved",
	StatusRejected:        "Rejected",
	StatusPaymentPending:  "Payment Pending",
	StatusPaymentReceived: "Payment Received",
	StatusPaymentFailed:   "Payment Failed",
	StatusInspecting:      "Inspecting",
	StatusCompleted:       "Completed",
	StatusInspected:       "Inspected",
}

// AllStatusCodes lists every recognised code in wire order.
func AllStatusCodes() []StatusCode {
	return []StatusCode{
		StatusSubmitted,
		StatusUnderReview,
		StatusNeedsRevision,
		StatusApproved,
		StatusRejected,
		StatusPaymentPending,
		StatusPaymentReceived,
		StatusPaymentFailed,
		StatusInspecting,
		StatusCompleted,
		StatusInspected,
	}
}

// Valid reports whether s is one of the eleven recognised codes.
func (s StatusCode) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// IsTerminal reports whether normal transitions stop at s.
func (s StatusCode) IsTerminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusCompleted:
		return true
	}
	return false
}

func (s StatusCode) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("StatusCode(%d)", int(s))
}
