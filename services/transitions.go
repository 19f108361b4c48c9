package services

import "permit-portal-api/models"

// successors is the legal adjacency of the lifecycle. Terminal states have no
// entry. Submitted is only re-entered from NeedsRevision by the resubmission saga.
var successors = map[models.StatusCode][]models.StatusCode{
	models.StatusSubmitted: {
		models.StatusUnderReview,
		models.StatusNeedsRevision,
		models.StatusRejected,
	},
	models.StatusUnderReview: {
		models.StatusNeedsRevision,
		models.StatusApproved,
		models.StatusRejected,
		models.StatusPaymentPending,
		models.StatusInspecting,
	},
	models.StatusNeedsRevision: {
		models.StatusSubmitted,
		models.StatusUnderReview,
		models.StatusRejected,
	},
	models.StatusPaymentPending: {
		models.StatusPaymentReceived,
		models.StatusPaymentFailed,
		models.StatusRejected,
	},
	models.StatusPaymentFailed: {
		models.StatusPaymentPending,
		models.StatusPaymentReceived,
		models.StatusRejected,
	},
	models.StatusPaymentReceived: {
		models.StatusInspecting,
		models.StatusApproved,
		models.StatusCompleted,
	},
	models.StatusInspecting: {
		models.StatusInspected,
		models.StatusNeedsRevision,
		models.StatusRejected,
	},
	models.StatusInspected: {
		models.StatusApproved,
		models.StatusCompleted,
		models.StatusNeedsRevision,
		models.StatusRejected,
	},
}

// CanTransition reports whether to is a legal successor of from.
func CanTransition(from, to models.StatusCode) bool {
	for _, next := range successors[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Successors returns the legal next statuses of from.
func Successors(from models.StatusCode) []models.StatusCode {
	next := successors[from]
	out := make([]models.StatusCode, len(next))
	copy(out, next)
	return out
}
