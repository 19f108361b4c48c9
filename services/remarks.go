package services

import (
	"strings"
	"time"

	"permit-portal-api/models"
	"permit-portal-api/utils"
)

var remarkTemplates = map[models.StatusCode]string{
	models.StatusSubmitted:       "Application submitted on {now}. Review will begin shortly.",
	models.StatusUnderReview:     "Application is under review as of {now}.",
	models.StatusNeedsRevision:   "Revision required. Please submit the revised application by {revision_deadline}.",
	models.StatusApproved:        "Approved on {now}. Further instructions will be sent.",
	models.StatusRejected:        "Your application has been rejected. If you have any questions, please contact us.",
	models.StatusPaymentPending:  "Payment pending. Please complete the payment by {payment_deadline}.",
	models.StatusPaymentReceived: "Payment confirmed on {now}. Next steps will follow.",
	models.StatusPaymentFailed:   "Payment failed. Please complete the payment by {new_payment_deadline}.",
	models.StatusInspecting:      "Inspection scheduled. Please be prepared and ensure all necessary documents are available for the inspection.",
	models.StatusCompleted:       "Process completed on {now}.",
	models.StatusInspected:       "Inspection completed on {now}. Please wait for further updates or instructions.",
}

// RemarkParams are the values substituted into a remark template.
type RemarkParams struct {
	Now                time.Time
	PaymentDeadline    *time.Time
	NewPaymentDeadline *time.Time
	RevisionDeadline   *time.Time
}

// RenderRemarks fills the template for status. Placeholders without a value
// render empty.
func RenderRemarks(status models.StatusCode, params RemarkParams) string {
	tmpl, ok := remarkTemplates[status]
	if !ok {
		return ""
	}
	replacer := strings.NewReplacer(
		"{now}", utils.FormatDeadline(params.Now),
		"{payment_deadline}", utils.FormatDeadlinePtr(params.PaymentDeadline),
		"{new_payment_deadline}", utils.FormatDeadlinePtr(params.NewPaymentDeadline),
		"{revision_deadline}", utils.FormatDeadlinePtr(params.RevisionDeadline),
	)
	return replacer.Replace(tmpl)
}
