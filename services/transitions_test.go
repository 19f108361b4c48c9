package services

import (
	"testing"
	"time"

	"permit-portal-api/models"

	"github.com/stretchr/testify/assert"
)

func TestTerminalStatusesHaveNoSuccessors(t *testing.T) {
	for _, code := range models.AllStatusCodes() {
		if code.IsTerminal() {
			assert.Empty(t, Successors(code), code.String())
			continue
		}
		assert.NotEmpty(t, Successors(code), code.String())
	}
}

func TestSubmittedOnlyReachableFromNeedsRevision(t *testing.T) {
	for _, code := range models.AllStatusCodes() {
		want := code == models.StatusNeedsRevision
		assert.Equal(t, want, CanTransition(code, models.StatusSubmitted), code.String())
	}
}

func TestSuccessorsReturnsCopy(t *testing.T) {
	next := Successors(models.StatusSubmitted)
	next[0] = models.StatusCompleted
	assert.False(t, CanTransition(models.StatusSubmitted, models.StatusCompleted))
}

func TestRenderRemarks(t *testing.T) {
	now := time.Date(2024, 5, 20, 14, 5, 0, 0, time.UTC)
	deadline := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t,
		"Application submitted on 2024-05-20T14:05. Review will begin shortly.",
		RenderRemarks(models.StatusSubmitted, RemarkParams{Now: now}))
	assert.Equal(t,
		"Payment pending. Please complete the payment by 2024-06-01T00:00.",
		RenderRemarks(models.StatusPaymentPending, RemarkParams{Now: now, PaymentDeadline: &deadline}))
	assert.Equal(t,
		"Your application has been rejected. If you have any questions, please contact us.",
		RenderRemarks(models.StatusRejected, RemarkParams{Now: now}))
	assert.Equal(t, "", RenderRemarks(models.StatusCode(0), RemarkParams{Now: now}))

	for _, code := range models.AllStatusCodes() {
		assert.NotEmpty(t, RenderRemarks(code, RemarkParams{Now: now}), code.String())
	}
}
