package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"permit-portal-api/models"
	"permit-portal-api/services"
	"permit-portal-api/utils"

	"github.com/gin-gonic/gin"
)

type transitionRequest struct {
	Status             json.RawMessage `json:"status"`
	ExpectedStatus     json.RawMessage `json:"expected_status"`
	PaymentDeadline    string          `json:"payment_deadline"`
	NewPaymentDeadline string          `json:"newpayment_deadline"`
	RevisionDeadline   string          `json:"revision_deadline"`
	OfficialComment    *string         `json:"official_comment"`
	RevisionComment    *string         `json:"revision_comment"`
}

// parseStatusValue accepts 8, "8", "payment_failed" or "Payment Failed".
func parseStatusValue(raw json.RawMessage) (models.StatusCode, error) {
	value := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	code, err := utils.ParseStatusCode(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", services.ErrInvalidTransition, err)
	}
	return code, nil
}

func commentInput(official, revision *string) *services.CommentInput {
	if official == nil && revision == nil {
		return nil
	}
	return &services.CommentInput{Official: official, Revision: revision}
}

func (h *WorkflowController) parseDeadline(field, raw string) (*time.Time, error) {
	t, err := utils.ParseOptionalDeadline(raw, h.location)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", services.ErrValidation, field, err)
	}
	return t, nil
}

// TransitionSubmission applies an officer's status change
func (h *WorkflowController) TransitionSubmission(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if len(req.Status) == 0 {
		badRequest(c, "status is required")
		return
	}

	status, err := parseStatusValue(req.Status)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	input := services.TransitionInput{
		SubmissionID: id,
		Status:       status,
		ActorID:      actorID(c),
		Comment:      commentInput(req.OfficialComment, req.RevisionComment),
	}
	if len(req.ExpectedStatus) > 0 && string(req.ExpectedStatus) != "null" {
		expected, err := parseStatusValue(req.ExpectedStatus)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		input.ExpectedStatus = &expected
	}
	if input.Deadlines.PaymentDeadline, err = h.parseDeadline("payment_deadline", req.PaymentDeadline); err != nil {
		respondError(c, h.logger, err)
		return
	}
	if input.Deadlines.NewPaymentDeadline, err = h.parseDeadline("newpayment_deadline", req.NewPaymentDeadline); err != nil {
		respondError(c, h.logger, err)
		return
	}
	if input.Deadlines.RevisionDeadline, err = h.parseDeadline("revision_deadline", req.RevisionDeadline); err != nil {
		respondError(c, h.logger, err)
		return
	}

	result, err := h.lifecycle.Transition(c.Request.Context(), input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Status changed to %s", result.To),
		"history": result.History,
		"comment": result.Comment,
	})
}

type inspectionRequest struct {
	OfficialComment *string `json:"official_comment"`
}

// CompleteInspection marks an on-site inspection as done
func (h *WorkflowController) CompleteInspection(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req inspectionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	result, err := h.lifecycle.CompleteInspection(c.Request.Context(), id, actorID(c), commentInput(req.OfficialComment, nil))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Inspection completed",
		"history": result.History,
	})
}

// ResubmitDocuments replaces the document set of a submission in revision
func (h *WorkflowController) ResubmitDocuments(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, ok := h.authorizeSubmission(c, id); !ok {
		return
	}

	files, cleanup, err := h.readFiles(c)
	defer cleanup()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	set, err := h.documents.Resubmit(c.Request.Context(), id, files, actorID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   fmt.Sprintf("%d document(s) resubmitted", len(set.Documents)),
		"documents": set.Documents,
		"history":   set.History,
		"warnings":  set.Warnings,
	})
}
