// controllers/submission.go
package controllers

import (
	"net/http"

	"permit-portal-api/middleware"
	"permit-portal-api/models"
	"permit-portal-api/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type createSubmissionForm struct {
	ApplicationID int      `form:"application_id"`
	UserID        int      `form:"user_id"`
	FullName      string   `form:"full_name"`
	ContactNumber string   `form:"contact_number"`
	Address       string   `form:"address"`
	Purpose       string   `form:"purpose"`
	Latitude      *float64 `form:"latitude"`
	Longitude     *float64 `form:"longitude"`
}

// CreateSubmission files a new submission with its initial documents
func (h *WorkflowController) CreateSubmission(c *gin.Context) {
	files, cleanup, err := h.readFiles(c)
	defer cleanup()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var form createSubmissionForm
	if err := c.ShouldBind(&form); err != nil {
		badRequest(c, err.Error())
		return
	}

	// Applicants always file for themselves; officers file on behalf of user_id.
	ownerID, _ := middleware.UserID(c)
	if role, _ := middleware.RoleID(c); role != middleware.RoleApplicant && form.UserID > 0 {
		ownerID = form.UserID
	}

	created, err := h.intake.Create(c.Request.Context(), services.CreateSubmissionInput{
		ApplicationID: form.ApplicationID,
		OwnerID:       ownerID,
		FullName:      form.FullName,
		ContactNumber: form.ContactNumber,
		Address:       form.Address,
		Purpose:       form.Purpose,
		Latitude:      form.Latitude,
		Longitude:     form.Longitude,
	}, files)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"message":    "Submission created successfully",
		"submission": created.Submission,
		"documents":  created.Documents,
		"history":    created.History,
	})
}

// GetSubmissionHistory returns the status ledger oldest first
func (h *WorkflowController) GetSubmissionHistory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	sub, ok := h.authorizeSubmission(c, id)
	if !ok {
		return
	}

	history, err := h.lifecycle.ListHistory(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	current := models.StatusSubmitted
	if len(history) > 0 {
		current = history[len(history)-1].StatusCode
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"submission_id":  sub.SubmissionID,
		"current_status": current,
		"status_name":    current.String(),
		"history":        history,
	})
}

// GetSubmissionComments returns official and revision remarks newest first
func (h *WorkflowController) GetSubmissionComments(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, ok := h.authorizeSubmission(c, id); !ok {
		return
	}

	comments, err := h.lifecycle.ListComments(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"comments": comments,
	})
}

type documentView struct {
	models.Document
	URL string `json:"url,omitempty"`
}

// GetSubmissionDocuments lists the active document set with fetchable URLs
func (h *WorkflowController) GetSubmissionDocuments(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, ok := h.authorizeSubmission(c, id); !ok {
		return
	}

	docs, err := h.lifecycle.ListDocuments(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	views := make([]documentView, 0, len(docs))
	for _, doc := range docs {
		view := documentView{Document: doc}
		if objectPath, err := h.artifacts.PathFromLink(doc.FileLink); err == nil {
			if url, err := h.artifacts.URL(c.Request.Context(), objectPath); err == nil {
				view.URL = url
			} else {
				h.logger.Warn("failed to resolve document url", zap.Int("document_id", doc.DocumentID), zap.Error(err))
			}
		}
		views = append(views, view)
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"documents": views,
	})
}
