package controllers

import (
	"net/http"

	"permit-portal-api/services"

	"github.com/gin-gonic/gin"
)

// DeleteSubmission cascades a single submission. Applicants may only delete
// their own.
func (h *WorkflowController) DeleteSubmission(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, ok := h.authorizeSubmission(c, id); !ok {
		return
	}

	result, err := h.deletion.DeleteSubmission(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Submission deleted successfully",
		"result":  result,
	})
}

// DeleteApplicationSubmissions removes every submission of an application
func (h *WorkflowController) DeleteApplicationSubmissions(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	report, err := h.deletion.DeleteSubmissions(c.Request.Context(), id)
	h.respondReport(c, report, err)
}

// DeleteUserSubmissions removes every submission owned by a user
func (h *WorkflowController) DeleteUserSubmissions(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	report, err := h.deletion.DeleteSubmissionsForUser(c.Request.Context(), id)
	h.respondReport(c, report, err)
}

// respondReport answers 207 when some submissions could not be deleted.
func (h *WorkflowController) respondReport(c *gin.Context, report *services.DeletionReport, err error) {
	if report == nil {
		respondError(c, h.logger, err)
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusMultiStatus, gin.H{
			"success": false,
			"message": "Some submissions could not be deleted; retry the request",
			"report":  report,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Submissions deleted successfully",
		"report":  report,
	})
}
