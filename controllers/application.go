package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetApplication returns a catalog entry and the documents it requires
func (h *WorkflowController) GetApplication(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	application, err := h.intake.Application(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"application": application,
	})
}
